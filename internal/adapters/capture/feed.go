package capture

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/elchatico/dualview/internal/core"
)

// feedSpec describes one RTP feed socket and the track it becomes.
type feedSpec struct {
	addr     string
	mime     string
	clock    uint32
	kind     core.TrackKind
	id       string
	streamID string
}

// feedTrack is a local track fed by RTP packets arriving on a UDP socket
// (an external encoder pushes them there). An atomic enabled flag gates
// forwarding: a disabled track keeps draining its socket but transmits
// nothing, which mutes without touching negotiation or senders.
type feedTrack struct {
	spec  feedSpec
	log   zerolog.Logger
	track *webrtc.TrackLocalStaticRTP
	conn  *net.UDPConn

	enabled atomic.Bool
	closing atomic.Bool
	done    chan struct{}

	mu      sync.Mutex
	ended   bool
	onEnded func()
}

func newFeedTrack(spec feedSpec, log zerolog.Logger) (*feedTrack, error) {
	addr, err := net.ResolveUDPAddr("udp", spec.addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s feed address %q: %w", spec.kind, spec.addr, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s feed on %q: %w", spec.kind, spec.addr, err)
	}
	track, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: spec.mime, ClockRate: spec.clock},
		spec.id, spec.streamID,
	)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create %s track: %w", spec.kind, err)
	}

	f := &feedTrack{
		spec:  spec,
		log:   log,
		track: track,
		conn:  conn,
		done:  make(chan struct{}),
	}
	f.enabled.Store(true)
	go f.loop()
	log.Info().Str("module", "capture").Str("track_id", spec.id).Str("addr", conn.LocalAddr().String()).Msg("feed listening")
	return f, nil
}

// loop reads RTP packets from the socket and forwards them to the track
// while enabled.
func (f *feedTrack) loop() {
	defer close(f.done)
	buf := make([]byte, 1500)
	var pkt rtp.Packet
	for {
		n, _, err := f.conn.ReadFromUDP(buf)
		if err != nil {
			if !f.closing.Load() {
				f.log.Warn().Err(err).Str("module", "capture").Str("track_id", f.spec.id).Msg("feed ended")
				// The hook may Close this track, and Close waits for this
				// goroutine to exit. Fire it off the pump.
				go f.fireEnded()
			}
			return
		}
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			f.log.Debug().Err(err).Str("module", "capture").Msg("bad RTP packet on feed")
			continue
		}
		if !f.enabled.Load() {
			continue
		}
		if err := f.track.WriteRTP(&pkt); err != nil {
			f.log.Debug().Err(err).Str("module", "capture").Str("track_id", f.spec.id).Msg("forward RTP")
		}
	}
}

func (f *feedTrack) ID() string { return f.spec.id }

func (f *feedTrack) Kind() core.TrackKind { return f.spec.kind }

func (f *feedTrack) Enabled() bool { return f.enabled.Load() }

func (f *feedTrack) SetEnabled(v bool) { f.enabled.Store(v) }

func (f *feedTrack) Unwrap() webrtc.TrackLocal { return f.track }

// Close stops the pump. Idempotent; the ended hook does not fire for a
// deliberate close.
func (f *feedTrack) Close() error {
	if f.closing.Swap(true) {
		return nil
	}
	err := f.conn.Close()
	<-f.done
	return err
}

// setOnEnded registers the end-of-feed hook. Registering after the feed
// already died fires the hook immediately, so a death during the
// registration window is never lost.
func (f *feedTrack) setOnEnded(fn func()) {
	f.mu.Lock()
	f.onEnded = fn
	fired := f.ended
	f.mu.Unlock()
	if fired && fn != nil {
		fn()
	}
}

func (f *feedTrack) fireEnded() {
	f.mu.Lock()
	f.ended = true
	fn := f.onEnded
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}
