// Package rtc implements the core.Transport interface on a pion
// PeerConnection.
package rtc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/elchatico/dualview/internal/core"
)

// Config selects the ICE servers for NAT traversal. STUN only; relays are
// out of scope.
type Config struct {
	STUNServers []string
}

// DefaultConfig uses the public Google STUN server.
func DefaultConfig() Config {
	return Config{STUNServers: []string{"stun:stun.l.google.com:19302"}}
}

// Transport wraps a pion PeerConnection behind core.Transport. All pion
// callbacks are converted into typed events and delivered to the single
// sink installed with OnEvent.
type Transport struct {
	log zerolog.Logger
	pc  *webrtc.PeerConnection

	mu   sync.RWMutex
	sink func(core.Event)

	closeOnce sync.Once
	closed    chan struct{}
}

// New builds the pion API with the default codecs and interceptors and
// opens a PeerConnection.
func New(cfg Config, log zerolog.Logger) (*Transport, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}
	ir := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, ir); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}
	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(m),
		webrtc.WithInterceptorRegistry(ir),
	)

	var servers []webrtc.ICEServer
	for _, u := range cfg.STUNServers {
		servers = append(servers, webrtc.ICEServer{URLs: []string{u}})
	}
	pc, err := api.NewPeerConnection(webrtc.Configuration{ICEServers: servers})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	t := &Transport{
		log:    log,
		pc:     pc,
		closed: make(chan struct{}),
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		t.emit(core.CandidateEvent{Candidate: c.ToJSON()})
	})
	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "rtc").
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Str("stream_id", track.StreamID()).
			Msg("remote track")
		go t.drainTrack(track)
		t.emit(core.TrackEvent{Track: remoteTrack{t: track}})
	})
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		log.Info().Str("module", "rtc").Str("label", dc.Label()).Msg("inbound data channel")
		t.emit(core.ChannelEvent{Channel: &sideChannel{dc: dc}})
	})
	pc.OnConnectionStateChange(func(st webrtc.PeerConnectionState) {
		t.emit(core.StateEvent{State: st})
	})
	pc.OnICEConnectionStateChange(func(st webrtc.ICEConnectionState) {
		log.Info().Str("module", "rtc").Str("ice_state", st.String()).Msg("ICE state")
	})

	return t, nil
}

// OnEvent installs the event sink. Events emitted before a sink exists
// are dropped.
func (t *Transport) OnEvent(fn func(core.Event)) {
	t.mu.Lock()
	t.sink = fn
	t.mu.Unlock()
}

func (t *Transport) CreateOffer() (webrtc.SessionDescription, error) {
	return t.pc.CreateOffer(nil)
}

func (t *Transport) CreateAnswer() (webrtc.SessionDescription, error) {
	return t.pc.CreateAnswer(nil)
}

func (t *Transport) SetLocalDescription(d webrtc.SessionDescription) error {
	return t.pc.SetLocalDescription(d)
}

func (t *Transport) SetRemoteDescription(d webrtc.SessionDescription) error {
	return t.pc.SetRemoteDescription(d)
}

func (t *Transport) LocalDescription() *webrtc.SessionDescription {
	return t.pc.LocalDescription()
}

func (t *Transport) AddICECandidate(ci webrtc.ICECandidateInit) error {
	return t.pc.AddICECandidate(ci)
}

// WaitForGathering blocks until the current gathering round reports
// complete. The state subscription is single-fire and replaced with a
// no-op the moment it triggers.
func (t *Transport) WaitForGathering(ctx context.Context) error {
	done := make(chan struct{})
	var once sync.Once
	fire := func() { once.Do(func() { close(done) }) }

	t.pc.OnICEGatheringStateChange(func(st webrtc.ICEGatheringState) {
		if st == webrtc.ICEGatheringStateComplete {
			fire()
		}
	})
	// The round may already be over by the time the handler is installed.
	if t.pc.ICEGatheringState() == webrtc.ICEGatheringStateComplete {
		fire()
	}
	defer t.pc.OnICEGatheringStateChange(func(webrtc.ICEGatheringState) {})

	select {
	case <-done:
		return nil
	case <-t.closed:
		return errors.New("transport closed")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CreateSideChannel opens an ordered reliable data channel.
func (t *Transport) CreateSideChannel(label string) (core.SideChannel, error) {
	ordered := true
	dc, err := t.pc.CreateDataChannel(label, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return nil, fmt.Errorf("create data channel: %w", err)
	}
	return &sideChannel{dc: dc}, nil
}

func (t *Transport) AddTrack(lt core.LocalTrack) (core.Sender, error) {
	sender, err := t.pc.AddTrack(lt.Unwrap())
	if err != nil {
		return nil, fmt.Errorf("add track: %w", err)
	}
	go t.drainRTCP(sender)
	return &rtpSender{s: sender, kind: lt.Kind()}, nil
}

func (t *Transport) RemoveTrack(s core.Sender) error {
	rs, ok := s.(*rtpSender)
	if !ok {
		return errors.New("sender does not belong to this transport")
	}
	return t.pc.RemoveTrack(rs.s)
}

// Close is idempotent.
func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.closed)
		err = t.pc.Close()
	})
	return err
}

func (t *Transport) emit(ev core.Event) {
	t.mu.RLock()
	sink := t.sink
	t.mu.RUnlock()
	if sink != nil {
		sink(ev)
	}
}

// drainTrack consumes inbound RTP so the interceptor chain keeps feedback
// flowing; rendering is someone else's job.
func (t *Transport) drainTrack(track *webrtc.TrackRemote) {
	for {
		if _, _, err := track.ReadRTP(); err != nil {
			return
		}
	}
}

// drainRTCP consumes sender reports until the sender dies.
func (t *Transport) drainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}

type rtpSender struct {
	s    *webrtc.RTPSender
	kind core.TrackKind
}

func (r *rtpSender) Kind() core.TrackKind { return r.kind }

type remoteTrack struct {
	t *webrtc.TrackRemote
}

func (r remoteTrack) ID() string { return r.t.ID() }

func (r remoteTrack) StreamID() string { return r.t.StreamID() }

func (r remoteTrack) Kind() core.TrackKind {
	if r.t.Kind() == webrtc.RTPCodecTypeAudio {
		return core.TrackAudio
	}
	return core.TrackVideo
}
