package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/elchatico/dualview/internal/codec"
	"github.com/elchatico/dualview/internal/core"
	"github.com/elchatico/dualview/internal/domain"
)

// SessionState is the negotiation lifecycle of one session.
type SessionState string

const (
	StateNew          SessionState = "new"
	StateReady        SessionState = "ready"
	StateOffering     SessionState = "offering"
	StateAnswering    SessionState = "answering"
	StateGathering    SessionState = "gathering"
	StateLocalReady   SessionState = "local_ready"
	StateConnected    SessionState = "connected"
	StateDisconnected SessionState = "disconnected"
	StateFailed       SessionState = "failed"
	StateClosed       SessionState = "closed"
)

// SessionConfig carries the negotiation knobs.
type SessionConfig struct {
	// ChannelLabel names the chat side channel.
	ChannelLabel string
	// GatherTimeout bounds the wait for gathering completion. Zero
	// disables the bound; a round that never completes then stalls its
	// operation until Reset.
	GatherTimeout time.Duration
}

// Session is the single live negotiation and transport context. It owns
// the transport, the side channel, the candidate accumulator, the track
// router and local media. All transport callbacks arrive as typed events
// drained by one dispatcher goroutine, so mutation is serialized.
type Session struct {
	mu  sync.Mutex
	log zerolog.Logger
	cfg SessionConfig

	transport core.Transport

	state      SessionState
	connState  string
	status     string
	localDesc  *domain.NegotiationPayload
	remoteDesc *domain.NegotiationPayload
	gatherDone bool
	outBlob    string

	acc    *Accumulator
	router *Router
	media  *MediaControl
	chat   *SideChannelManager

	events    chan core.Event
	done      chan struct{}
	closeOnce sync.Once
	onChange  func()
}

// NewSession builds a fresh session around a transport and starts its
// event dispatcher.
func NewSession(log zerolog.Logger, cfg SessionConfig, transport core.Transport, provider core.CaptureProvider, onChange func()) *Session {
	s := &Session{
		log:       log,
		cfg:       cfg,
		transport: transport,
		state:     StateNew,
		connState: webrtc.PeerConnectionStateNew.String(),
		events:    make(chan core.Event, 256),
		done:      make(chan struct{}),
		onChange:  onChange,
	}
	s.acc = NewAccumulator()
	s.router = NewRouter(log)
	s.chat = NewSideChannelManager(log, onChange)
	s.media = NewMediaControl(log, transport, provider, onChange)

	transport.OnEvent(s.enqueue)
	go s.run()

	s.mu.Lock()
	s.state = StateReady
	s.mu.Unlock()
	return s
}

// CreateOffer starts the initiator path: the side channel is created
// before the offer so it rides in the negotiated description, a fresh
// gathering round begins, and the encoded payload is exported once
// gathering completes.
func (s *Session) CreateOffer(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.state != StateReady {
		s.status = "reset the session before creating a new offer"
		s.mu.Unlock()
		s.notify()
		return "", ErrNotReady
	}
	s.state = StateOffering
	s.status = "creating offer"
	s.mu.Unlock()
	s.notify()

	ch, err := s.transport.CreateSideChannel(s.cfg.ChannelLabel)
	if err != nil {
		return "", s.failNegotiation("side channel refused", err)
	}
	s.chat.Adopt(ch)

	s.acc.Reset()

	offer, err := s.transport.CreateOffer()
	if err != nil {
		return "", s.failNegotiation("transport rejected the offer", err)
	}
	if err := s.transport.SetLocalDescription(offer); err != nil {
		return "", s.failNegotiation("transport rejected the offer", err)
	}
	s.enterGathering()

	if err := s.waitGathering(ctx); err != nil {
		return "", s.failNegotiation("candidate gathering did not complete", err)
	}
	return s.exportLocal(domain.KindOffer, "offer ready, send it to your peer")
}

// CreateAnswer runs the responder path for a pasted offer blob.
func (s *Session) CreateAnswer(ctx context.Context, pastedOffer string) (string, error) {
	trimmed := strings.TrimSpace(pastedOffer)
	if trimmed == "" {
		s.setStatus("paste the offer first")
		return "", ErrNoOffer
	}
	payload, err := codec.Decode(trimmed)
	if err != nil {
		s.setStatus("that does not look like an offer, re-paste it")
		return "", err
	}
	if payload.Kind != domain.KindOffer {
		s.setStatus("that payload is an answer, not an offer")
		return "", ErrWrongKind
	}

	s.mu.Lock()
	if s.state != StateReady {
		s.status = "reset the session before answering"
		s.mu.Unlock()
		s.notify()
		return "", ErrNotReady
	}
	s.state = StateAnswering
	s.status = "answering offer"
	s.mu.Unlock()
	s.notify()

	if err := s.transport.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  payload.SDP,
	}); err != nil {
		return "", s.failNegotiation("transport rejected the offer, it may be stale", err)
	}
	s.mu.Lock()
	s.remoteDesc = &payload
	s.mu.Unlock()

	s.acc.Reset()

	answer, err := s.transport.CreateAnswer()
	if err != nil {
		return "", s.failNegotiation("transport could not build an answer", err)
	}
	if err := s.transport.SetLocalDescription(answer); err != nil {
		return "", s.failNegotiation("transport could not build an answer", err)
	}
	s.enterGathering()

	if err := s.waitGathering(ctx); err != nil {
		return "", s.failNegotiation("candidate gathering did not complete", err)
	}
	return s.exportLocal(domain.KindAnswer, "answer ready, send it back to your peer")
}

// AcceptAnswer applies a pasted answer blob. This is the terminal step of
// the handshake; no further local description is produced.
func (s *Session) AcceptAnswer(pastedAnswer string) error {
	trimmed := strings.TrimSpace(pastedAnswer)
	if trimmed == "" {
		s.setStatus("paste the answer first")
		return ErrNoAnswer
	}
	payload, err := codec.Decode(trimmed)
	if err != nil {
		s.setStatus("that does not look like an answer, re-paste it")
		return err
	}
	if payload.Kind != domain.KindAnswer {
		s.setStatus("that payload is an offer, not an answer")
		return ErrWrongKind
	}

	s.mu.Lock()
	if s.localDesc == nil || s.localDesc.Kind != domain.KindOffer {
		s.status = "create an offer before accepting an answer"
		s.mu.Unlock()
		s.notify()
		return ErrNotReady
	}
	s.mu.Unlock()

	if err := s.transport.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  payload.SDP,
	}); err != nil {
		return s.failNegotiation("transport rejected the answer, it may be stale", err)
	}

	s.mu.Lock()
	s.remoteDesc = &payload
	s.status = "answer applied, connecting"
	s.mu.Unlock()
	s.notify()
	return nil
}

// ExportCandidates serializes the current gathering round in arrival
// order.
func (s *Session) ExportCandidates() (string, error) {
	return s.acc.Export()
}

// IngestCandidates applies an externally supplied candidate sequence in
// the given order, skipping null and empty entries. A non-sequence input
// fails hard; individual apply failures are logged and skipped.
func (s *Session) IngestCandidates(in string) error {
	list, err := ParseCandidateList(in)
	if err != nil {
		s.setStatus("candidate list not recognized")
		return err
	}
	for _, ci := range list {
		if err := s.transport.AddICECandidate(ci); err != nil {
			s.log.Warn().Err(err).Str("module", "session").Msg("apply remote candidate")
		}
	}
	s.setStatus("remote candidates applied")
	return nil
}

// SendChat forwards a message over the side channel. Returns false when
// the channel is not open; the message is dropped silently by contract.
func (s *Session) SendChat(text string) bool {
	return s.chat.Send(text)
}

// Media exposes local capture control.
func (s *Session) Media() *MediaControl { return s.media }

// Chat exposes the side-channel manager.
func (s *Session) Chat() *SideChannelManager { return s.chat }

// Close tears the whole session down: local media, side channel and
// transport, in that order. It never fails; partial teardown errors are
// swallowed. Safe to call repeatedly and from any state.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.media.ReleaseAll()
		s.chat.Close()
		if err := s.transport.Close(); err != nil {
			s.log.Debug().Err(err).Str("module", "session").Msg("transport close during teardown")
		}
		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()
		close(s.done)
		s.log.Info().Str("module", "session").Msg("session closed")
	})
}

// State returns the lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns the last user-facing status line.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// OutboundPayload returns the latest encoded blob produced by this side.
func (s *Session) OutboundPayload() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outBlob
}

// TrackInfo is a read-only view of one remote track.
type TrackInfo struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

// Snapshot is the read-only projection the presentation layer renders.
type Snapshot struct {
	State           SessionState         `json:"state"`
	ConnectionState string               `json:"connection_state"`
	Status          string               `json:"status"`
	Payload         string               `json:"payload"`
	GatherComplete  bool                 `json:"gathering_complete"`
	CandidateCount  int                  `json:"candidate_count"`
	RemoteCamera    []TrackInfo          `json:"remote_camera"`
	RemoteScreen    []TrackInfo          `json:"remote_screen"`
	CameraActive    bool                 `json:"camera_active"`
	ScreenActive    bool                 `json:"screen_active"`
	MicEnabled      bool                 `json:"mic_enabled"`
	VideoEnabled    bool                 `json:"video_enabled"`
	Channel         ChannelState         `json:"channel"`
	Chat            []domain.ChatMessage `json:"chat"`
}

// Snapshot assembles the current projection.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		State:           s.state,
		ConnectionState: s.connState,
		Status:          s.status,
		Payload:         s.outBlob,
		GatherComplete:  s.gatherDone,
	}
	s.mu.Unlock()

	snap.CandidateCount = len(s.acc.Records())
	snap.RemoteCamera = trackInfos(s.router.Bucket(domain.BucketCamera))
	snap.RemoteScreen = trackInfos(s.router.Bucket(domain.BucketScreen))
	snap.CameraActive = s.media.CameraActive()
	snap.ScreenActive = s.media.ScreenActive()
	snap.MicEnabled = s.media.MicEnabled()
	snap.VideoEnabled = s.media.VideoEnabled()
	snap.Channel = s.chat.State()
	snap.Chat = s.chat.Messages()
	return snap
}

func trackInfos(tracks []core.RemoteTrack) []TrackInfo {
	out := make([]TrackInfo, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, TrackInfo{ID: t.ID(), Kind: string(t.Kind())})
	}
	return out
}

func (s *Session) enqueue(ev core.Event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

func (s *Session) run() {
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.events:
			s.handle(ev)
		}
	}
}

func (s *Session) handle(ev core.Event) {
	switch e := ev.(type) {
	case core.CandidateEvent:
		s.acc.Add(e.Candidate)
		s.notify()
	case core.TrackEvent:
		s.router.Classify(e.Track)
		s.notify()
	case core.ChannelEvent:
		// Responder path: whatever channel the transport delivers gets
		// wired to the same lifecycle hooks as a locally created one.
		s.log.Info().Str("module", "session").Str("label", e.Channel.Label()).Msg("inbound side channel")
		s.chat.Adopt(e.Channel)
	case core.StateEvent:
		s.projectConnState(e.State)
	}
}

// projectConnState maps the transport's connectivity signal onto the
// user-visible status. A passive projection; it drives no operation.
func (s *Session) projectConnState(st webrtc.PeerConnectionState) {
	s.mu.Lock()
	s.connState = st.String()
	switch st {
	case webrtc.PeerConnectionStateConnected:
		if s.state != StateClosed {
			s.state = StateConnected
			s.status = "connected"
		}
	case webrtc.PeerConnectionStateDisconnected:
		if s.state != StateClosed {
			s.state = StateDisconnected
			s.status = "peer connection lost"
		}
	case webrtc.PeerConnectionStateFailed:
		if s.state != StateClosed {
			s.state = StateFailed
			s.status = "peer connection failed, reset to retry"
		}
	case webrtc.PeerConnectionStateClosed:
		s.state = StateClosed
	}
	s.mu.Unlock()
	s.log.Info().Str("module", "session").Str("peer_connection_state", st.String()).Msg("connection state")
	s.notify()
}

func (s *Session) enterGathering() {
	s.mu.Lock()
	s.state = StateGathering
	s.gatherDone = false
	s.status = "gathering network candidates"
	s.mu.Unlock()
	s.notify()
}

func (s *Session) waitGathering(ctx context.Context) error {
	if s.cfg.GatherTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.GatherTimeout)
		defer cancel()
	}
	if err := s.transport.WaitForGathering(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.gatherDone = true
	s.mu.Unlock()
	return nil
}

// exportLocal reads back the committed local description, which now
// carries the gathered candidates, and encodes it for transfer.
func (s *Session) exportLocal(kind domain.PayloadKind, readyStatus string) (string, error) {
	desc := s.transport.LocalDescription()
	if desc == nil {
		return "", s.failNegotiation("transport lost the local description", nil)
	}
	payload := domain.NegotiationPayload{Kind: kind, SDP: desc.SDP}
	blob, err := codec.Encode(payload)
	if err != nil {
		return "", s.failNegotiation("could not encode the payload", err)
	}

	s.mu.Lock()
	s.localDesc = &payload
	s.outBlob = blob
	s.state = StateLocalReady
	s.status = readyStatus
	s.mu.Unlock()
	s.notify()
	return blob, nil
}

func (s *Session) failNegotiation(status string, err error) error {
	s.mu.Lock()
	s.state = StateFailed
	s.status = status
	s.mu.Unlock()
	s.log.Error().Err(err).Str("module", "session").Msg(status)
	s.notify()
	if err == nil {
		return ErrNotReady
	}
	return err
}

func (s *Session) setStatus(status string) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
	s.notify()
}

func (s *Session) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}
