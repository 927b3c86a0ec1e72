package app

import (
	"context"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/elchatico/dualview/internal/core"
)

// mockTransport records calls for verification and lets tests emit
// transport events by hand.
type mockTransport struct {
	mu sync.Mutex

	sink func(core.Event)

	offerErr     error
	answerErr    error
	setLocalErr  error
	setRemoteErr error
	gatherErr    error
	channelErr   error
	addTrackErr  error

	localDesc  *webrtc.SessionDescription
	remoteDesc *webrtc.SessionDescription

	channels   []*mockChannel
	candidates []webrtc.ICECandidateInit
	added      []core.LocalTrack
	removed    []core.Sender
	closed     bool
}

func newMockTransport() *mockTransport { return &mockTransport{} }

func (m *mockTransport) CreateOffer() (webrtc.SessionDescription, error) {
	if m.offerErr != nil {
		return webrtc.SessionDescription{}, m.offerErr
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0\r\no=offer\r\n"}, nil
}

func (m *mockTransport) CreateAnswer() (webrtc.SessionDescription, error) {
	if m.answerErr != nil {
		return webrtc.SessionDescription{}, m.answerErr
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "v=0\r\no=answer\r\n"}, nil
}

func (m *mockTransport) SetLocalDescription(d webrtc.SessionDescription) error {
	if m.setLocalErr != nil {
		return m.setLocalErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.localDesc = &d
	return nil
}

func (m *mockTransport) SetRemoteDescription(d webrtc.SessionDescription) error {
	if m.setRemoteErr != nil {
		return m.setRemoteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remoteDesc = &d
	return nil
}

func (m *mockTransport) LocalDescription() *webrtc.SessionDescription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.localDesc
}

func (m *mockTransport) AddICECandidate(ci webrtc.ICECandidateInit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidates = append(m.candidates, ci)
	return nil
}

func (m *mockTransport) WaitForGathering(context.Context) error { return m.gatherErr }

func (m *mockTransport) CreateSideChannel(label string) (core.SideChannel, error) {
	if m.channelErr != nil {
		return nil, m.channelErr
	}
	ch := &mockChannel{label: label}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, ch)
	return ch, nil
}

func (m *mockTransport) AddTrack(t core.LocalTrack) (core.Sender, error) {
	if m.addTrackErr != nil {
		return nil, m.addTrackErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.added = append(m.added, t)
	return &mockSender{kind: t.Kind()}, nil
}

func (m *mockTransport) RemoveTrack(s core.Sender) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, s)
	return nil
}

func (m *mockTransport) OnEvent(fn func(core.Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink = fn
}

func (m *mockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockTransport) emit(ev core.Event) {
	m.mu.Lock()
	sink := m.sink
	m.mu.Unlock()
	if sink != nil {
		sink(ev)
	}
}

func (m *mockTransport) lastChannel() *mockChannel {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.channels) == 0 {
		return nil
	}
	return m.channels[len(m.channels)-1]
}

func (m *mockTransport) candidateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.candidates)
}

func (m *mockTransport) wasClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

type mockSender struct {
	kind core.TrackKind
}

func (s *mockSender) Kind() core.TrackKind { return s.kind }

// mockChannel implements core.SideChannel; tests drive the lifecycle by
// firing the recorded hooks.
type mockChannel struct {
	mu        sync.Mutex
	label     string
	sendErr   error
	sent      []string
	closed    bool
	onOpen    func()
	onClose   func()
	onMessage func(string)
}

func (c *mockChannel) Label() string { return c.label }

func (c *mockChannel) Send(text string) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, text)
	return nil
}

func (c *mockChannel) OnOpen(fn func())         { c.mu.Lock(); c.onOpen = fn; c.mu.Unlock() }
func (c *mockChannel) OnClose(fn func())        { c.mu.Lock(); c.onClose = fn; c.mu.Unlock() }
func (c *mockChannel) OnMessage(fn func(string)) { c.mu.Lock(); c.onMessage = fn; c.mu.Unlock() }

func (c *mockChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *mockChannel) fireOpen() {
	c.mu.Lock()
	fn := c.onOpen
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (c *mockChannel) fireClose() {
	c.mu.Lock()
	fn := c.onClose
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (c *mockChannel) fireMessage(text string) {
	c.mu.Lock()
	fn := c.onMessage
	c.mu.Unlock()
	if fn != nil {
		fn(text)
	}
}

func (c *mockChannel) sentMessages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	copy(out, c.sent)
	return out
}

// mockRemoteTrack is a bare remote track identity.
type mockRemoteTrack struct {
	id     string
	kind   core.TrackKind
	stream string
}

func (t mockRemoteTrack) ID() string           { return t.id }
func (t mockRemoteTrack) Kind() core.TrackKind { return t.kind }
func (t mockRemoteTrack) StreamID() string     { return t.stream }

// mockLocalTrack backs the capture mocks.
type mockLocalTrack struct {
	mu      sync.Mutex
	id      string
	kind    core.TrackKind
	enabled bool
	closed  bool
}

func newMockLocalTrack(id string, kind core.TrackKind) *mockLocalTrack {
	return &mockLocalTrack{id: id, kind: kind, enabled: true}
}

func (t *mockLocalTrack) ID() string               { return t.id }
func (t *mockLocalTrack) Kind() core.TrackKind     { return t.kind }
func (t *mockLocalTrack) Unwrap() webrtc.TrackLocal { return nil }

func (t *mockLocalTrack) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

func (t *mockLocalTrack) SetEnabled(v bool) {
	t.mu.Lock()
	t.enabled = v
	t.mu.Unlock()
}

func (t *mockLocalTrack) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return nil
}

type mockCamera struct {
	audio  *mockLocalTrack
	video  *mockLocalTrack
	closed bool
}

func (c *mockCamera) AudioTrack() core.LocalTrack { return c.audio }
func (c *mockCamera) VideoTrack() core.LocalTrack { return c.video }
func (c *mockCamera) Close() error                { c.closed = true; return nil }

type mockScreen struct {
	video *mockLocalTrack
	// endOnRegister mimics a feed that died before the hook was
	// registered; the real provider fires the hook immediately then.
	endOnRegister bool
	onEnded       func()
	closed        bool
}

func (s *mockScreen) VideoTrack() core.LocalTrack { return s.video }

func (s *mockScreen) OnEnded(fn func()) {
	s.onEnded = fn
	if s.endOnRegister && fn != nil {
		fn()
	}
}

func (s *mockScreen) Close() error { s.closed = true; return nil }

type mockProvider struct {
	mu               sync.Mutex
	camErr           error
	screenErr        error
	screenEndsAtOnce bool
	cameras          []*mockCamera
	screens          []*mockScreen
}

func (p *mockProvider) AcquireCamera(context.Context) (core.CameraCapture, error) {
	if p.camErr != nil {
		return nil, p.camErr
	}
	cam := &mockCamera{
		audio: newMockLocalTrack("mic", core.TrackAudio),
		video: newMockLocalTrack("cam", core.TrackVideo),
	}
	p.mu.Lock()
	p.cameras = append(p.cameras, cam)
	p.mu.Unlock()
	return cam, nil
}

func (p *mockProvider) AcquireScreen(context.Context) (core.ScreenCapture, error) {
	if p.screenErr != nil {
		return nil, p.screenErr
	}
	scr := &mockScreen{
		video:         newMockLocalTrack("screen", core.TrackVideo),
		endOnRegister: p.screenEndsAtOnce,
	}
	p.mu.Lock()
	p.screens = append(p.screens, scr)
	p.mu.Unlock()
	return scr, nil
}
