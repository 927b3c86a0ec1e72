package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/elchatico/dualview/internal/core"
)

// MediaControl acquires and releases local capture devices and toggles
// their transmit activity. It owns the local buckets and their senders;
// transport-level negotiation is never touched here, so toggling never
// renegotiates.
type MediaControl struct {
	mu        sync.Mutex
	log       zerolog.Logger
	transport core.Transport
	provider  core.CaptureProvider
	onChange  func()

	camera       core.CameraCapture
	camSenders   []core.Sender
	micEnabled   bool
	videoEnabled bool

	screen       core.ScreenCapture
	screenSender core.Sender
}

func NewMediaControl(log zerolog.Logger, transport core.Transport, provider core.CaptureProvider, onChange func()) *MediaControl {
	return &MediaControl{
		log:          log,
		transport:    transport,
		provider:     provider,
		onChange:     onChange,
		micEnabled:   true,
		videoEnabled: true,
	}
}

// StartCamera acquires one audio and one video capture source as a single
// atomic request and attaches them. Any previously attached camera pair is
// removed first; there are never two senders of the same kind.
func (m *MediaControl) StartCamera(ctx context.Context) error {
	cap, err := m.provider.AcquireCamera(ctx)
	if err != nil {
		return fmt.Errorf("camera acquisition: %w", err)
	}

	m.detachCamera()

	var senders []core.Sender
	for _, track := range []core.LocalTrack{cap.AudioTrack(), cap.VideoTrack()} {
		sender, err := m.transport.AddTrack(track)
		if err != nil {
			for _, s := range senders {
				_ = m.transport.RemoveTrack(s)
			}
			_ = cap.Close()
			return fmt.Errorf("attach %s track: %w", track.Kind(), err)
		}
		senders = append(senders, sender)
	}

	m.mu.Lock()
	m.camera = cap
	m.camSenders = senders
	m.micEnabled = true
	m.videoEnabled = true
	m.mu.Unlock()

	m.log.Info().Str("module", "media").Msg("camera started")
	m.notify()
	return nil
}

// StopCamera stops all camera/mic tracks, detaches their senders and
// resets the toggle flags to their defaults. Idempotent.
func (m *MediaControl) StopCamera() {
	if m.detachCamera() {
		m.log.Info().Str("module", "media").Msg("camera stopped")
		m.notify()
	}
}

// ToggleMic flips transmit activity on the acquired audio track and
// reports the new value. No-op without an active camera.
func (m *MediaControl) ToggleMic() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.camera == nil {
		return false
	}
	m.micEnabled = !m.micEnabled
	m.camera.AudioTrack().SetEnabled(m.micEnabled)
	return m.micEnabled
}

// ToggleVideo flips transmit activity on the acquired video track and
// reports the new value. No-op without an active camera.
func (m *MediaControl) ToggleVideo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.camera == nil {
		return false
	}
	m.videoEnabled = !m.videoEnabled
	m.camera.VideoTrack().SetEnabled(m.videoEnabled)
	return m.videoEnabled
}

// StartScreenShare acquires a video-only capture source. Screen captures
// never carry audio; the peer's track classification depends on that. An
// externally triggered end of capture converges on the same teardown as a
// manual stop.
func (m *MediaControl) StartScreenShare(ctx context.Context) error {
	cap, err := m.provider.AcquireScreen(ctx)
	if err != nil {
		return fmt.Errorf("screen acquisition: %w", err)
	}

	m.detachScreen()

	sender, err := m.transport.AddTrack(cap.VideoTrack())
	if err != nil {
		_ = cap.Close()
		return fmt.Errorf("attach screen track: %w", err)
	}

	m.mu.Lock()
	m.screen = cap
	m.screenSender = sender
	m.mu.Unlock()

	// Registered only after the capture is committed, so a feed that died
	// in the meantime tears down the committed state instead of a nil one.
	cap.OnEnded(func() {
		m.log.Info().Str("module", "media").Msg("screen capture ended externally")
		m.StopScreenShare()
	})

	m.log.Info().Str("module", "media").Msg("screen share started")
	m.notify()
	return nil
}

// StopScreenShare detaches and stops the screen sender only. Idempotent.
func (m *MediaControl) StopScreenShare() {
	if m.detachScreen() {
		m.log.Info().Str("module", "media").Msg("screen share stopped")
		m.notify()
	}
}

// ReleaseAll stops everything. Used by Reset; never fails.
func (m *MediaControl) ReleaseAll() {
	m.detachCamera()
	m.detachScreen()
}

// CameraActive reports whether a camera pair is attached.
func (m *MediaControl) CameraActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.camera != nil
}

// ScreenActive reports whether a screen capture is attached.
func (m *MediaControl) ScreenActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.screen != nil
}

// MicEnabled reports the current audio toggle.
func (m *MediaControl) MicEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.micEnabled
}

// VideoEnabled reports the current video toggle.
func (m *MediaControl) VideoEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.videoEnabled
}

// detachCamera removes senders and releases the capture outside the lock,
// so an adapter callback re-entering media control cannot deadlock.
func (m *MediaControl) detachCamera() bool {
	m.mu.Lock()
	cap := m.camera
	senders := m.camSenders
	m.camera = nil
	m.camSenders = nil
	m.micEnabled = true
	m.videoEnabled = true
	m.mu.Unlock()

	if cap == nil {
		return false
	}
	for _, s := range senders {
		if err := m.transport.RemoveTrack(s); err != nil {
			m.log.Warn().Err(err).Str("module", "media").Msg("remove camera sender")
		}
	}
	_ = cap.Close()
	return true
}

func (m *MediaControl) detachScreen() bool {
	m.mu.Lock()
	cap := m.screen
	sender := m.screenSender
	m.screen = nil
	m.screenSender = nil
	m.mu.Unlock()

	if cap == nil {
		return false
	}
	if sender != nil {
		if err := m.transport.RemoveTrack(sender); err != nil {
			m.log.Warn().Err(err).Str("module", "media").Msg("remove screen sender")
		}
	}
	_ = cap.Close()
	return true
}

func (m *MediaControl) notify() {
	if m.onChange != nil {
		m.onChange()
	}
}
