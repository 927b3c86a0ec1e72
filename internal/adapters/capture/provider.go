// Package capture implements the core.CaptureProvider interface over
// local RTP feeds: an external encoder (ffmpeg, gstreamer) pushes RTP to
// the configured UDP ports and each feed becomes a local track.
package capture

import (
	"context"
	"errors"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/elchatico/dualview/internal/core"
)

// Config names the UDP feed addresses.
type Config struct {
	CameraAudioAddr string
	CameraVideoAddr string
	ScreenVideoAddr string
}

// Provider acquires capture feeds on demand.
type Provider struct {
	cfg Config
	log zerolog.Logger
}

func NewProvider(cfg Config, log zerolog.Logger) *Provider {
	return &Provider{cfg: cfg, log: log}
}

// AcquireCamera opens the audio and video feeds as one atomic request:
// if either socket cannot be bound, neither is kept. Both tracks share a
// stream so the peer classifies them as camera.
func (p *Provider) AcquireCamera(_ context.Context) (core.CameraCapture, error) {
	audio, err := newFeedTrack(feedSpec{
		addr:     p.cfg.CameraAudioAddr,
		mime:     webrtc.MimeTypeOpus,
		clock:    48000,
		kind:     core.TrackAudio,
		id:       "camera-audio",
		streamID: "dualview-camera",
	}, p.log)
	if err != nil {
		return nil, err
	}
	video, err := newFeedTrack(feedSpec{
		addr:     p.cfg.CameraVideoAddr,
		mime:     webrtc.MimeTypeVP8,
		clock:    90000,
		kind:     core.TrackVideo,
		id:       "camera-video",
		streamID: "dualview-camera",
	}, p.log)
	if err != nil {
		_ = audio.Close()
		return nil, err
	}
	return &cameraCapture{audio: audio, video: video}, nil
}

// AcquireScreen opens the screen feed. Video only, its own stream; the
// peer's classification heuristic requires screen shares to carry no
// audio.
func (p *Provider) AcquireScreen(_ context.Context) (core.ScreenCapture, error) {
	video, err := newFeedTrack(feedSpec{
		addr:     p.cfg.ScreenVideoAddr,
		mime:     webrtc.MimeTypeVP8,
		clock:    90000,
		kind:     core.TrackVideo,
		id:       "screen-video",
		streamID: "dualview-screen",
	}, p.log)
	if err != nil {
		return nil, err
	}
	return &screenCapture{video: video}, nil
}

type cameraCapture struct {
	audio *feedTrack
	video *feedTrack
}

func (c *cameraCapture) AudioTrack() core.LocalTrack { return c.audio }

func (c *cameraCapture) VideoTrack() core.LocalTrack { return c.video }

func (c *cameraCapture) Close() error {
	return errors.Join(c.audio.Close(), c.video.Close())
}

type screenCapture struct {
	video *feedTrack
}

func (s *screenCapture) VideoTrack() core.LocalTrack { return s.video }

func (s *screenCapture) OnEnded(fn func()) { s.video.setOnEnded(fn) }

func (s *screenCapture) Close() error { return s.video.Close() }
