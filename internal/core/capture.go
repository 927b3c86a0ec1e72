package core

import "context"

// CameraCapture is one acquired camera+microphone pair. The two tracks are
// acquired as a single atomic request and released together.
type CameraCapture interface {
	AudioTrack() LocalTrack
	VideoTrack() LocalTrack
	Close() error
}

// ScreenCapture is one acquired screen capture. Screen captures are always
// video-only; the track classification heuristic on the receiving side
// depends on this.
type ScreenCapture interface {
	VideoTrack() LocalTrack
	// OnEnded registers the termination hook fired when the capture ends
	// outside our control, so external stops converge on the same teardown
	// as a manual stop.
	OnEnded(func())
	Close() error
}

// CaptureProvider acquires local capture devices. Implemented by an
// adapter; the session core never talks to devices directly.
type CaptureProvider interface {
	AcquireCamera(ctx context.Context) (CameraCapture, error)
	AcquireScreen(ctx context.Context) (ScreenCapture, error)
}

// Clipboard is a write-only, best-effort clipboard sink.
type Clipboard interface {
	Write(text string) error
}
