package core

import (
	"context"

	"github.com/pion/webrtc/v4"
)

// TrackKind is the media kind of a track.
type TrackKind string

const (
	TrackAudio TrackKind = "audio"
	TrackVideo TrackKind = "video"
)

// RemoteTrack is one negotiated inbound media track.
type RemoteTrack interface {
	ID() string
	Kind() TrackKind
	StreamID() string
}

// LocalTrack is one locally captured media track. SetEnabled gates the
// local encode/transmit activity only; it never touches negotiation.
type LocalTrack interface {
	ID() string
	Kind() TrackKind
	Enabled() bool
	SetEnabled(bool)
	// Unwrap exposes the pion track the transport binds with AddTrack.
	Unwrap() webrtc.TrackLocal
	Close() error
}

// Sender is an opaque handle for an attached local track.
type Sender interface {
	Kind() TrackKind
}

// Transport is the opaque real-time capability the session configures and
// observes. Owned exclusively by the Session; no other component may hold
// a live reference past a Reset.
type Transport interface {
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetLocalDescription(webrtc.SessionDescription) error
	SetRemoteDescription(webrtc.SessionDescription) error
	LocalDescription() *webrtc.SessionDescription

	AddICECandidate(webrtc.ICECandidateInit) error
	// WaitForGathering blocks until the current gathering round completes
	// or ctx is done. The underlying subscription is single-fire and is
	// released as soon as it triggers.
	WaitForGathering(ctx context.Context) error

	// CreateSideChannel opens the ordered reliable message channel on the
	// initiator path, before the offer is produced.
	CreateSideChannel(label string) (SideChannel, error)

	AddTrack(LocalTrack) (Sender, error)
	RemoveTrack(Sender) error

	// OnEvent installs the single event sink. All transport callbacks are
	// delivered through it as typed events; the session dispatches them on
	// one logical thread.
	OnEvent(func(Event))

	Close() error
}
