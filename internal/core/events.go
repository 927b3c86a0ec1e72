package core

import "github.com/pion/webrtc/v4"

// Event is one transport callback, reified so a single dispatcher can
// consume them in order instead of scattering closures.
type Event interface {
	isEvent()
}

// CandidateEvent carries one locally gathered ICE candidate.
type CandidateEvent struct {
	Candidate webrtc.ICECandidateInit
}

// TrackEvent carries one inbound negotiated media track.
type TrackEvent struct {
	Track RemoteTrack
}

// ChannelEvent carries an inbound side channel (responder path).
type ChannelEvent struct {
	Channel SideChannel
}

// StateEvent carries a transport connectivity transition.
type StateEvent struct {
	State webrtc.PeerConnectionState
}

func (CandidateEvent) isEvent() {}
func (TrackEvent) isEvent()     {}
func (ChannelEvent) isEvent()   {}
func (StateEvent) isEvent()     {}
