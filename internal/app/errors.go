package app

import "errors"

var (
	// ErrNotReady means an operation was invoked from a state that does
	// not permit it.
	ErrNotReady = errors.New("session is not ready for negotiation")
	// ErrNoOffer means Create-Answer was invoked with an empty paste.
	ErrNoOffer = errors.New("paste the offer first")
	// ErrNoAnswer means Accept-Answer was invoked with an empty paste.
	ErrNoAnswer = errors.New("paste the answer first")
	// ErrWrongKind means the pasted payload decoded fine but is the wrong
	// half of the handshake.
	ErrWrongKind = errors.New("payload is the wrong kind for this step")
	// ErrIngest means a candidate list input was not a sequence.
	ErrIngest = errors.New("candidate list must be a JSON array")
)
