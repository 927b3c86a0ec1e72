package domain

// PayloadKind is the half of the handshake a payload carries.
type PayloadKind string

const (
	KindOffer  PayloadKind = "offer"
	KindAnswer PayloadKind = "answer"
)

// NegotiationPayload is one session description as it crosses the system
// boundary. Immutable once produced; the peer applies it exactly once.
type NegotiationPayload struct {
	Kind PayloadKind `json:"type"`
	SDP  string      `json:"sdp"`
}

// Valid reports whether the payload is structurally usable.
func (p NegotiationPayload) Valid() bool {
	return (p.Kind == KindOffer || p.Kind == KindAnswer) && p.SDP != ""
}
