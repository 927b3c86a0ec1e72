package domain

// CandidateRecord is one gathered ICE candidate, passed through from the
// transport unmodified. Arrival order is significant and preserved.
type CandidateRecord struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

// Empty reports whether the record carries nothing applicable.
func (c CandidateRecord) Empty() bool {
	return c.Candidate == ""
}
