package app

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/elchatico/dualview/internal/domain"
)

// Accumulator collects locally gathered ICE candidates in arrival order.
// It never reorders and never deduplicates; duplicates are harmless. The
// buffer belongs to a single gathering round and is cleared exactly once
// at the start of each round.
type Accumulator struct {
	mu      sync.Mutex
	records []domain.CandidateRecord
}

func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Add appends one candidate in arrival order.
func (a *Accumulator) Add(ci webrtc.ICECandidateInit) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, domain.CandidateRecord{
		Candidate:     ci.Candidate,
		SDPMid:        ci.SDPMid,
		SDPMLineIndex: ci.SDPMLineIndex,
	})
}

// Reset clears the buffer for a new gathering round.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = nil
}

// Records returns a copy of the buffer in arrival order.
func (a *Accumulator) Records() []domain.CandidateRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.CandidateRecord, len(a.records))
	copy(out, a.records)
	return out
}

// Export serializes the accumulated sequence for out-of-band transfer.
func (a *Accumulator) Export() (string, error) {
	recs := a.Records()
	b, err := json.Marshal(recs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseCandidateList parses an externally supplied candidate sequence.
// A non-sequence input is a hard ErrIngest; null and empty entries are
// skipped rather than rejected.
func ParseCandidateList(in string) ([]webrtc.ICECandidateInit, error) {
	trimmed := strings.TrimSpace(in)
	// json.Unmarshal maps a bare null onto a nil slice without error;
	// only an actual array counts as a sequence.
	if !strings.HasPrefix(trimmed, "[") {
		return nil, ErrIngest
	}
	var raw []*domain.CandidateRecord
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, ErrIngest
	}
	out := make([]webrtc.ICECandidateInit, 0, len(raw))
	for _, rec := range raw {
		if rec == nil || rec.Empty() {
			continue
		}
		out = append(out, webrtc.ICECandidateInit{
			Candidate:     rec.Candidate,
			SDPMid:        rec.SDPMid,
			SDPMLineIndex: rec.SDPMLineIndex,
		})
	}
	return out, nil
}
