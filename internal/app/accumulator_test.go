package app

import (
	"encoding/json"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/require"

	"github.com/elchatico/dualview/internal/domain"
)

func candidate(c string) webrtc.ICECandidateInit {
	mid := "0"
	idx := uint16(0)
	return webrtc.ICECandidateInit{Candidate: c, SDPMid: &mid, SDPMLineIndex: &idx}
}

func TestAccumulatorPreservesArrivalOrder(t *testing.T) {
	a := NewAccumulator()
	a.Add(candidate("c1"))
	a.Add(candidate("c2"))
	a.Add(candidate("c3"))

	recs := a.Records()
	require.Len(t, recs, 3)
	require.Equal(t, "c1", recs[0].Candidate)
	require.Equal(t, "c2", recs[1].Candidate)
	require.Equal(t, "c3", recs[2].Candidate)
}

func TestAccumulatorKeepsDuplicates(t *testing.T) {
	a := NewAccumulator()
	a.Add(candidate("c1"))
	a.Add(candidate("c1"))

	require.Len(t, a.Records(), 2)
}

func TestAccumulatorResetStartsFreshRound(t *testing.T) {
	a := NewAccumulator()
	a.Add(candidate("c1"))
	a.Add(candidate("c2"))

	a.Reset()
	a.Add(candidate("c4"))

	recs := a.Records()
	require.Len(t, recs, 1)
	require.Equal(t, "c4", recs[0].Candidate)
}

func TestAccumulatorExportRoundTrips(t *testing.T) {
	a := NewAccumulator()
	a.Add(candidate("c1"))
	a.Add(candidate("c2"))

	out, err := a.Export()
	require.NoError(t, err)

	var recs []domain.CandidateRecord
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	require.Len(t, recs, 2)
	require.Equal(t, "c1", recs[0].Candidate)
}

func TestParseCandidateListOrderAndSkips(t *testing.T) {
	in := `[{"candidate":"c1","sdpMid":"0"},null,{"candidate":""},{"candidate":"c2"}]`

	list, err := ParseCandidateList(in)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "c1", list[0].Candidate)
	require.Equal(t, "c2", list[1].Candidate)
}

func TestParseCandidateListRejectsNonSequence(t *testing.T) {
	for _, in := range []string{``, `{}`, `"c1"`, `42`, `null`, `  null  `, `not json`} {
		_, err := ParseCandidateList(in)
		require.ErrorIs(t, err, ErrIngest, "input %q", in)
	}
}

func TestParseCandidateListEmptySequence(t *testing.T) {
	list, err := ParseCandidateList(`[]`)
	require.NoError(t, err)
	require.Empty(t, list)
}
