package rtc

import (
	"context"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/elchatico/dualview/internal/core"
)

// Host candidates only; the tests must not depend on reaching a STUN
// server.
func newTestTransport(t *testing.T) *Transport {
	t.Helper()
	tr, err := New(Config{}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestGatheringCompletesAndLandsInDescription(t *testing.T) {
	tr := newTestTransport(t)

	candidates := make(chan webrtc.ICECandidateInit, 16)
	tr.OnEvent(func(ev core.Event) {
		if ce, ok := ev.(core.CandidateEvent); ok {
			candidates <- ce.Candidate
		}
	})

	// A data channel gives the offer an m-line to gather for.
	_, err := tr.CreateSideChannel("chat")
	require.NoError(t, err)

	offer, err := tr.CreateOffer()
	require.NoError(t, err)
	require.NoError(t, tr.SetLocalDescription(offer))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, tr.WaitForGathering(ctx))

	select {
	case <-candidates:
	default:
		t.Fatal("no candidate events before gathering completed")
	}

	// The committed description carries the gathered candidates, which is
	// what makes single-blob exchange work.
	desc := tr.LocalDescription()
	require.NotNil(t, desc)
	require.Contains(t, desc.SDP, "a=candidate")
}

func TestWaitForGatheringHonorsContext(t *testing.T) {
	tr := newTestTransport(t)

	// No local description committed, so gathering never starts.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, tr.WaitForGathering(ctx), context.DeadlineExceeded)
}

func TestCloseIsIdempotent(t *testing.T) {
	tr, err := New(Config{}, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
}

func TestRemoveTrackRejectsForeignSender(t *testing.T) {
	tr := newTestTransport(t)

	require.Error(t, tr.RemoveTrack(foreignSender{}))
}

type foreignSender struct{}

func (foreignSender) Kind() core.TrackKind { return core.TrackAudio }

// TestPairConnectsOverLocalCandidates runs the full single-blob exchange
// between two transports in-process: offer with embedded candidates one
// way, answer the other way, then a message over the side channel.
func TestPairConnectsOverLocalCandidates(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping connectivity test in short mode")
	}

	alice := newTestTransport(t)
	bob := newTestTransport(t)

	aliceConnected := make(chan struct{})
	alice.OnEvent(func(ev core.Event) {
		if se, ok := ev.(core.StateEvent); ok && se.State == webrtc.PeerConnectionStateConnected {
			select {
			case <-aliceConnected:
			default:
				close(aliceConnected)
			}
		}
	})

	inbound := make(chan core.SideChannel, 1)
	bob.OnEvent(func(ev core.Event) {
		if ce, ok := ev.(core.ChannelEvent); ok {
			inbound <- ce.Channel
		}
	})

	ch, err := alice.CreateSideChannel("chat")
	require.NoError(t, err)
	opened := make(chan struct{})
	ch.OnOpen(func() { close(opened) })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	offer, err := alice.CreateOffer()
	require.NoError(t, err)
	require.NoError(t, alice.SetLocalDescription(offer))
	require.NoError(t, alice.WaitForGathering(ctx))

	require.NoError(t, bob.SetRemoteDescription(*alice.LocalDescription()))
	answer, err := bob.CreateAnswer()
	require.NoError(t, err)
	require.NoError(t, bob.SetLocalDescription(answer))
	require.NoError(t, bob.WaitForGathering(ctx))

	require.NoError(t, alice.SetRemoteDescription(*bob.LocalDescription()))

	select {
	case <-aliceConnected:
	case <-ctx.Done():
		t.Fatal("peers did not connect")
	}

	var remote core.SideChannel
	select {
	case remote = <-inbound:
	case <-ctx.Done():
		t.Fatal("inbound side channel never arrived")
	}
	require.Equal(t, "chat", remote.Label())

	received := make(chan string, 1)
	remote.OnMessage(func(text string) { received <- text })

	select {
	case <-opened:
	case <-ctx.Done():
		t.Fatal("side channel never opened")
	}
	require.NoError(t, ch.Send("ping"))

	select {
	case got := <-received:
		require.Equal(t, "ping", got)
	case <-ctx.Done():
		t.Fatal("message never delivered")
	}
}

func TestChannelLabelSurvivesWrapping(t *testing.T) {
	tr := newTestTransport(t)

	ch, err := tr.CreateSideChannel("side")
	require.NoError(t, err)
	require.Equal(t, "side", ch.Label())
}
