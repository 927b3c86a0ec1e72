package app

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/elchatico/dualview/internal/core"
	"github.com/elchatico/dualview/internal/domain"
)

// ChannelState is the side-channel lifecycle.
type ChannelState string

const (
	ChannelClosed     ChannelState = "closed"
	ChannelConnecting ChannelState = "connecting"
	ChannelOpen       ChannelState = "open"
)

// SideChannelManager owns the ordered reliable message channel and the
// chat log built on top of it. The channel arrives by one of two paths:
// created locally before the offer (initiator) or delivered by the
// transport after the remote offer was applied (responder). Both paths
// wire the same lifecycle hooks.
type SideChannelManager struct {
	mu       sync.Mutex
	log      zerolog.Logger
	ch       core.SideChannel
	state    ChannelState
	seq      uint64
	messages []domain.ChatMessage
	onChange func()
}

func NewSideChannelManager(log zerolog.Logger, onChange func()) *SideChannelManager {
	return &SideChannelManager{
		log:      log,
		state:    ChannelClosed,
		onChange: onChange,
	}
}

// Adopt wires a channel object to the lifecycle hooks and enters
// Connecting. The initiator calls this optimistically at creation time;
// the responder calls it when the inbound channel event fires.
func (m *SideChannelManager) Adopt(ch core.SideChannel) {
	m.mu.Lock()
	if m.ch != nil {
		// Stale channel from an abandoned round; the new one wins.
		_ = m.ch.Close()
	}
	m.ch = ch
	m.state = ChannelConnecting
	m.mu.Unlock()

	ch.OnOpen(func() {
		m.mu.Lock()
		m.state = ChannelOpen
		m.mu.Unlock()
		m.log.Info().Str("module", "sidechannel").Str("label", ch.Label()).Msg("channel open")
		m.notify()
	})
	ch.OnClose(func() {
		m.mu.Lock()
		m.state = ChannelClosed
		m.mu.Unlock()
		m.log.Info().Str("module", "sidechannel").Str("label", ch.Label()).Msg("channel closed")
		m.notify()
	})
	ch.OnMessage(func(text string) {
		m.append(text, domain.OriginRemote)
	})
	m.notify()
}

// Send transmits a chat message when the channel is open. Attempts in any
// other state are dropped without error; the message is simply not
// enqueued. The drop is logged so it stays observable.
func (m *SideChannelManager) Send(text string) bool {
	m.mu.Lock()
	ch, state := m.ch, m.state
	m.mu.Unlock()

	if state != ChannelOpen || ch == nil {
		m.log.Debug().Str("module", "sidechannel").Str("state", string(state)).Msg("dropping chat send, channel not open")
		return false
	}
	if err := ch.Send(text); err != nil {
		m.log.Error().Err(err).Str("module", "sidechannel").Msg("chat send failed")
		return false
	}
	m.append(text, domain.OriginLocal)
	return true
}

// State returns the current lifecycle state.
func (m *SideChannelManager) State() ChannelState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Messages returns a copy of the chat log in append order.
func (m *SideChannelManager) Messages() []domain.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ChatMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

// Close tears the channel down. Safe to call in any state.
func (m *SideChannelManager) Close() {
	m.mu.Lock()
	ch := m.ch
	m.ch = nil
	m.state = ChannelClosed
	m.mu.Unlock()
	if ch != nil {
		_ = ch.Close()
	}
}

func (m *SideChannelManager) append(text string, origin domain.ChatOrigin) {
	m.mu.Lock()
	m.seq++
	m.messages = append(m.messages, domain.ChatMessage{
		ID:     uuid.NewString(),
		Seq:    m.seq,
		Text:   text,
		Origin: origin,
	})
	m.mu.Unlock()
	m.notify()
}

func (m *SideChannelManager) notify() {
	if m.onChange != nil {
		m.onChange()
	}
}
