package core

// SideChannel is the ordered reliable message channel multiplexed over the
// transport, used for text chat. Created locally on the initiator path or
// received via a ChannelEvent on the responder path; either way the same
// lifecycle hooks apply.
type SideChannel interface {
	Label() string
	Send(text string) error
	OnOpen(func())
	OnClose(func())
	OnMessage(func(text string))
	Close() error
}
