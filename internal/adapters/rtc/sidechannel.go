package rtc

import "github.com/pion/webrtc/v4"

// sideChannel adapts a pion DataChannel to core.SideChannel.
type sideChannel struct {
	dc *webrtc.DataChannel
}

func (c *sideChannel) Label() string { return c.dc.Label() }

func (c *sideChannel) Send(text string) error {
	return c.dc.SendText(text)
}

func (c *sideChannel) OnOpen(fn func()) { c.dc.OnOpen(fn) }

func (c *sideChannel) OnClose(fn func()) { c.dc.OnClose(fn) }

func (c *sideChannel) OnMessage(fn func(string)) {
	c.dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		fn(string(msg.Data))
	})
}

func (c *sideChannel) Close() error { return c.dc.Close() }
