package domain

// ChatOrigin tells which side of the session produced a message.
type ChatOrigin string

const (
	OriginLocal  ChatOrigin = "local"
	OriginRemote ChatOrigin = "remote"
)

// ChatMessage is one entry of the append-only chat log. The log is not
// persisted across Reset.
type ChatMessage struct {
	ID     string     `json:"id"`
	Seq    uint64     `json:"seq"`
	Text   string     `json:"text"`
	Origin ChatOrigin `json:"origin"`
}
