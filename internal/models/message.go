package models

// Limits enforced on incoming messages.
const (
	MaxSenderLen = 100
	MaxTextLen   = 1000
)

// Message is a single chat message. Text is an opaque payload; when the
// client encrypts before posting it sets Encrypted so peers know to decrypt.
// Token is the author's bearer token and is only ever persisted server-side;
// list responses include it solely on the requester's own messages.
type Message struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	RoomID    string `json:"roomId"`
	ReplyTo   string `json:"replyTo,omitempty"`
	Token     string `json:"token,omitempty"`
	Encrypted bool   `json:"encrypted,omitempty"`
}

type PostMessageRequest struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	ReplyTo   string `json:"replyTo,omitempty"`
	Encrypted bool   `json:"encrypted,omitempty"`
}

type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
}

type DeleteMessageRequest struct {
	ID string `json:"id"`
}
