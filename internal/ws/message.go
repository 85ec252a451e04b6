package ws

import "github.com/healthtic/internal/model"

type EventType string

const (
	EventNewMessage  EventType = "new_message"
	EventMessageRead EventType = "message_read"
	EventError       EventType = "error"
)

// OutgoingMessage is what the server pushes to a connected client.
type OutgoingMessage struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// NewMessagePayload carries the canonical stored message.
type NewMessagePayload = model.Message

// MessageReadPayload is sent to the author when the receiver opened the thread.
type MessageReadPayload struct {
	ReaderID  int64 `json:"reader_id"`
	ContactID int64 `json:"contact_id"`
}
