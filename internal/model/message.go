package model

import "time"

// Message: сообщение в треде. Неизменяемо, кроме IsRead (только false → true).
type Message struct {
	ID        int64     `json:"id"`
	Sender    int64     `json:"sender"`
	Receiver  int64     `json:"receiver"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	IsRead    bool      `json:"is_read"`
}

// SendMessageRequest: тело POST /chat/messages.
type SendMessageRequest struct {
	Receiver int64  `json:"receiver"`
	Content  string `json:"content"`
}

// MarkAsReadRequest: тело POST /chat/messages/mark_as_read.
type MarkAsReadRequest struct {
	ContactID int64 `json:"contact_id"`
}
