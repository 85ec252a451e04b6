package model

import "time"

// LastMessage: краткая сводка последнего сообщения беседы. CreatedAt nil — сообщений нет.
type LastMessage struct {
	Content   string     `json:"content"`
	CreatedAt *time.Time `json:"created_at"`
	IsFromMe  bool       `json:"is_from_me"`
}

// Conversation содержит сводку по контакту: последнее сообщение и число непрочитанных.
// Ключ: Contact.ID, не более одной беседы на контакт.
type Conversation struct {
	Contact     Contact     `json:"contact"`
	LastMessage LastMessage `json:"last_message"`
	UnreadCount int         `json:"unread_count"`
}
