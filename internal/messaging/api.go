// Package messaging keeps the contact directory, the conversation index and the
// open message thread consistent with each other and with the backend.
package messaging

import (
	"context"
	"errors"

	"github.com/healthtic/internal/model"
)

// API is the subset of the backend client used by messaging.
type API interface {
	Contacts(ctx context.Context) ([]model.Contact, error)
	Conversations(ctx context.Context) ([]model.Conversation, error)
	Messages(ctx context.Context, withUser int64) ([]model.Message, error)
	SendMessage(ctx context.Context, receiver int64, content string) (*model.Message, error)
	MarkAsRead(ctx context.Context, contactID int64) error
}

var (
	// ErrNoContact: сообщение некуда отправлять: беседа не открыта.
	ErrNoContact = errors.New("no conversation selected")
	// ErrEmptyMessage: пустое или состоящее из пробелов сообщение.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrSendInFlight: предыдущая отправка из поля ввода ещё не завершилась.
	ErrSendInFlight = errors.New("a message is already being sent")
	// ErrStale: ответ пришёл для беседы, которая уже не открыта; результат отброшен.
	ErrStale = errors.New("stale response discarded")
)
