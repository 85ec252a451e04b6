package handler

import (
	"net/http"

	"github.com/healthtic/internal/middleware"
	"github.com/healthtic/internal/model"
	"github.com/healthtic/internal/repository"
)

// Notifier pushes chat events to connected clients.
type Notifier interface {
	NotifyNewMessage(msg model.Message)
	NotifyRead(readerID, contactID int64)
}

type MessageHandler struct {
	msgs   *repository.MessageRepository
	users  *repository.UserRepository
	notify Notifier
}

func NewMessageHandler(msgs *repository.MessageRepository, users *repository.UserRepository, notify Notifier) *MessageHandler {
	return &MessageHandler{msgs: msgs, users: users, notify: notify}
}

type sendBody struct {
	Receiver int64  `json:"receiver" validate:"required,gt=0"`
	Content  string `json:"content" validate:"notblank"`
}

type markReadBody struct {
	ContactID int64 `json:"contact_id" validate:"required,gt=0"`
}

// List: GET /api/chat/messages/?with_user={id}, по возрастанию created_at.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	other, ok := queryInt64(r, "with_user")
	if !ok {
		writeError(w, http.StatusBadRequest, "with_user is required")
		return
	}
	me := middleware.GetUserID(r.Context())
	writeJSON(w, http.StatusOK, h.msgs.Thread(r.Context(), me, other))
}

// Send: POST /api/chat/messages/. Отвечает сохранённым сообщением.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendBody
	if !decodeBody(w, r, &req) {
		return
	}
	me := middleware.GetUserID(r.Context())
	if !h.users.CanMessage(r.Context(), me, req.Receiver) {
		writeError(w, http.StatusBadRequest, "invalid receiver")
		return
	}
	msg := h.msgs.Create(r.Context(), me, req.Receiver, req.Content)
	if h.notify != nil {
		h.notify.NotifyNewMessage(msg)
	}
	writeJSON(w, http.StatusCreated, msg)
}

// Conversations: GET /api/chat/messages/conversations/.
func (h *MessageHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	me := middleware.GetUserID(r.Context())
	lookup := func(id int64) (model.Contact, bool) {
		acc, err := h.users.GetByID(r.Context(), id)
		if err != nil {
			return model.Contact{}, false
		}
		return acc.ToContact(false), true
	}
	writeJSON(w, http.StatusOK, h.msgs.Conversations(r.Context(), me, lookup))
}

// MarkAsRead: POST /api/chat/messages/mark_as_read/.
func (h *MessageHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	var req markReadBody
	if !decodeBody(w, r, &req) {
		return
	}
	me := middleware.GetUserID(r.Context())
	n := h.msgs.MarkRead(r.Context(), me, req.ContactID)
	if n > 0 && h.notify != nil {
		h.notify.NotifyRead(me, req.ContactID)
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "marked": n})
}
