// Package realtime listens for server-pushed chat events and folds them into
// the open thread and the conversation index.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/healthtic/internal/logger"
	"github.com/healthtic/internal/model"
	"github.com/healthtic/internal/session"
)

const (
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
)

const (
	EventNewMessage  = "new_message"
	EventMessageRead = "message_read"
)

// Event — кадр от сервера.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ReadReceipt — полезная нагрузка message_read.
type ReadReceipt struct {
	ReaderID  int64 `json:"reader_id"`
	ContactID int64 `json:"contact_id"`
}

// Thread and Inbox are the parts of messaging updated by pushed events.
// Показанное в открытом треде сообщение сразу отмечается прочитанным.
type Thread interface {
	Receive(msg model.Message) bool
	MarkRead(ctx context.Context) error
}

type Inbox interface {
	Refresh(ctx context.Context) error
}

type Listener struct {
	url     string
	scheme  string
	session *session.Store
	thread  Thread
	inbox   Inbox
	dialer  *websocket.Dialer

	// OnMessage, если задан, вызывается для каждого new_message после обработки.
	OnMessage func(msg model.Message, shown bool)
	// OnRead, если задан, вызывается для каждого message_read.
	OnRead func(r ReadReceipt)
}

// New: scheme задаёт схему заголовка Authorization, как у REST-клиента.
func New(url, scheme string, s *session.Store, thread Thread, inbox Inbox) *Listener {
	if scheme == "" {
		scheme = "Token"
	}
	return &Listener{
		url:     url,
		scheme:  scheme,
		session: s,
		thread:  thread,
		inbox:   inbox,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// Run подключается и читает события, пока ctx не отменён или соединение не оборвалось.
// Отмена ctx считается штатным завершением, возвращается nil.
func (l *Listener) Run(ctx context.Context) error {
	token := l.session.Token()
	if token == "" {
		return session.ErrNotAuthenticated
	}
	hdr := http.Header{}
	hdr.Set("Authorization", l.scheme+" "+token)

	conn, resp, err := l.dialer.DialContext(ctx, l.url, hdr)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return err
	}
	logger.Infof("realtime: connected to %s", l.url)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			conn.Close()
		case <-stop:
		}
	}()
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			logger.Warnf("realtime: bad frame: %v", err)
			continue
		}
		l.dispatch(ctx, ev)
	}
}

func (l *Listener) dispatch(ctx context.Context, ev Event) {
	switch ev.Type {
	case EventNewMessage:
		var msg model.Message
		if err := json.Unmarshal(ev.Payload, &msg); err != nil {
			logger.Warnf("realtime: bad new_message: %v", err)
			return
		}
		shown := false
		if l.thread != nil {
			shown = l.thread.Receive(msg)
		}
		if shown {
			if err := l.thread.MarkRead(ctx); err != nil {
				logger.Warnf("realtime: mark_as_read after push: %v", err)
			}
		}
		if l.inbox != nil {
			if err := l.inbox.Refresh(ctx); err != nil {
				logger.Warnf("realtime: refresh conversations: %v", err)
			}
		}
		if l.OnMessage != nil {
			l.OnMessage(msg, shown)
		}
	case EventMessageRead:
		var r ReadReceipt
		if err := json.Unmarshal(ev.Payload, &r); err != nil {
			logger.Warnf("realtime: bad message_read: %v", err)
			return
		}
		if l.OnRead != nil {
			l.OnRead(r)
		}
	default:
		logger.Debugf("realtime: ignored event %q", ev.Type)
	}
}
