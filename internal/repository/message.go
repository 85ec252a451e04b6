package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/healthtic/internal/logger"
	"github.com/healthtic/internal/model"
)

// MessageRepository — сообщения в памяти. created_at строго возрастает
// в порядке записи, поэтому порядок в треде совпадает с порядком отправки.
type MessageRepository struct {
	mu     sync.RWMutex
	msgs   []model.Message
	nextID int64
	last   time.Time
	now    func() time.Time
}

func NewMessageRepository() *MessageRepository {
	return &MessageRepository{now: func() time.Time { return time.Now().UTC() }}
}

func (r *MessageRepository) Create(ctx context.Context, sender, receiver int64, content string) model.Message {
	defer logger.DeferLogDuration("msg.Create", time.Now())()
	r.mu.Lock()
	defer r.mu.Unlock()
	ts := r.now()
	if !ts.After(r.last) {
		ts = r.last.Add(time.Microsecond)
	}
	r.last = ts
	r.nextID++
	m := model.Message{ID: r.nextID, Sender: sender, Receiver: receiver, Content: content, CreatedAt: ts}
	r.msgs = append(r.msgs, m)
	return m
}

// Thread — переписка двух пользователей по возрастанию created_at.
func (r *MessageRepository) Thread(ctx context.Context, a, b int64) []model.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Message, 0)
	for _, m := range r.msgs {
		if (m.Sender == a && m.Receiver == b) || (m.Sender == b && m.Receiver == a) {
			out = append(out, m)
		}
	}
	return out
}

// MarkRead помечает прочитанными сообщения от contact к reader. Возвращает число изменённых.
func (r *MessageRepository) MarkRead(ctx context.Context, reader, contact int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for i := range r.msgs {
		m := &r.msgs[i]
		if m.Sender == contact && m.Receiver == reader && !m.IsRead {
			m.IsRead = true
			n++
		}
	}
	return n
}

// Conversations — по одной сводке на собеседника, свежие сверху.
// lookup превращает id собеседника в контакт, при false собеседник пропускается.
func (r *MessageRepository) Conversations(ctx context.Context, userID int64, lookup func(id int64) (model.Contact, bool)) []model.Conversation {
	defer logger.DeferLogDuration("msg.Conversations", time.Now())()
	r.mu.RLock()
	type agg struct {
		last   model.Message
		unread int
	}
	byPeer := make(map[int64]*agg)
	for _, m := range r.msgs {
		var peer int64
		switch userID {
		case m.Sender:
			peer = m.Receiver
		case m.Receiver:
			peer = m.Sender
		default:
			continue
		}
		a, ok := byPeer[peer]
		if !ok {
			a = &agg{}
			byPeer[peer] = a
		}
		a.last = m
		if m.Receiver == userID && !m.IsRead {
			a.unread++
		}
	}
	r.mu.RUnlock()

	out := make([]model.Conversation, 0, len(byPeer))
	for peer, a := range byPeer {
		contact, ok := lookup(peer)
		if !ok {
			continue
		}
		created := a.last.CreatedAt
		out = append(out, model.Conversation{
			Contact: contact,
			LastMessage: model.LastMessage{
				Content:   a.last.Content,
				CreatedAt: &created,
				IsFromMe:  a.last.Sender == userID,
			},
			UnreadCount: a.unread,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessage.CreatedAt.After(*out[j].LastMessage.CreatedAt)
	})
	return out
}
