package ws

import (
	"context"
	"sync"

	"github.com/healthtic/internal/logger"
	"github.com/healthtic/internal/model"
)

// Hub раздаёт события подключённым клиентам по id пользователя.
type Hub struct {
	mu         sync.RWMutex
	clients    map[int64]map[*Client]struct{}
	total      int
	maxConns   int
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub(maxConns int) *Hub {
	if maxConns <= 0 {
		maxConns = 1000
	}
	return &Hub{
		clients:    make(map[int64]map[*Client]struct{}),
		maxConns:   maxConns,
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		done:       make(chan struct{}),
	}
}

// Run обслуживает регистрацию до отмены ctx, затем закрывает все соединения.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			// done закрывается до shutdown: Unregister из закрывающихся клиентов не блокируется.
			close(h.done)
			h.shutdown()
			return
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		}
	}
}

func (h *Hub) shutdown() {
	// I/O вне мьютекса.
	h.mu.Lock()
	all := make([]*Client, 0, h.total)
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.clients = make(map[int64]map[*Client]struct{})
	h.total = 0
	h.mu.Unlock()

	for _, c := range all {
		c.Close()
	}
	for _, c := range all {
		c.Wait()
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	if h.total >= h.maxConns {
		h.mu.Unlock()
		logger.Errorf("ws connection limit reached (%d), rejecting user=%d", h.maxConns, c.userID)
		c.Close()
		return
	}
	if _, ok := h.clients[c.userID]; !ok {
		h.clients[c.userID] = make(map[*Client]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
	h.total++
	h.mu.Unlock()
	logger.Debugf("ws connected user=%d", c.userID)
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.userID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, exists := set[c]; !exists {
		h.mu.Unlock()
		return
	}
	delete(set, c)
	h.total--
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	h.mu.Unlock()
	c.Close()
}

// Connected — число открытых соединений пользователя.
func (h *Hub) Connected(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// NotifyNewMessage доставляет сохранённое сообщение получателю (на все его соединения).
func (h *Hub) NotifyNewMessage(msg model.Message) {
	h.sendToUser(msg.Receiver, OutgoingMessage{Type: EventNewMessage, Payload: msg})
}

// NotifyRead сообщает контакту, что reader прочитал его сообщения.
func (h *Hub) NotifyRead(readerID, contactID int64) {
	h.sendToUser(contactID, OutgoingMessage{
		Type:    EventMessageRead,
		Payload: MessageReadPayload{ReaderID: readerID, ContactID: contactID},
	})
}

func (h *Hub) sendToUser(userID int64, msg OutgoingMessage) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	for _, c := range targets {
		h.sendToClient(c, msg)
	}
}

func (h *Hub) sendToClient(c *Client, msg OutgoingMessage) {
	select {
	case <-c.done:
	case c.send <- msg:
	default:
		logger.Errorf("ws send buffer full user=%d, dropping %s", c.userID, msg.Type)
	}
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
