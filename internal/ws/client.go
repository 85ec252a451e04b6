package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/healthtic/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendBufSize    = 64
)

// Client — подписчик на push-события. Сервер только пишет в соединение;
// входящие кадры читаются ради pong и закрытия.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan OutgoingMessage
	userID int64

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func NewClient(hub *Hub, conn *websocket.Conn, userID int64) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan OutgoingMessage, sendBufSize),
		userID: userID,
		done:   make(chan struct{}),
	}
}

// Start запускает чтение и запись; соединение живёт до Close или обрыва.
func (c *Client) Start() {
	c.wg.Add(2)
	go c.writeLoop()
	go c.watchClose()
}

func (c *Client) Wait() {
	c.wg.Wait()
}

// Close можно вызывать многократно из любой горутины.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// watchClose держит дедлайн чтения по pong и снимает клиента с хаба,
// когда браузер закрыл соединение.
func (c *Client) watchClose() {
	defer c.wg.Done()
	defer c.hub.Unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warnf("ws user=%d closed: %v", c.userID, err)
			}
			return
		}
	}
}

func (c *Client) writeLoop() {
	defer c.wg.Done()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				logger.Debugf("ws write user=%d type=%s: %v", c.userID, msg.Type, err)
				c.Close()
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}
