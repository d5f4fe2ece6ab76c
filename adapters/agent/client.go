// Package agent provides the websocket transport to the remote assistant
// agent.
package agent

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vinylgrove/companion/domain/repositories"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024
)

// Client is a websocket transport to the agent. It implements
// repositories.AgentTransport.
type Client struct {
	url    string
	logger *zap.Logger

	mu       sync.RWMutex
	handlers repositories.Handlers

	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient returns an unconnected transport bound to a websocket URL.
func NewClient(wsURL string, logger *zap.Logger) *Client {
	return &Client{
		url:    wsURL,
		logger: logger,
		send:   make(chan []byte, 256),
		done:   make(chan struct{}),
	}
}

// SetHandlers installs the message and lifecycle hooks. Safe to call at
// any time; the zero value detaches all hooks.
func (c *Client) SetHandlers(h repositories.Handlers) {
	c.mu.Lock()
	c.handlers = h
	c.mu.Unlock()
}

func (c *Client) hooks() repositories.Handlers {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handlers
}

// URL returns the websocket address this client dials.
func (c *Client) URL() string {
	return c.url
}

// Connect dials the agent and starts the read and write pumps. The OnOpen
// hook fires once the connection is established.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.writePump()
	go c.readPump()

	if h := c.hooks(); h.OnOpen != nil {
		h.OnOpen()
	}
	c.logger.Info("Agent transport connected", zap.String("url", c.url))
	return nil
}

// Send queues one text frame for the agent.
func (c *Client) Send(data []byte) error {
	select {
	case <-c.done:
		return websocket.ErrCloseSent
	default:
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return websocket.ErrCloseSent
	}
}

// Close tears the connection down and stops both pumps.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn != nil {
			err = conn.Close()
		}
	})
	return err
}

// readPump pumps inbound frames to the OnMessage hook.
func (c *Client) readPump() {
	defer func() {
		c.Close()
		if h := c.hooks(); h.OnClose != nil {
			h.OnClose()
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("Agent websocket error", zap.Error(err))
				if h := c.hooks(); h.OnError != nil {
					h.OnError(err)
				}
			}
			return
		}
		if h := c.hooks(); h.OnMessage != nil {
			h.OnMessage(message)
		}
	}
}

// writePump pumps queued frames to the websocket connection and keeps the
// connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error("Failed to write to agent", zap.Error(err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// HTTPBase converts a websocket address into the agent's HTTP base URL,
// which serves the history and state endpoints.
func HTTPBase(wsURL string) string {
	s := strings.Replace(wsURL, "ws://", "http://", 1)
	return strings.Replace(s, "wss://", "https://", 1)
}
