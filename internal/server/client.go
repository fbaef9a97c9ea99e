package server

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

// Client is one connected websocket player.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	srv  *Server
	log  *zap.Logger
}

func newClient(id string, conn *websocket.Conn, srv *Server) *Client {
	return &Client{
		id:   id,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		srv:  srv,
		log:  srv.log.With(zap.String("player_id", id)),
	}
}

// sendJSON queues a message for the write pump. A full buffer drops the
// connection rather than blocking the caller.
func (c *Client) sendJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		c.log.Error("marshal outbound message", zap.Error(err))
		return
	}
	select {
	case c.send <- b:
	default:
		c.log.Warn("send buffer full, dropping connection")
		c.conn.Close()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.srv.handleDisconnect(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Info("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendJSON(newError(ErrInvalidMessage, "malformed message"))
			continue
		}
		c.srv.handleMessage(c, &msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case b, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
