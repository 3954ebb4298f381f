package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10 // must be < pongWait
)

// clientConn adapts a gorilla conn to relay.Channel. The write mutex keeps
// history replay, broadcast deliveries, and pings from interleaving frames.
type clientConn struct {
	rawConn *websocket.Conn
	mu      sync.Mutex
}

func newClientConn(rawConn *websocket.Conn) *clientConn {
	_ = rawConn.SetReadDeadline(time.Now().Add(pongWait))
	rawConn.SetPongHandler(func(string) error {
		return rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})
	return &clientConn{rawConn: rawConn}
}

func (c *clientConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.rawConn.WriteMessage(websocket.TextMessage, data)
}

// Receive returns the next text frame. Binary frames are skipped; control
// frames never reach here.
func (c *clientConn) Receive() ([]byte, error) {
	for {
		mt, data, err := c.rawConn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if mt != websocket.TextMessage {
			continue
		}
		return data, nil
	}
}

func (c *clientConn) Close() error { return c.rawConn.Close() }

func (c *clientConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rawConn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}
