package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/DanDan1134/wordle-battle/internal/gateway"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

// client is one websocket connection. The write pump is its only writer after the upgrade.
type client struct {
	conn     *websocket.Conn
	playerID string
	limiter  *rate.Limiter

	send   chan gateway.Message
	closed chan struct{}
	once   sync.Once
}

func newClient(conn *websocket.Conn, playerID string, limiter *rate.Limiter) *client {
	return &client{
		conn:     conn,
		playerID: playerID,
		limiter:  limiter,
		send:     make(chan gateway.Message, sendBuffer),
		closed:   make(chan struct{}),
	}
}

func (that *client) PlayerID() string {
	return that.playerID
}

// Send queues msg without blocking. A full buffer drops the message.
func (that *client) Send(msg gateway.Message) bool {
	select {
	case <-that.closed:
		return false
	default:
	}

	select {
	case that.send <- msg:
		return true
	default:
		return false
	}
}

func (that *client) reply(action string, payload any) {
	that.Send(gateway.Message{Action: action, Payload: payload})
}

func (that *client) close() {
	that.once.Do(func() {
		close(that.closed)
	})
}

func (that *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = that.conn.Close()
	}()

	for {
		select {
		case msg := <-that.send:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-that.closed:
			_ = that.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
