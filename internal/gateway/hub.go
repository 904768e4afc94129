// Package gateway fans bus events out to the client connections held by this process.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DanDan1134/wordle-battle/internal/bus"
	"github.com/DanDan1134/wordle-battle/internal/event"
	"github.com/DanDan1134/wordle-battle/internal/metrics"
)

const defaultBusBudget = time.Minute

var ErrNotStarted = errors.New("gateway consumer not started")

// Message is what a connection receives: an action name and its payload.
type Message struct {
	Action  string `json:"action"`
	Payload any    `json:"payload,omitempty"`
}

// Conn is one client connection. Send must not block; it reports false when the message was dropped.
type Conn interface {
	PlayerID() string
	Send(msg Message) bool
}

type Hub struct {
	logger     *slog.Logger
	subscriber bus.Subscriber
	budget     time.Duration

	mu          sync.RWMutex
	conns       map[string]Conn
	members     map[string]map[string]struct{} // room id -> player ids
	playerRooms map[string]map[string]struct{} // player id -> room ids

	started atomic.Bool
	done    chan struct{}
	err     error
}

func NewHub(logger *slog.Logger, subscriber bus.Subscriber, budget time.Duration) *Hub {
	if budget <= 0 {
		budget = defaultBusBudget
	}

	return &Hub{
		logger:      logger.With("component", "gateway"),
		subscriber:  subscriber,
		budget:      budget,
		conns:       make(map[string]Conn),
		members:     make(map[string]map[string]struct{}),
		playerRooms: make(map[string]map[string]struct{}),
		done:        make(chan struct{}),
	}
}

// Register makes conn the player's connection on this process and returns the one it replaced.
func (that *Hub) Register(conn Conn) Conn {
	that.mu.Lock()
	defer that.mu.Unlock()

	previous := that.conns[conn.PlayerID()]
	that.conns[conn.PlayerID()] = conn

	if previous == nil {
		metrics.ActiveConnections.Inc()
	}

	return previous
}

// Unregister forgets conn and its room memberships. A newer connection of the same player is kept.
func (that *Hub) Unregister(conn Conn) {
	that.mu.Lock()
	defer that.mu.Unlock()

	playerID := conn.PlayerID()
	if that.conns[playerID] != conn {
		return
	}

	delete(that.conns, playerID)
	metrics.ActiveConnections.Dec()

	for roomID := range that.playerRooms[playerID] {
		that.leaveLocked(roomID, playerID)
	}
}

func (that *Hub) JoinRoom(roomID, playerID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.members[roomID] == nil {
		that.members[roomID] = make(map[string]struct{})
	}
	that.members[roomID][playerID] = struct{}{}

	if that.playerRooms[playerID] == nil {
		that.playerRooms[playerID] = make(map[string]struct{})
	}
	that.playerRooms[playerID][roomID] = struct{}{}
}

func (that *Hub) LeaveRoom(roomID, playerID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.leaveLocked(roomID, playerID)
}

func (that *Hub) leaveLocked(roomID, playerID string) {
	if players, ok := that.members[roomID]; ok {
		delete(players, playerID)
		if len(players) == 0 {
			delete(that.members, roomID)
		}
	}

	if rooms, ok := that.playerRooms[playerID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(that.playerRooms, playerID)
		}
	}
}

func (that *Hub) dropRoom(roomID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for playerID := range that.members[roomID] {
		that.leaveLocked(roomID, playerID)
	}
}

// EnsureListening starts the process's only bus consumer. Later calls are no-ops and return false.
func (that *Hub) EnsureListening(ctx context.Context) bool {
	if !that.started.CompareAndSwap(false, true) {
		return false
	}

	go func() {
		err := bus.Consume(ctx, that.logger, that.subscriber, event.TopicEvents, that.budget, that.dispatch)
		if err != nil {
			that.logger.Error("gateway consumer stopped", "error", err)
		}

		that.err = err
		close(that.done)
	}()

	return true
}

// Done is closed when the consumer ends, either on cancellation or after exhausting its retry budget.
func (that *Hub) Done() <-chan struct{} {
	return that.done
}

// Err is the reason the consumer ended. It is only meaningful once Done is closed.
func (that *Hub) Err() error {
	if !that.started.Load() {
		return ErrNotStarted
	}

	select {
	case <-that.done:
		return that.err
	default:
		return nil
	}
}

// dispatch routes one bus payload to local connections. Bad payloads are logged and skipped.
func (that *Hub) dispatch(_ context.Context, payload []byte) {
	log := that.logger.With("method", "dispatch")

	e, err := event.Decode(payload)
	if err != nil {
		metrics.EventsMalformed.Inc()
		log.Warn("skipping malformed event", "error", err)
		return
	}

	switch ev := e.(type) {
	case event.MatchFound:
		for _, playerID := range ev.Players {
			if that.connFor(playerID) == nil {
				continue
			}

			that.JoinRoom(ev.RoomID, playerID)
			that.unicast(playerID, ev)
		}
	case event.ScoreUpdate, event.TimerUpdate, event.GameOver:
		that.broadcast(ev.Room(), ev)
	case event.MatchResultSaved:
		that.broadcast(ev.RoomID, ev)
		that.dropRoom(ev.RoomID)
	case event.NewWordAssigned:
		that.unicast(ev.PlayerID, ev)
	case event.SessionStart:
	}
}

func (that *Hub) connFor(playerID string) Conn {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.conns[playerID]
}

func (that *Hub) unicast(playerID string, e event.Event) {
	conn := that.connFor(playerID)
	if conn == nil {
		return
	}

	that.send(conn, e)
}

func (that *Hub) broadcast(roomID string, e event.Event) {
	that.mu.RLock()
	targets := make([]Conn, 0, len(that.members[roomID]))
	for playerID := range that.members[roomID] {
		if conn, ok := that.conns[playerID]; ok {
			targets = append(targets, conn)
		}
	}
	that.mu.RUnlock()

	for _, conn := range targets {
		that.send(conn, e)
	}
}

func (that *Hub) send(conn Conn, e event.Event) {
	if !conn.Send(Message{Action: string(e.Type()), Payload: e}) {
		that.logger.Warn("dropped event for slow connection", "player_id", conn.PlayerID(), "type", e.Type())
		return
	}

	metrics.EventsDelivered.WithLabelValues(string(e.Type())).Inc()
}
