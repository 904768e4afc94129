package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/DanDan1134/wordle-battle/internal/entity"
	"github.com/DanDan1134/wordle-battle/internal/gateway"
)

const (
	authCookie = "auth_token"
	authQuery  = "token"

	guessesPerSecond = 5
	guessBurst       = 10
)

type gameSession interface {
	SubmitGuess(ctx context.Context, playerID, roomID, guess string) (*entity.GuessResult, error)
	EnterRoom(ctx context.Context, playerID, roomID string) (*entity.Room, error)
}

type queueService interface {
	JoinQueue(ctx context.Context, playerID string) error
	LeaveQueue(ctx context.Context, playerID string) error
}

type tokenParser interface {
	ParseToken(token string) (string, error)
}

type hub interface {
	Register(conn gateway.Conn) gateway.Conn
	Unregister(conn gateway.Conn)
	JoinRoom(roomID, playerID string)
	EnsureListening(ctx context.Context) bool
}

type handlerFunc func(ctx context.Context, client *client, msg *Message) error

type Server struct {
	ctx    context.Context
	logger *slog.Logger

	session gameSession
	queue   queueService
	auth    tokenParser
	hub     hub

	upgrader websocket.Upgrader
	handlers map[string]handlerFunc
}

// New builds the /ws handler. ctx bounds the process-wide bus consumer started on first use.
func New(ctx context.Context, logger *slog.Logger, session gameSession, queue queueService, auth tokenParser, hub hub) *Server {
	server := &Server{
		ctx:     ctx,
		logger:  logger.With("component", "websocket"),
		session: session,
		queue:   queue,
		auth:    auth,
		hub:     hub,

		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		handlers: make(map[string]handlerFunc),
	}

	server.handlers[actionQueueJoin] = server.handleQueueJoin
	server.handlers[actionQueueLeave] = server.handleQueueLeave
	server.handlers[actionRoomJoin] = server.handleRoomJoin
	server.handlers[actionGuessSubmit] = server.handleGuessSubmit

	return server
}

func (that *Server) ServeHTTP(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "ServeHTTP")

	playerID := that.authenticate(req)

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	if playerID == "" {
		that.rejectUnauthenticated(conn)
		return
	}

	that.hub.EnsureListening(that.ctx)

	c := newClient(conn, playerID, rate.NewLimiter(guessesPerSecond, guessBurst))

	if previous := that.hub.Register(c); previous != nil {
		if old, ok := previous.(*client); ok {
			old.close()
		}
	}

	log.Info("websocket connection established", "player_id", playerID)

	go c.writePump()
	that.readPump(req.Context(), c)

	that.hub.Unregister(c)
	c.close()

	log.Info("websocket connection closed", "player_id", playerID)
}

// authenticate accepts a token from the Authorization header, the auth cookie or the query string.
func (that *Server) authenticate(req *http.Request) string {
	var token string

	if header := req.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		token = strings.TrimPrefix(header, "Bearer ")
	} else if cookie, err := req.Cookie(authCookie); err == nil {
		token = cookie.Value
	} else {
		token = req.URL.Query().Get(authQuery)
	}

	if token == "" {
		return ""
	}

	playerID, err := that.auth.ParseToken(token)
	if err != nil {
		that.logger.Warn("rejected token", "method", "authenticate", "error", err)
		return ""
	}

	return playerID
}

func (that *Server) rejectUnauthenticated(conn *websocket.Conn) {
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(gateway.Message{Action: actionNotAuthenticated}); err != nil {
		return
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, actionNotAuthenticated),
		time.Now().Add(writeWait))
}

// readPump processes messages from the client until it disconnects.
func (that *Server) readPump(ctx context.Context, c *client) {
	log := that.logger.With("method", "readPump", "player_id", c.playerID)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var message Message
		if err := c.conn.ReadJSON(&message); err != nil {
			if isMalformed(err) {
				c.reply(actionError, errorResponse{Reason: "malformed_message"})
				continue
			}

			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("connection dropped", "error", err)
			}

			return
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			c.reply(actionError, errorResponse{Action: message.Action, Reason: "unknown_action"})
			continue
		}

		if err := handler(ctx, c, &message); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}

func isMalformed(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
