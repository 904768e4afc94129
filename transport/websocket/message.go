package websocket

import (
	"encoding/json"
	"strings"

	"github.com/DanDan1134/wordle-battle/internal/apperror"
	"github.com/DanDan1134/wordle-battle/internal/entity"
)

// client actions.
const (
	actionQueueJoin   = "queue:join"
	actionQueueLeave  = "queue:leave"
	actionRoomJoin    = "room:join"
	actionGuessSubmit = "guess:submit"
)

// server replies.
const (
	actionQueueJoined      = "queue:joined"
	actionQueueLeft        = "queue:left"
	actionRoomJoined       = "room:joined"
	actionGuessFeedback    = "guess:feedback"
	actionNotAuthenticated = "not_authenticated"
	actionError            = "error"
)

const reasonRateLimited = "rate_limited"

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type roomRequest struct {
	RoomID string `json:"room_id"`
}

type guessRequest struct {
	RoomID string `json:"room_id"`
	Guess  string `json:"guess"`
}

type roomResponse struct {
	RoomID  string            `json:"room_id"`
	Players [2]string         `json:"players"`
	Status  entity.RoomStatus `json:"status"`
}

type errorResponse struct {
	Action    string `json:"action,omitempty"`
	Reason    string `json:"reason"`
	Retryable bool   `json:"retryable"`
}

// errorAction names the rejection for a request: "guess:submit" is answered with "guess:error".
func errorAction(action string) string {
	if prefix, _, ok := strings.Cut(action, ":"); ok && prefix != "" {
		return prefix + ":error"
	}

	return actionError
}

func newErrorResponse(action string, err error) errorResponse {
	return errorResponse{
		Action:    action,
		Reason:    apperror.Reason(err),
		Retryable: apperror.IsRetryable(err),
	}
}
