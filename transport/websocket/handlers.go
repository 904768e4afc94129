package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DanDan1134/wordle-battle/internal/apperror"
)

func (that *Server) handleQueueJoin(ctx context.Context, c *client, msg *Message) error {
	if err := that.queue.JoinQueue(ctx, c.playerID); err != nil {
		return that.reject(c, msg.Action, fmt.Errorf("failed to join queue: %w", err))
	}

	c.reply(actionQueueJoined, nil)

	return nil
}

func (that *Server) handleQueueLeave(ctx context.Context, c *client, msg *Message) error {
	if err := that.queue.LeaveQueue(ctx, c.playerID); err != nil {
		return that.reject(c, msg.Action, fmt.Errorf("failed to leave queue: %w", err))
	}

	c.reply(actionQueueLeft, nil)

	return nil
}

// handleRoomJoin lets a reconnecting player resubscribe to a room they are seated in.
func (that *Server) handleRoomJoin(ctx context.Context, c *client, msg *Message) error {
	var req roomRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil || req.RoomID == "" {
		return that.reject(c, msg.Action, apperror.ErrInvalidInput)
	}

	room, err := that.session.EnterRoom(ctx, c.playerID, req.RoomID)
	if err != nil {
		return that.reject(c, msg.Action, fmt.Errorf("failed to enter room: %w", err))
	}

	that.hub.JoinRoom(room.ID, c.playerID)

	c.reply(actionRoomJoined, roomResponse{
		RoomID:  room.ID,
		Players: room.Players,
		Status:  room.Status,
	})

	return nil
}

func (that *Server) handleGuessSubmit(ctx context.Context, c *client, msg *Message) error {
	var req guessRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil || req.RoomID == "" {
		return that.reject(c, msg.Action, apperror.ErrInvalidInput)
	}

	if !c.limiter.Allow() {
		c.reply(errorAction(msg.Action), errorResponse{Action: msg.Action, Reason: reasonRateLimited, Retryable: true})
		return nil
	}

	result, err := that.session.SubmitGuess(ctx, c.playerID, req.RoomID, req.Guess)
	if err != nil {
		return that.reject(c, msg.Action, fmt.Errorf("failed to submit guess: %w", err))
	}

	c.reply(actionGuessFeedback, result)

	return nil
}

// reject answers the client and hands back only the failures worth logging on the server.
func (that *Server) reject(c *client, action string, err error) error {
	c.reply(errorAction(action), newErrorResponse(action, err))

	if apperror.IsRetryable(err) || apperror.Reason(err) == apperror.ReasonInternal {
		return err
	}

	return nil
}
