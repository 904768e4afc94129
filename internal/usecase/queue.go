package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DanDan1134/wordle-battle/internal/apperror"
)

type QueueService interface {
	JoinQueue(ctx context.Context, playerID string) error
	LeaveQueue(ctx context.Context, playerID string) error
}

type queueRepo interface {
	Enqueue(ctx context.Context, playerID string) (bool, error)
	RemoveIfPresent(ctx context.Context, playerID string) (bool, error)
}

type queueService struct {
	logger *slog.Logger
	queue  queueRepo
	rooms  roomRepo
}

func NewQueueService(logger *slog.Logger, queue queueRepo, rooms roomRepo) QueueService {
	return &queueService{
		logger: logger.With("component", "queue_service"),
		queue:  queue,
		rooms:  rooms,
	}
}

// JoinQueue puts the player in the matchmaking pool unless they are already waiting or playing.
func (that *queueService) JoinQueue(ctx context.Context, playerID string) error {
	log := that.logger.With("method", "JoinQueue", "player_id", playerID)

	if playerID == "" {
		return apperror.ErrNotAuthenticated
	}

	roomID, err := that.rooms.PlayerRoom(ctx, playerID)
	if err != nil {
		return fmt.Errorf("failed to check player room: %w", err)
	}

	if roomID != "" {
		return fmt.Errorf("%w: %s", apperror.ErrAlreadyInMatch, roomID)
	}

	added, err := that.queue.Enqueue(ctx, playerID)
	if err != nil {
		return fmt.Errorf("failed to join queue: %w", err)
	}

	if !added {
		return apperror.ErrAlreadyQueued
	}

	log.Info("player queued")

	return nil
}

func (that *queueService) LeaveQueue(ctx context.Context, playerID string) error {
	if playerID == "" {
		return apperror.ErrNotAuthenticated
	}

	removed, err := that.queue.RemoveIfPresent(ctx, playerID)
	if err != nil {
		return fmt.Errorf("failed to leave queue: %w", err)
	}

	if !removed {
		return apperror.ErrNotInQueue
	}

	that.logger.Info("player left queue", "method", "LeaveQueue", "player_id", playerID)

	return nil
}
