// Package matchmaker pairs waiting players into rooms.
//
// Any number of matchmakers may run against the same pool. Pairing takes two separate
// pops, so a concurrent matchmaker can see the pool empty in between; that race is
// settled by putting the first player back and trying again, never by a lock.
package matchmaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/DanDan1134/wordle-battle/internal/entity"
	"github.com/DanDan1134/wordle-battle/internal/event"
	"github.com/DanDan1134/wordle-battle/internal/metrics"
	"github.com/DanDan1134/wordle-battle/internal/repository"
)

const (
	DefaultPollTimeout  = 5 * time.Second
	DefaultRequeueDelay = time.Second
	DefaultRetryBudget  = 2 * time.Minute
)

type Outcome int

const (
	OutcomeIdle Outcome = iota
	OutcomeRequeued
	OutcomeSelfPaired
	OutcomePaired
)

func (that Outcome) String() string {
	switch that {
	case OutcomeRequeued:
		return "requeued"
	case OutcomeSelfPaired:
		return "self_paired"
	case OutcomePaired:
		return "paired"
	default:
		return "idle"
	}
}

type queueRepo interface {
	DequeueBlocking(ctx context.Context, timeout time.Duration) (string, error)
	Pop(ctx context.Context) (string, error)
	PushBack(ctx context.Context, playerID string) error
}

type roomRepo interface {
	Create(ctx context.Context, room *entity.Room) error
	SetPlayerRoom(ctx context.Context, playerID, roomID string) (bool, error)
	ClearPlayerRoom(ctx context.Context, playerID, roomID string) error
	DeleteByID(ctx context.Context, id string) error
}

type emitter interface {
	EmitWithRetry(ctx context.Context, topic string, e event.Event) error
}

type Config struct {
	PollTimeout  time.Duration
	RequeueDelay time.Duration
	RetryBudget  time.Duration
}

type Matchmaker struct {
	logger  *slog.Logger
	queue   queueRepo
	rooms   roomRepo
	emitter emitter
	config  Config

	newID func() string
}

func New(logger *slog.Logger, queue queueRepo, rooms roomRepo, emitter emitter, config Config) *Matchmaker {
	if config.PollTimeout <= 0 {
		config.PollTimeout = DefaultPollTimeout
	}

	if config.RequeueDelay <= 0 {
		config.RequeueDelay = DefaultRequeueDelay
	}

	if config.RetryBudget <= 0 {
		config.RetryBudget = DefaultRetryBudget
	}

	return &Matchmaker{
		logger:  logger.With("component", "matchmaker"),
		queue:   queue,
		rooms:   rooms,
		emitter: emitter,
		config:  config,
		newID:   uuid.NewString,
	}
}

// Run pairs players until ctx is done. It returns nil on cancellation and an error once
// store or bus failures have lasted longer than the retry budget.
func (that *Matchmaker) Run(ctx context.Context) error {
	log := that.logger.With("method", "Run")
	log.Info("matchmaker started")

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = that.config.RetryBudget
	policy.Reset()

	for {
		outcome, err := that.Step(ctx)
		if ctx.Err() != nil {
			log.Info("matchmaker stopped")
			return nil
		}

		if err != nil {
			if errors.Is(err, repository.ErrMalformedReply) {
				log.Warn("skipping malformed queue entry", "error", err)
				continue
			}

			metrics.StoreErrors.WithLabelValues("matchmaker").Inc()

			wait := policy.NextBackOff()
			if wait == backoff.Stop {
				return fmt.Errorf("matchmaker retry budget exhausted: %w", err)
			}

			log.Error("matchmaking step failed", "error", err, "retry_in", wait)

			if !sleep(ctx, wait) {
				return nil
			}

			continue
		}

		policy.Reset()

		if outcome == OutcomeRequeued && !sleep(ctx, that.config.RequeueDelay) {
			return nil
		}
	}
}

// Step runs one pass of the pairing loop: wait for a candidate, then try to pair it.
func (that *Matchmaker) Step(ctx context.Context) (Outcome, error) {
	log := that.logger.With("method", "Step")

	first, err := that.waitForCandidate(ctx)
	if err != nil {
		return OutcomeIdle, err
	}

	// the first player is ours now, so every early return has to give them back
	second, err := that.queue.Pop(ctx)
	switch {
	case errors.Is(err, repository.ErrQueueEmpty):
		metrics.QueueRequeues.WithLabelValues("alone").Inc()
		return OutcomeRequeued, that.pushBack(ctx, first)
	case err != nil:
		return OutcomeIdle, errors.Join(err, that.pushBack(ctx, first))
	case second == first:
		log.Warn("player popped twice, requeueing", "player_id", first)
		metrics.QueueRequeues.WithLabelValues("self_pair").Inc()
		return OutcomeSelfPaired, that.pushBack(ctx, first)
	}

	return that.pair(ctx, first, second)
}

func (that *Matchmaker) waitForCandidate(ctx context.Context) (string, error) {
	for {
		playerID, err := that.queue.DequeueBlocking(ctx, that.config.PollTimeout)
		if errors.Is(err, repository.ErrQueueEmpty) {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}

			continue
		}

		return playerID, err
	}
}

func (that *Matchmaker) pair(ctx context.Context, first, second string) (Outcome, error) {
	log := that.logger.With("method", "pair")

	room, err := entity.NewRoom(that.newID(), first, second)
	if err != nil {
		return OutcomeIdle, errors.Join(err, that.pushBack(ctx, first), that.pushBack(ctx, second))
	}

	if err = that.rooms.Create(ctx, room); err != nil {
		return OutcomeIdle, errors.Join(
			fmt.Errorf("failed to create room: %w", err),
			that.pushBack(ctx, first),
			that.pushBack(ctx, second),
		)
	}

	for _, playerID := range room.Players {
		var seated bool
		if seated, err = that.rooms.SetPlayerRoom(ctx, playerID, room.ID); err != nil {
			return OutcomeIdle, errors.Join(fmt.Errorf("failed to index player room: %w", err), that.rollback(ctx, room, ""))
		}

		if !seated {
			// a stale queue entry for someone already playing; they are not put back
			log.Warn("player already seated, requeueing opponent", "player_id", playerID, "room_id", room.ID)
			metrics.QueueRequeues.WithLabelValues("already_seated").Inc()
			return OutcomeRequeued, that.rollback(ctx, room, playerID)
		}
	}

	matchFound := event.MatchFound{RoomID: room.ID, Players: room.Players}
	if err = that.emitter.EmitWithRetry(ctx, event.TopicEvents, matchFound); err != nil {
		// nobody was told about the room, so it must not exist
		return OutcomeIdle, errors.Join(fmt.Errorf("failed to announce match: %w", err), that.rollback(ctx, room, ""))
	}

	metrics.MatchesCreated.Inc()
	log.Info("match created", "room_id", room.ID, "players", room.Players)

	sessionStart := event.SessionStart{RoomID: room.ID, Players: room.Players}
	if err = that.emitter.EmitWithRetry(ctx, event.TopicStartGame, sessionStart); err != nil {
		// players can still guess in a forming room; it expires with its keys
		log.Error("failed to request session start", "room_id", room.ID, "error", err)
	}

	return OutcomePaired, nil
}

// rollback undoes a half-made room and returns its players to the pool, except seated.
func (that *Matchmaker) rollback(ctx context.Context, room *entity.Room, seated string) error {
	ctx = context.WithoutCancel(ctx)

	errs := []error{that.rooms.DeleteByID(ctx, room.ID)}
	for _, playerID := range room.Players {
		errs = append(errs, that.rooms.ClearPlayerRoom(ctx, playerID, room.ID))

		if playerID != seated {
			errs = append(errs, that.pushBack(ctx, playerID))
		}
	}

	return errors.Join(errs...)
}

// pushBack survives cancellation so a shutdown never drops a popped player.
func (that *Matchmaker) pushBack(ctx context.Context, playerID string) error {
	if err := that.queue.PushBack(context.WithoutCancel(ctx), playerID); err != nil {
		that.logger.Error("failed to push player back", "player_id", playerID, "error", err)
		return err
	}

	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
