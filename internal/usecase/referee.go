package usecase

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/DanDan1134/wordle-battle/internal/apperror"
	"github.com/DanDan1134/wordle-battle/internal/bus"
	"github.com/DanDan1134/wordle-battle/internal/entity"
	"github.com/DanDan1134/wordle-battle/internal/event"
)

const (
	DefaultMatchDuration = 120 * time.Second
	defaultTick          = time.Second
	defaultBusBudget     = time.Minute
)

type roomLifecycle interface {
	RoomByID(ctx context.Context, roomID string) (*entity.Room, error)
	StartRoom(ctx context.Context, roomID string) (bool, error)
	FinishRoom(ctx context.Context, roomID string) (bool, error)
}

type RefereeConfig struct {
	MatchDuration time.Duration
	// BusBudget bounds both resubscribing to start requests and retrying a failed finish.
	BusBudget time.Duration
}

// Referee owns the match clock. Any number may run; the one that starts a room keeps its time.
type Referee struct {
	logger     *slog.Logger
	subscriber bus.Subscriber
	session    roomLifecycle
	emitter    eventEmitter
	config     RefereeConfig

	tick   time.Duration
	clocks sync.WaitGroup
}

func NewReferee(logger *slog.Logger, subscriber bus.Subscriber, session roomLifecycle, emitter eventEmitter, config RefereeConfig) *Referee {
	if config.MatchDuration <= 0 {
		config.MatchDuration = DefaultMatchDuration
	}

	if config.BusBudget <= 0 {
		config.BusBudget = defaultBusBudget
	}

	return &Referee{
		logger:     logger.With("component", "referee"),
		subscriber: subscriber,
		session:    session,
		emitter:    emitter,
		config:     config,
		tick:       defaultTick,
	}
}

// Run consumes session_start requests until ctx is done, then waits for running clocks to stop.
func (that *Referee) Run(ctx context.Context) error {
	that.logger.Info("referee started", "match_duration", that.config.MatchDuration)

	err := bus.Consume(ctx, that.logger, that.subscriber, event.TopicStartGame, that.config.BusBudget, that.handle)

	that.clocks.Wait()

	return err
}

func (that *Referee) handle(ctx context.Context, payload []byte) {
	log := that.logger.With("method", "handle")

	e, err := event.Decode(payload)
	if err != nil {
		log.Warn("skipping malformed start request", "error", err)
		return
	}

	start, ok := e.(event.SessionStart)
	if !ok {
		log.Warn("unexpected event on start topic", "type", e.Type())
		return
	}

	started, err := that.session.StartRoom(ctx, start.RoomID)
	if err != nil {
		log.Error("failed to start room", "room_id", start.RoomID, "error", err)
		return
	}

	if !started {
		return
	}

	that.clocks.Add(1)
	go func() {
		defer that.clocks.Done()
		that.runClock(ctx, start.RoomID)
	}()
}

// runClock publishes the time left every tick and finishes the room when it runs out.
// It stops early once the room is finished by other means.
func (that *Referee) runClock(ctx context.Context, roomID string) {
	log := that.logger.With("method", "runClock", "room_id", roomID)
	log.Info("clock started")

	deadline := time.Now().Add(that.config.MatchDuration)

	ticker := time.NewTicker(that.tick)
	defer ticker.Stop()

	for {
		left := int(math.Ceil(time.Until(deadline).Seconds()))
		if left <= 0 {
			break
		}

		if err := that.emitter.Emit(ctx, event.TopicEvents, event.TimerUpdate{RoomID: roomID, TimeLeft: left}); err != nil {
			log.Error("failed to publish timer update", "error", err)
		}

		select {
		case <-ctx.Done():
			log.Info("clock abandoned on shutdown")
			return
		case <-ticker.C:
		}

		if that.isFinished(ctx, roomID) {
			log.Info("room finished before the clock ran out")
			return
		}
	}

	finished, err := that.finish(ctx, log, roomID)
	if err != nil {
		log.Error("giving up on finishing room", "error", err)
		return
	}

	log.Info("clock ran out", "finished", finished)
}

// finish retries FinishRoom through store outages; a failed finish leaves the room untouched.
func (that *Referee) finish(ctx context.Context, log *slog.Logger, roomID string) (bool, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = that.tick
	policy.MaxElapsedTime = that.config.BusBudget

	return backoff.RetryNotifyWithData(
		func() (bool, error) {
			finished, err := that.session.FinishRoom(ctx, roomID)
			if errors.Is(err, apperror.ErrRoomNotFound) {
				return false, backoff.Permanent(err)
			}

			return finished, err
		},
		backoff.WithContext(policy, ctx),
		func(err error, wait time.Duration) {
			log.Warn("failed to finish room", "error", err, "retry_in", wait)
		},
	)
}

func (that *Referee) isFinished(ctx context.Context, roomID string) bool {
	room, err := that.session.RoomByID(ctx, roomID)
	if errors.Is(err, apperror.ErrRoomNotFound) {
		return true
	}

	if err != nil {
		// keep ticking; the final FinishRoom decides
		return false
	}

	return room.IsFinished()
}
