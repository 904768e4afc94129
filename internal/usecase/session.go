package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"

	"github.com/DanDan1134/wordle-battle/internal/apperror"
	"github.com/DanDan1134/wordle-battle/internal/entity"
	"github.com/DanDan1134/wordle-battle/internal/event"
	"github.com/DanDan1134/wordle-battle/internal/metrics"
	"github.com/DanDan1134/wordle-battle/internal/words"
)

const (
	defaultRecordBudget = time.Minute

	scoreReadInterval = 50 * time.Millisecond
	scoreReadRetries  = 3
)

type GameSession interface {
	SubmitGuess(ctx context.Context, playerID, roomID, guess string) (*entity.GuessResult, error)
	EnterRoom(ctx context.Context, playerID, roomID string) (*entity.Room, error)
	RoomByID(ctx context.Context, roomID string) (*entity.Room, error)

	StartRoom(ctx context.Context, roomID string) (bool, error)
	FinishRoom(ctx context.Context, roomID string) (bool, error)

	// Wait blocks until every pending match record has been written or abandoned.
	Wait()
}

// MatchRecorder persists finished matches. RecordMatch must be idempotent per room.
type MatchRecorder interface {
	RecordMatch(ctx context.Context, result entity.MatchResult) error
}

type roomRepo interface {
	GetByID(ctx context.Context, id string) (*entity.Room, error)
	Transition(ctx context.Context, id string, from []entity.RoomStatus, to entity.RoomStatus) (bool, error)
	PlayerRoom(ctx context.Context, playerID string) (string, error)
	ClearPlayerRoom(ctx context.Context, playerID, roomID string) error
	DeleteByID(ctx context.Context, id string) error
}

type wordRepo interface {
	GetWord(ctx context.Context, roomID, playerID string) (string, error)
	AssignIfAbsent(ctx context.Context, roomID, playerID, word string) (string, error)
}

type scoreRepo interface {
	ScoreSolve(ctx context.Context, roomID, playerID, solved, next string) (int64, bool, error)
	GetScores(ctx context.Context, roomID string) (map[string]int64, error)
}

type vocabulary interface {
	WordLength() int
	IsValid(word string) bool
	RandomAnswer() string
}

type eventEmitter interface {
	Emit(ctx context.Context, topic string, e event.Event) error
	EmitWithRetry(ctx context.Context, topic string, e event.Event) error
}

type SessionConfig struct {
	// WinScore finishes a room as soon as a player reaches it. Zero plays to the clock.
	WinScore          int64
	RequireDictionary bool
	RecordBudget      time.Duration
}

type gameSession struct {
	logger   *slog.Logger
	rooms    roomRepo
	words    wordRepo
	scores   scoreRepo
	vocab    vocabulary
	emitter  eventEmitter
	recorder MatchRecorder
	config   SessionConfig

	pending sync.WaitGroup
	now     func() time.Time
}

func NewGameSession(
	logger *slog.Logger,
	rooms roomRepo,
	words wordRepo,
	scores scoreRepo,
	vocab vocabulary,
	emitter eventEmitter,
	recorder MatchRecorder,
	config SessionConfig,
) GameSession {
	if config.RecordBudget <= 0 {
		config.RecordBudget = defaultRecordBudget
	}

	return &gameSession{
		logger:   logger.With("component", "game_session"),
		rooms:    rooms,
		words:    words,
		scores:   scores,
		vocab:    vocab,
		emitter:  emitter,
		recorder: recorder,
		config:   config,
		now:      time.Now,
	}
}

func (that *gameSession) SubmitGuess(ctx context.Context, playerID, roomID, guess string) (*entity.GuessResult, error) {
	log := that.logger.With("method", "SubmitGuess", "room_id", roomID, "player_id", playerID)

	guess = words.Normalize(guess)
	if err := that.validateGuess(playerID, guess); err != nil {
		metrics.Guesses.WithLabelValues("rejected").Inc()
		return nil, err
	}

	room, err := that.EnterRoom(ctx, playerID, roomID)
	if err != nil {
		metrics.Guesses.WithLabelValues("rejected").Inc()
		return nil, err
	}

	if room.IsFinished() {
		metrics.Guesses.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: %s", apperror.ErrRoomFinished, roomID)
	}

	target, err := that.words.AssignIfAbsent(ctx, roomID, playerID, that.vocab.RandomAnswer())
	if err != nil {
		return nil, fmt.Errorf("failed to get secret word: %w", err)
	}

	marks, err := words.Evaluate(target, guess)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate guess: %w", err)
	}

	result := &entity.GuessResult{
		Marks:  marks,
		Solved: entity.AllCorrect(marks),
	}

	if !result.Solved {
		metrics.Guesses.WithLabelValues("miss").Inc()
		return result, nil
	}

	scored, err := that.onSolved(ctx, room, playerID, target)
	if err != nil {
		return nil, err
	}

	if !scored {
		// the word was already solved by an earlier copy of this guess
		metrics.Guesses.WithLabelValues("stale").Inc()
		log.Info("solve already counted")
		return that.regrade(ctx, roomID, playerID, guess)
	}

	metrics.Guesses.WithLabelValues("solved").Inc()
	log.Info("word solved")

	return result, nil
}

// regrade marks guess against the word the player holds now. It never reports a solve.
func (that *gameSession) regrade(ctx context.Context, roomID, playerID, guess string) (*entity.GuessResult, error) {
	current, err := that.words.GetWord(ctx, roomID, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get secret word: %w", err)
	}

	marks, err := words.Evaluate(current, guess)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate guess: %w", err)
	}

	return &entity.GuessResult{Marks: marks}, nil
}

// validateGuess runs the checks that need no store access.
func (that *gameSession) validateGuess(playerID, guess string) error {
	if playerID == "" {
		return apperror.ErrNotAuthenticated
	}

	if n := utf8.RuneCountInString(guess); n != that.vocab.WordLength() {
		return fmt.Errorf("%w: want %d letters, got %d", apperror.ErrInvalidGuessLength, that.vocab.WordLength(), n)
	}

	if !words.IsAlpha(guess) {
		return apperror.ErrGuessNotAlphabetic
	}

	if that.config.RequireDictionary && !that.vocab.IsValid(guess) {
		return fmt.Errorf("%w: %s", apperror.ErrNotInWordList, guess)
	}

	return nil
}

// onSolved credits the solve and hands out the next word. It reports false when solved is no
// longer the player's word, in which case nothing changed.
func (that *gameSession) onSolved(ctx context.Context, room *entity.Room, playerID, solved string) (bool, error) {
	log := that.logger.With("method", "onSolved", "room_id", room.ID, "player_id", playerID)

	score, scored, err := that.scores.ScoreSolve(ctx, room.ID, playerID, solved, that.nextAnswer(solved))
	if err != nil {
		return false, fmt.Errorf("failed to score solve: %w", err)
	}

	if !scored {
		return false, nil
	}

	// the point is stored; anything failing past here is only logged

	// broadcast what the store holds, never a delta
	scores, err := that.scores.GetScores(ctx, room.ID)
	if err != nil {
		log.Error("failed to read scores", "error", err)
	} else if err = that.emitter.EmitWithRetry(ctx, event.TopicEvents, event.ScoreUpdate{RoomID: room.ID, Scores: scores}); err != nil {
		log.Error("failed to publish score update", "error", err)
	}

	newWord := event.NewWordAssigned{RoomID: room.ID, PlayerID: playerID, WordLength: that.vocab.WordLength()}
	if err = that.emitter.EmitWithRetry(ctx, event.TopicEvents, newWord); err != nil {
		log.Error("failed to publish new word", "error", err)
	}

	if that.config.WinScore > 0 && score >= that.config.WinScore {
		if _, err = that.FinishRoom(ctx, room.ID); err != nil {
			log.Error("failed to finish room at win score", "error", err)
		}
	}

	return true, nil
}

// nextAnswer avoids handing out the word that was just solved when the vocabulary allows it.
func (that *gameSession) nextAnswer(previous string) string {
	next := that.vocab.RandomAnswer()
	for range 3 {
		if next != previous {
			break
		}
		next = that.vocab.RandomAnswer()
	}

	return next
}

func (that *gameSession) EnterRoom(ctx context.Context, playerID, roomID string) (*entity.Room, error) {
	if playerID == "" {
		return nil, apperror.ErrNotAuthenticated
	}

	room, err := that.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if !room.HasPlayer(playerID) {
		return nil, fmt.Errorf("%w: %s", apperror.ErrNotInRoom, roomID)
	}

	return room, nil
}

func (that *gameSession) RoomByID(ctx context.Context, roomID string) (*entity.Room, error) {
	return that.rooms.GetByID(ctx, roomID)
}

// StartRoom reports true only to the caller that moved the room out of forming.
func (that *gameSession) StartRoom(ctx context.Context, roomID string) (bool, error) {
	started, err := that.rooms.Transition(ctx, roomID, []entity.RoomStatus{entity.StatusForming}, entity.StatusActive)
	if err != nil {
		return false, fmt.Errorf("failed to start room: %w", err)
	}

	return started, nil
}

// FinishRoom ends the room once. Only the caller that made the transition publishes game_over
// and schedules the result record. Everything game_over needs is read first, so a store error
// returns with the room untouched and the call can simply be repeated.
func (that *gameSession) FinishRoom(ctx context.Context, roomID string) (bool, error) {
	log := that.logger.With("method", "FinishRoom", "room_id", roomID)

	room, err := that.rooms.GetByID(ctx, roomID)
	if err != nil {
		return false, fmt.Errorf("failed to read room: %w", err)
	}

	if room.IsFinished() {
		return false, nil
	}

	scores, err := that.scores.GetScores(ctx, roomID)
	if err != nil {
		return false, fmt.Errorf("failed to read scores: %w", err)
	}

	finished, err := that.rooms.Transition(ctx, roomID,
		[]entity.RoomStatus{entity.StatusForming, entity.StatusActive}, entity.StatusFinished)
	if err != nil {
		return false, fmt.Errorf("failed to finish room: %w", err)
	}

	if !finished {
		return false, nil
	}

	scores = that.finalScores(ctx, log, roomID, scores)

	for _, playerID := range room.Players {
		if err = that.rooms.ClearPlayerRoom(ctx, playerID, roomID); err != nil {
			log.Error("failed to clear player room", "player_id", playerID, "error", err)
		}
	}

	result := entity.NewMatchResult(room, scores, that.now().UTC())

	if err = that.emitter.EmitWithRetry(ctx, event.TopicEvents, event.GameOver{RoomID: roomID, FinalScores: result.Scores}); err != nil {
		log.Error("failed to publish game over", "error", err)
	}

	log.Info("room finished", "winner_id", result.WinnerID, "scores", result.Scores)

	that.pending.Add(1)
	go func() {
		defer that.pending.Done()
		that.record(context.WithoutCancel(ctx), result)
	}()

	return true, nil
}

// finalScores rereads the scores to pick up a solve that landed just before the transition.
// When the store stays down it settles for the earlier read.
func (that *gameSession) finalScores(ctx context.Context, log *slog.Logger, roomID string, earlier map[string]int64) map[string]int64 {
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(scoreReadInterval), scoreReadRetries)

	scores, err := backoff.RetryNotifyWithData(
		func() (map[string]int64, error) {
			return that.scores.GetScores(ctx, roomID)
		},
		backoff.WithContext(policy, ctx),
		func(err error, wait time.Duration) {
			log.Warn("failed to reread final scores", "error", err, "retry_in", wait)
		},
	)
	if err != nil {
		log.Error("using scores read before the transition", "error", err)
		return earlier
	}

	return scores
}

// record persists the result, then announces it and drops the room's keys. When the
// recorder stays down the keys are left to expire.
func (that *gameSession) record(ctx context.Context, result entity.MatchResult) {
	log := that.logger.With("method", "record", "room_id", result.RoomID)

	ctx, cancel := context.WithTimeout(ctx, that.config.RecordBudget)
	defer cancel()

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = that.config.RecordBudget

	err := backoff.RetryNotify(
		func() error {
			return that.recorder.RecordMatch(ctx, result)
		},
		backoff.WithContext(policy, ctx),
		func(err error, wait time.Duration) {
			log.Warn("failed to record match", "error", err, "retry_in", wait)
		},
	)
	if err != nil {
		log.Error("giving up on match record", "error", err)
		return
	}

	saved := event.MatchResultSaved{RoomID: result.RoomID, WinnerID: result.WinnerID, Scores: result.Scores}
	if err = that.emitter.EmitWithRetry(ctx, event.TopicEvents, saved); err != nil {
		log.Error("failed to publish match result", "error", err)
	}

	if err = that.rooms.DeleteByID(ctx, result.RoomID); err != nil {
		log.Error("failed to delete room", "error", err)
	}
}

func (that *gameSession) Wait() {
	that.pending.Wait()
}
