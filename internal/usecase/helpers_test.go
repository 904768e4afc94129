package usecase

import (
	"context"
	"sync"

	"github.com/DanDan1134/wordle-battle/internal/entity"
	"github.com/DanDan1134/wordle-battle/internal/event"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []event.Event
	err    error
}

func (that *recordingEmitter) Emit(_ context.Context, _ string, e event.Event) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.events = append(that.events, e)

	return that.err
}

func (that *recordingEmitter) EmitWithRetry(ctx context.Context, topic string, e event.Event) error {
	return that.Emit(ctx, topic, e)
}

func (that *recordingEmitter) snapshot() []event.Event {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]event.Event(nil), that.events...)
}

// ofType keeps the events of one concrete type, in publish order.
func ofType[T event.Event](events []event.Event) []T {
	var out []T
	for _, e := range events {
		if typed, ok := e.(T); ok {
			out = append(out, typed)
		}
	}

	return out
}

type fakeRecorder struct {
	mu       sync.Mutex
	failures int
	results  []entity.MatchResult
}

func (that *fakeRecorder) RecordMatch(_ context.Context, result entity.MatchResult) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.failures > 0 {
		that.failures--
		return errRecorderDown
	}

	that.results = append(that.results, result)

	return nil
}

func (that *fakeRecorder) recorded() []entity.MatchResult {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]entity.MatchResult(nil), that.results...)
}

// sequenceVocabulary hands out answers in order, wrapping around.
type sequenceVocabulary struct {
	mu      sync.Mutex
	answers []string
	next    int
}

func (that *sequenceVocabulary) WordLength() int {
	return 5
}

func (that *sequenceVocabulary) IsValid(word string) bool {
	for _, answer := range that.answers {
		if answer == word {
			return true
		}
	}

	return false
}

func (that *sequenceVocabulary) RandomAnswer() string {
	that.mu.Lock()
	defer that.mu.Unlock()

	answer := that.answers[that.next%len(that.answers)]
	that.next++

	return answer
}
