package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanDan1134/wordle-battle/internal/apperror"
	"github.com/DanDan1134/wordle-battle/testing/suite"
)

// scriptedSubscriber hands out subscriptions fed by the test, failing while down is set.
type scriptedSubscriber struct {
	mu    sync.Mutex
	down  bool
	calls int
	subs  chan *subscription
}

func newScriptedSubscriber() *scriptedSubscriber {
	return &scriptedSubscriber{
		subs: make(chan *subscription, 8),
	}
}

func (that *scriptedSubscriber) Subscribe(_ context.Context, _ string) (Subscription, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.calls++
	if that.down {
		return nil, apperror.ErrBusDisconnected
	}

	sub := newSubscription(func() error { return nil })
	that.subs <- sub

	return sub, nil
}

func (that *scriptedSubscriber) setDown(down bool) {
	that.mu.Lock()
	that.down = down
	that.mu.Unlock()
}

// drop ends a subscription the way a driver does after a lost connection.
func drop(sub *subscription) {
	sub.terminate(apperror.ErrBusDisconnected)
	close(sub.messages)
}

func TestConsume_ResubscribesAfterDrop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	subscriber := newScriptedSubscriber()
	received := make(chan string, 4)

	done := make(chan error, 1)
	go func() {
		done <- Consume(ctx, suite.NewLogger(), subscriber, "events", time.Second, func(_ context.Context, payload []byte) {
			received <- string(payload)
		})
	}()

	// Given: a first subscription that delivers and then drops
	first := <-subscriber.subs
	first.messages <- []byte("one")
	assert.Equal(t, "one", <-received)
	drop(first)

	// When: the consumer subscribes again
	second := <-subscriber.subs
	second.messages <- []byte("two")

	// Then: delivery continues on the new subscription
	assert.Equal(t, "two", <-received)

	// When: the context is cancelled
	cancel()
	drop(second)

	// Then: Consume ends cleanly
	require.NoError(t, <-done)
}

func TestConsume_BudgetExhausted(t *testing.T) {
	subscriber := newScriptedSubscriber()
	subscriber.setDown(true)

	// When: the bus never comes back
	err := Consume(context.Background(), suite.NewLogger(), subscriber, "events", 300*time.Millisecond, func(context.Context, []byte) {})

	// Then: the consumer gives up with a disconnect error
	require.ErrorIs(t, err, apperror.ErrBusDisconnected)
	assert.Greater(t, subscriber.calls, 1)
}

type flakyPublisher struct {
	failures int
	calls    int
}

func (that *flakyPublisher) Publish(context.Context, string, []byte) error {
	that.calls++
	if that.calls <= that.failures {
		return errors.Join(apperror.ErrBusDisconnected, errors.New("connection refused"))
	}

	return nil
}

func TestPublishWithRetry(t *testing.T) {
	t.Run("recovers from a short outage", func(t *testing.T) {
		publisher := &flakyPublisher{failures: 2}

		require.NoError(t, PublishWithRetry(context.Background(), publisher, "events", []byte("x")))
		assert.Equal(t, 3, publisher.calls)
	})

	t.Run("gives up after a bounded number of attempts", func(t *testing.T) {
		publisher := &flakyPublisher{failures: 100}

		err := PublishWithRetry(context.Background(), publisher, "events", []byte("x"))

		require.ErrorIs(t, err, apperror.ErrBusDisconnected)
		assert.Equal(t, defaultPublishAttempts+1, publisher.calls)
	})
}
