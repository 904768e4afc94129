// Package bus carries events between server processes.
//
// Publishing is fire-and-forget: a failed Publish is reported to the caller and never
// retried here. A Subscription lasts as long as its underlying connection; once it drops,
// Messages is closed, Err reports apperror.ErrBusDisconnected, and the caller must
// subscribe again. Events published while nobody is subscribed are lost.
package bus

import (
	"context"
	"sync"
)

type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (Subscription, error)
}

type Bus interface {
	Publisher
	Subscriber
	Close() error
}

type Subscription interface {
	// Messages is closed when the subscription ends for any reason.
	Messages() <-chan []byte
	// Err is nil after a clean Close or cancellation, ErrBusDisconnected otherwise.
	Err() error
	Close() error
}

const messageBuffer = 64

// subscription is shared by the drivers. Only the driver's pump goroutine sends on or closes messages.
type subscription struct {
	messages chan []byte
	done     chan struct{}
	once     sync.Once
	stop     func() error

	mu  sync.Mutex
	err error
}

func newSubscription(stop func() error) *subscription {
	return &subscription{
		messages: make(chan []byte, messageBuffer),
		done:     make(chan struct{}),
		stop:     stop,
	}
}

func (that *subscription) Messages() <-chan []byte {
	return that.messages
}

func (that *subscription) Err() error {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.err
}

func (that *subscription) Close() error {
	that.terminate(nil)

	return that.stop()
}

// terminate records the first cause and signals the pump to stop.
func (that *subscription) terminate(err error) {
	that.once.Do(func() {
		that.mu.Lock()
		that.err = err
		that.mu.Unlock()

		close(that.done)
	})
}

func (that *subscription) deliver(ctx context.Context, payload []byte) bool {
	select {
	case that.messages <- payload:
		return true
	case <-that.done:
		return false
	case <-ctx.Done():
		return false
	}
}
