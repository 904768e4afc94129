package bus

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DanDan1134/wordle-battle/internal/apperror"
)

const defaultHealthInterval = 15 * time.Second

type RedisBus struct {
	client         *redis.Client
	healthInterval time.Duration
}

func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{
		client:         client,
		healthInterval: defaultHealthInterval,
	}
}

func (that *RedisBus) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := that.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w: %w", topic, apperror.ErrBusDisconnected, err)
	}

	return nil
}

// Subscribe waits for the server to confirm the subscription before returning.
func (that *RedisBus) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	pubsub := that.client.Subscribe(ctx, topic)

	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w: %w", topic, apperror.ErrBusDisconnected, err)
	}

	sub := newSubscription(pubsub.Close)

	go that.pump(ctx, pubsub, sub)

	return sub, nil
}

// pump reads until the connection fails. It never lets go-redis reconnect behind the caller's back.
func (that *RedisBus) pump(ctx context.Context, pubsub *redis.PubSub, sub *subscription) {
	defer close(sub.messages)

	for {
		msg, err := pubsub.ReceiveTimeout(ctx, that.healthInterval)
		if err != nil {
			select {
			case <-sub.done:
				return
			default:
			}

			if ctx.Err() != nil {
				sub.terminate(nil)
				return
			}

			if isTimeout(err) {
				if err = pubsub.Ping(ctx); err == nil {
					continue
				}
			}

			sub.terminate(fmt.Errorf("%w: %w", apperror.ErrBusDisconnected, err))
			return
		}

		switch m := msg.(type) {
		case *redis.Message:
			if !sub.deliver(ctx, []byte(m.Payload)) {
				return
			}
		case *redis.Subscription:
			if m.Count == 0 {
				sub.terminate(fmt.Errorf("%w: unsubscribed from %s", apperror.ErrBusDisconnected, m.Channel))
				return
			}
		case *redis.Pong:
		}
	}
}

func (that *RedisBus) Close() error {
	return nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
