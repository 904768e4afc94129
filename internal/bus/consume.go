package bus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/DanDan1134/wordle-battle/internal/metrics"
)

const defaultPublishAttempts = 3

type Handler func(ctx context.Context, payload []byte)

// Consume delivers every message on topic to handle until ctx is done, subscribing again
// whenever the subscription drops. It returns nil on cancellation and an error wrapping
// ErrBusDisconnected once a single outage outlasts budget.
func Consume(ctx context.Context, logger *slog.Logger, subscriber Subscriber, topic string, budget time.Duration, handle Handler) error {
	log := logger.With("method", "Consume", "topic", topic)

	for attempt := 0; ; attempt++ {
		sub, err := subscribe(ctx, log, subscriber, topic, budget)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("retry budget exhausted for %s: %w", topic, err)
		}

		if attempt > 0 {
			metrics.BusResubscribes.WithLabelValues(topic).Inc()
			log.Info("resubscribed", "attempt", attempt)
		}

		for payload := range sub.Messages() {
			handle(ctx, payload)
		}

		cause := sub.Err()
		_ = sub.Close()

		if ctx.Err() != nil {
			return nil
		}

		log.Warn("subscription dropped", "error", cause)
	}
}

func subscribe(ctx context.Context, log *slog.Logger, subscriber Subscriber, topic string, budget time.Duration) (Subscription, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = budget

	return backoff.RetryNotifyWithData(
		func() (Subscription, error) {
			return subscriber.Subscribe(ctx, topic)
		},
		backoff.WithContext(policy, ctx),
		func(err error, wait time.Duration) {
			log.Warn("failed to subscribe", "error", err, "retry_in", wait)
		},
	)
}

// PublishWithRetry republishes a few times before giving up. Subscribers may still miss the
// event; this only covers a briefly unavailable bus.
func PublishWithRetry(ctx context.Context, publisher Publisher, topic string, payload []byte) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 50 * time.Millisecond

	return backoff.Retry(
		func() error {
			return publisher.Publish(ctx, topic, payload)
		},
		backoff.WithContext(backoff.WithMaxRetries(policy, defaultPublishAttempts), ctx),
	)
}
