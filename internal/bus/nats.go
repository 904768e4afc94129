package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/DanDan1134/wordle-battle/internal/apperror"
)

// NATSBus uses core NATS subjects. Live subscriptions are terminated on every disconnect
// even though the client itself reconnects, so consumers always see the gap.
type NATSBus struct {
	conn   *nats.Conn
	logger *slog.Logger

	mu   sync.Mutex
	subs map[*subscription]struct{}
}

func NewNATSBus(url string, logger *slog.Logger) (*NATSBus, error) {
	that := &NATSBus{
		logger: logger.With("component", "nats_bus"),
		subs:   make(map[*subscription]struct{}),
	}

	conn, err := nats.Connect(url,
		nats.Name("wordle-battle"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			that.logger.Warn("disconnected from nats", "error", err)
			that.dropAll(err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			that.logger.Info("reconnected to nats", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			that.dropAll(nats.ErrConnectionClosed)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w: %w", apperror.ErrBusDisconnected, err)
	}

	that.conn = conn

	return that, nil
}

func (that *NATSBus) Publish(_ context.Context, topic string, payload []byte) error {
	if err := that.conn.Publish(topic, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w: %w", topic, apperror.ErrBusDisconnected, err)
	}

	return nil
}

func (that *NATSBus) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	if !that.conn.IsConnected() {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, apperror.ErrBusDisconnected)
	}

	raw := make(chan *nats.Msg, messageBuffer)

	natsSub, err := that.conn.ChanSubscribe(topic, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w: %w", topic, apperror.ErrBusDisconnected, err)
	}

	// the server must have the interest before we report success
	if err = that.conn.FlushWithContext(ctx); err != nil {
		_ = natsSub.Unsubscribe()
		return nil, fmt.Errorf("failed to subscribe to %s: %w: %w", topic, apperror.ErrBusDisconnected, err)
	}

	var sub *subscription
	sub = newSubscription(func() error {
		that.forget(sub)

		err := natsSub.Unsubscribe()
		if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubscription) {
			return nil
		}

		return err
	})

	that.mu.Lock()
	that.subs[sub] = struct{}{}
	that.mu.Unlock()

	go that.pump(ctx, raw, sub)

	return sub, nil
}

func (that *NATSBus) pump(ctx context.Context, raw <-chan *nats.Msg, sub *subscription) {
	defer close(sub.messages)

	for {
		select {
		case <-sub.done:
			return
		case <-ctx.Done():
			sub.terminate(nil)
			return
		case msg := <-raw:
			if !sub.deliver(ctx, msg.Data) {
				return
			}
		}
	}
}

func (that *NATSBus) dropAll(cause error) {
	that.mu.Lock()
	subs := that.subs
	that.subs = make(map[*subscription]struct{})
	that.mu.Unlock()

	if cause == nil {
		cause = errors.New("connection lost")
	}

	for sub := range subs {
		sub.terminate(fmt.Errorf("%w: %w", apperror.ErrBusDisconnected, cause))

		if err := sub.stop(); err != nil {
			that.logger.Warn("failed to unsubscribe", "error", err)
		}
	}
}

func (that *NATSBus) forget(sub *subscription) {
	that.mu.Lock()
	delete(that.subs, sub)
	that.mu.Unlock()
}

func (that *NATSBus) Close() error {
	that.conn.Close()

	return nil
}
