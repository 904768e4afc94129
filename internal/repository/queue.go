package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrQueueEmpty = errors.New("queue is empty")

// pushIfAbsent keeps a player in the pool at most once.
var pushIfAbsent = redis.NewScript(`
if redis.call('LPOS', KEYS[1], ARGV[1]) then
	return 0
end
redis.call('LPUSH', KEYS[1], ARGV[1])
return 1
`)

type QueueRepository interface {
	Enqueue(ctx context.Context, playerID string) (bool, error)
	DequeueBlocking(ctx context.Context, timeout time.Duration) (string, error)
	Pop(ctx context.Context) (string, error)
	PushBack(ctx context.Context, playerID string) error
	RemoveIfPresent(ctx context.Context, playerID string) (bool, error)
	Contains(ctx context.Context, playerID string) (bool, error)
	Len(ctx context.Context) (int64, error)
}

type dbQueue struct {
	client *redis.Client
}

func NewQueueRepository(client *redis.Client) QueueRepository {
	return &dbQueue{
		client: client,
	}
}

// Enqueue adds the player to the waiting pool. It returns false when the player was already waiting.
func (that *dbQueue) Enqueue(ctx context.Context, playerID string) (bool, error) {
	added, err := pushIfAbsent.Run(ctx, that.client, []string{queueKey}, playerID).Int()
	if err != nil {
		return false, storeError("enqueue player", err)
	}

	return added == 1, nil
}

// DequeueBlocking waits up to timeout for a player. Zero waits until ctx is done.
func (that *dbQueue) DequeueBlocking(ctx context.Context, timeout time.Duration) (string, error) {
	reply, err := that.client.BRPop(ctx, timeout, queueKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrQueueEmpty
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}

		return "", storeError("dequeue player", err)
	}

	// [key, value]
	if len(reply) != 2 || reply[1] == "" {
		return "", fmt.Errorf("%w: %q", ErrMalformedReply, reply)
	}

	return reply[1], nil
}

// Pop takes a player without waiting.
func (that *dbQueue) Pop(ctx context.Context) (string, error) {
	playerID, err := that.client.RPop(ctx, queueKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrQueueEmpty
	}

	if err != nil {
		return "", storeError("pop player", err)
	}

	return playerID, nil
}

// PushBack returns a popped player to the pool. A player who re-joined meanwhile is not duplicated.
func (that *dbQueue) PushBack(ctx context.Context, playerID string) error {
	if _, err := that.Enqueue(ctx, playerID); err != nil {
		return fmt.Errorf("failed to push back player: %w", err)
	}

	return nil
}

func (that *dbQueue) RemoveIfPresent(ctx context.Context, playerID string) (bool, error) {
	removed, err := that.client.LRem(ctx, queueKey, 0, playerID).Result()
	if err != nil {
		return false, storeError("remove player from queue", err)
	}

	return removed > 0, nil
}

func (that *dbQueue) Contains(ctx context.Context, playerID string) (bool, error) {
	_, err := that.client.LPos(ctx, queueKey, playerID, redis.LPosArgs{}).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}

	if err != nil {
		return false, storeError("look up player in queue", err)
	}

	return true, nil
}

func (that *dbQueue) Len(ctx context.Context) (int64, error) {
	n, err := that.client.LLen(ctx, queueKey).Result()
	if err != nil {
		return 0, storeError("count queue", err)
	}

	return n, nil
}
