package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrWordNotAssigned = errors.New("no word assigned")

type WordRepository interface {
	GetWord(ctx context.Context, roomID, playerID string) (string, error)
	AssignIfAbsent(ctx context.Context, roomID, playerID, word string) (string, error)
}

type dbWord struct {
	client *redis.Client
	ttl    time.Duration
}

func NewWordRepository(client *redis.Client, ttl time.Duration) WordRepository {
	return &dbWord{
		client: client,
		ttl:    keyTTL(ttl),
	}
}

func (that *dbWord) GetWord(ctx context.Context, roomID, playerID string) (string, error) {
	word, err := that.client.HGet(ctx, wordsKey(roomID), playerID).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrWordNotAssigned
	}

	if err != nil {
		return "", storeError("get word", err)
	}

	return word, nil
}

// AssignIfAbsent stores word unless the player already has one, and returns whichever word is stored.
func (that *dbWord) AssignIfAbsent(ctx context.Context, roomID, playerID, word string) (string, error) {
	key := wordsKey(roomID)

	var current *redis.StringCmd
	_, err := that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, key, playerID, word)
		pipe.Expire(ctx, key, that.ttl)
		current = pipe.HGet(ctx, key, playerID)
		return nil
	})
	if err != nil {
		return "", storeError("assign word", err)
	}

	return current.Val(), nil
}
