package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/DanDan1134/wordle-battle/internal/apperror"
)

const (
	queueKey       = "matchmaking_queue"
	defaultRoomTTL = 2 * time.Hour
)

// Room keys share the {id} hash tag so they live in one slot on a cluster.
func roomKey(id string) string       { return fmt.Sprintf("room:{%s}", id) }
func scoresKey(id string) string     { return fmt.Sprintf("room:{%s}:scores", id) }
func wordsKey(id string) string      { return fmt.Sprintf("room:{%s}:words", id) }
func playerRoomKey(id string) string { return "player_room:" + id }

var ErrMalformedReply = errors.New("malformed reply from store")

func storeError(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, apperror.ErrStoreUnavailable, err)
}

// keyTTL guards against a zero TTL, which would make Redis drop keys immediately.
func keyTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return defaultRoomTTL
	}

	return ttl
}
