package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// scoreSolve swaps the solved word for the next one and adds the point in one step, so a
// solve is counted at most once however often it is resubmitted.
var scoreSolve = redis.NewScript(`
if redis.call('HGET', KEYS[1], ARGV[1]) ~= ARGV[2] then
	return -1
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[3])
return redis.call('HINCRBY', KEYS[2], ARGV[1], 1)
`)

type ScoreRepository interface {
	ScoreSolve(ctx context.Context, roomID, playerID, solved, next string) (int64, bool, error)
	GetScores(ctx context.Context, roomID string) (map[string]int64, error)
}

type dbScore struct {
	client *redis.Client
}

func NewScoreRepository(client *redis.Client) ScoreRepository {
	return &dbScore{
		client: client,
	}
}

// ScoreSolve atomically adds one point and returns the stored total, but only while solved is
// still the player's word. It reports whether the point was added.
func (that *dbScore) ScoreSolve(ctx context.Context, roomID, playerID, solved, next string) (int64, bool, error) {
	keys := []string{wordsKey(roomID), scoresKey(roomID)}

	score, err := scoreSolve.Run(ctx, that.client, keys, playerID, solved, next).Int64()
	if err != nil {
		return 0, false, storeError("score solve", err)
	}

	if score < 0 {
		return 0, false, nil
	}

	return score, true, nil
}

func (that *dbScore) GetScores(ctx context.Context, roomID string) (map[string]int64, error) {
	fields, err := that.client.HGetAll(ctx, scoresKey(roomID)).Result()
	if err != nil {
		return nil, storeError("get scores", err)
	}

	scores := make(map[string]int64, len(fields))
	for playerID, raw := range fields {
		score, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: score of %s: %w", ErrMalformedReply, playerID, err)
		}

		scores[playerID] = score
	}

	return scores, nil
}
