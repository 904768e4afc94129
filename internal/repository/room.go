package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DanDan1134/wordle-battle/internal/apperror"
	"github.com/DanDan1134/wordle-battle/internal/entity"
)

var ErrRoomAlreadyExists = errors.New("room already exists")

// createRoom writes the room hash and zeroed scores once; a second call for the same id is a no-op.
var createRoom = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], 'id', ARGV[1], 'player1', ARGV[2], 'player2', ARGV[3], 'status', ARGV[4], 'created_at', ARGV[5])
redis.call('HSET', KEYS[2], ARGV[2], 0, ARGV[3], 0)
redis.call('PEXPIRE', KEYS[1], ARGV[6])
redis.call('PEXPIRE', KEYS[2], ARGV[6])
return 1
`)

// transitionRoom moves status to ARGV[1] only from one of ARGV[2..].
var transitionRoom = redis.NewScript(`
local status = redis.call('HGET', KEYS[1], 'status')
if not status then
	return -1
end
for i = 2, #ARGV do
	if status == ARGV[i] then
		redis.call('HSET', KEYS[1], 'status', ARGV[1])
		return 1
	end
end
return 0
`)

// clearIfEquals deletes the key only while it still holds ARGV[1].
var clearIfEquals = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

type RoomRepository interface {
	Create(ctx context.Context, room *entity.Room) error
	GetByID(ctx context.Context, id string) (*entity.Room, error)
	Transition(ctx context.Context, id string, from []entity.RoomStatus, to entity.RoomStatus) (bool, error)
	SetPlayerRoom(ctx context.Context, playerID, roomID string) (bool, error)
	PlayerRoom(ctx context.Context, playerID string) (string, error)
	ClearPlayerRoom(ctx context.Context, playerID, roomID string) error
	DeleteByID(ctx context.Context, id string) error
}

type dbRoom struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRoomRepository(client *redis.Client, ttl time.Duration) RoomRepository {
	return &dbRoom{
		client: client,
		ttl:    keyTTL(ttl),
	}
}

func (that *dbRoom) Create(ctx context.Context, room *entity.Room) error {
	keys := []string{roomKey(room.ID), scoresKey(room.ID)}
	args := []any{
		room.ID,
		room.Players[0],
		room.Players[1],
		string(room.Status),
		room.CreatedAt.UTC().Format(time.RFC3339Nano),
		that.ttl.Milliseconds(),
	}

	created, err := createRoom.Run(ctx, that.client, keys, args...).Int()
	if err != nil {
		return storeError("create room", err)
	}

	if created == 0 {
		return fmt.Errorf("%w: %s", ErrRoomAlreadyExists, room.ID)
	}

	return nil
}

func (that *dbRoom) GetByID(ctx context.Context, id string) (*entity.Room, error) {
	fields, err := that.client.HGetAll(ctx, roomKey(id)).Result()
	if err != nil {
		return nil, storeError("get room", err)
	}

	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, id)
	}

	status, err := entity.ParseRoomStatus(fields["status"])
	if err != nil {
		return nil, fmt.Errorf("%w: room %s: %w", ErrMalformedReply, id, err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("%w: room %s created_at: %w", ErrMalformedReply, id, err)
	}

	return &entity.Room{
		ID:        fields["id"],
		Players:   [2]string{fields["player1"], fields["player2"]},
		Status:    status,
		CreatedAt: createdAt,
	}, nil
}

// Transition is a compare-and-set on the room status. It reports whether this caller made the move.
func (that *dbRoom) Transition(ctx context.Context, id string, from []entity.RoomStatus, to entity.RoomStatus) (bool, error) {
	args := make([]any, 0, len(from)+1)
	args = append(args, string(to))
	for _, status := range from {
		args = append(args, string(status))
	}

	moved, err := transitionRoom.Run(ctx, that.client, []string{roomKey(id)}, args...).Int()
	if err != nil {
		return false, storeError("transition room", err)
	}

	if moved < 0 {
		return false, fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, id)
	}

	return moved == 1, nil
}

// SetPlayerRoom seats a player in roomID unless they already have a live room, and reports
// whether it did.
func (that *dbRoom) SetPlayerRoom(ctx context.Context, playerID, roomID string) (bool, error) {
	seated, err := that.client.SetNX(ctx, playerRoomKey(playerID), roomID, that.ttl).Result()
	if err != nil {
		return false, storeError("index player room", err)
	}

	return seated, nil
}

// PlayerRoom returns the live room of a player, or "" when there is none.
func (that *dbRoom) PlayerRoom(ctx context.Context, playerID string) (string, error) {
	roomID, err := that.client.Get(ctx, playerRoomKey(playerID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}

	if err != nil {
		return "", storeError("get player room", err)
	}

	return roomID, nil
}

// ClearPlayerRoom drops the index only if it still points at roomID.
func (that *dbRoom) ClearPlayerRoom(ctx context.Context, playerID, roomID string) error {
	if err := clearIfEquals.Run(ctx, that.client, []string{playerRoomKey(playerID)}, roomID).Err(); err != nil {
		return storeError("clear player room", err)
	}

	return nil
}

func (that *dbRoom) DeleteByID(ctx context.Context, id string) error {
	if err := that.client.Del(ctx, roomKey(id), scoresKey(id), wordsKey(id)).Err(); err != nil {
		return storeError("delete room", err)
	}

	return nil
}
