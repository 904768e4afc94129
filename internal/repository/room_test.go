package repository

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanDan1134/wordle-battle/internal/apperror"
	"github.com/DanDan1134/wordle-battle/internal/entity"
	"github.com/DanDan1134/wordle-battle/testing/suite"
)

func newTestRoom(t *testing.T, id string) *entity.Room {
	t.Helper()

	room, err := entity.NewRoom(id, "alice", "bob")
	require.NoError(t, err)

	return room
}

func TestRoomRepository_Create(t *testing.T) {
	ctx, st := suite.New(t)

	roomRepo := NewRoomRepository(st.Storage, time.Hour)
	scoreRepo := NewScoreRepository(st.Storage)

	// Given: a new room
	room := newTestRoom(t, "room-1")

	// When: it is created
	require.NoError(t, roomRepo.Create(ctx, room))

	// Then: it can be read back with zeroed scores
	stored, err := roomRepo.GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, room.ID, stored.ID)
	assert.Equal(t, room.Players, stored.Players)
	assert.Equal(t, entity.StatusForming, stored.Status)
	assert.WithinDuration(t, room.CreatedAt, stored.CreatedAt, time.Millisecond)

	scores, err := scoreRepo.GetScores(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"alice": 0, "bob": 0}, scores)

	// Then: the same room cannot be created twice
	err = roomRepo.Create(ctx, room)
	require.ErrorIs(t, err, ErrRoomAlreadyExists)
}

func TestRoomRepository_GetByID_NotFound(t *testing.T) {
	ctx, st := suite.New(t)

	roomRepo := NewRoomRepository(st.Storage, time.Hour)

	room, err := roomRepo.GetByID(ctx, "9999999")

	require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	assert.Nil(t, room)
}

func TestRoomRepository_Transition(t *testing.T) {
	t.Run("follows the lifecycle", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage, time.Hour)
		room := newTestRoom(t, "room-1")
		require.NoError(t, roomRepo.Create(ctx, room))

		moved, err := roomRepo.Transition(ctx, room.ID, []entity.RoomStatus{entity.StatusForming}, entity.StatusActive)
		require.NoError(t, err)
		assert.True(t, moved)

		// a second start is refused
		moved, err = roomRepo.Transition(ctx, room.ID, []entity.RoomStatus{entity.StatusForming}, entity.StatusActive)
		require.NoError(t, err)
		assert.False(t, moved)

		moved, err = roomRepo.Transition(ctx, room.ID, []entity.RoomStatus{entity.StatusForming, entity.StatusActive}, entity.StatusFinished)
		require.NoError(t, err)
		assert.True(t, moved)

		stored, err := roomRepo.GetByID(ctx, room.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsFinished())
	})

	t.Run("only one concurrent caller finishes", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage, time.Hour)
		room := newTestRoom(t, "room-2")
		require.NoError(t, roomRepo.Create(ctx, room))

		var (
			wg      sync.WaitGroup
			winners atomic.Int32
		)

		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()

				moved, err := roomRepo.Transition(ctx, room.ID, []entity.RoomStatus{entity.StatusForming, entity.StatusActive}, entity.StatusFinished)
				if err == nil && moved {
					winners.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), winners.Load())
	})

	t.Run("unknown room", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage, time.Hour)

		_, err := roomRepo.Transition(ctx, "nope", []entity.RoomStatus{entity.StatusForming}, entity.StatusActive)

		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})
}

func TestRoomRepository_PlayerRoom(t *testing.T) {
	ctx, st := suite.New(t)

	roomRepo := NewRoomRepository(st.Storage, time.Hour)

	// Given: alice is indexed into room-1
	seated, err := roomRepo.SetPlayerRoom(ctx, "alice", "room-1")
	require.NoError(t, err)
	require.True(t, seated)

	// When: another room tries to seat her
	seated, err = roomRepo.SetPlayerRoom(ctx, "alice", "room-2")
	require.NoError(t, err)

	// Then: she keeps the first one
	assert.False(t, seated)

	roomID, err := roomRepo.PlayerRoom(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "room-1", roomID)

	// When: a stale clear for another room arrives
	require.NoError(t, roomRepo.ClearPlayerRoom(ctx, "alice", "room-0"))

	// Then: the index is untouched
	roomID, err = roomRepo.PlayerRoom(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "room-1", roomID)

	// When: the matching clear arrives
	require.NoError(t, roomRepo.ClearPlayerRoom(ctx, "alice", "room-1"))

	roomID, err = roomRepo.PlayerRoom(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, roomID)
}

func TestRoomRepository_DeleteByID(t *testing.T) {
	ctx, st := suite.New(t)

	roomRepo := NewRoomRepository(st.Storage, time.Hour)
	wordRepo := NewWordRepository(st.Storage, time.Hour)

	room := newTestRoom(t, "room-1")
	require.NoError(t, roomRepo.Create(ctx, room))
	_, err := wordRepo.AssignIfAbsent(ctx, room.ID, "alice", "CRANE")
	require.NoError(t, err)

	require.NoError(t, roomRepo.DeleteByID(ctx, room.ID))

	_, err = roomRepo.GetByID(ctx, room.ID)
	require.ErrorIs(t, err, apperror.ErrRoomNotFound)

	_, err = wordRepo.GetWord(ctx, room.ID, "alice")
	require.ErrorIs(t, err, ErrWordNotAssigned)
}
