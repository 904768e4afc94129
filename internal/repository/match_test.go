package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanDan1134/wordle-battle/internal/entity"
	"github.com/DanDan1134/wordle-battle/internal/repository/storage"
)

func newMatchRepo(t *testing.T) MatchRepository {
	t.Helper()

	db, err := storage.NewSQLiteStorage(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	return NewMatchRepository(db.Connection)
}

func TestMatchRepository_RecordMatch(t *testing.T) {
	ctx := context.Background()
	matchRepo := newMatchRepo(t)

	started := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	result := entity.MatchResult{
		RoomID:    "room-1",
		Players:   [2]string{"alice", "bob"},
		Scores:    map[string]int64{"alice": 3, "bob": 1},
		WinnerID:  "alice",
		StartedAt: started,
		EndedAt:   started.Add(2 * time.Minute),
	}

	// When: the result is recorded twice
	require.NoError(t, matchRepo.RecordMatch(ctx, result))
	require.NoError(t, matchRepo.RecordMatch(ctx, result))

	// Then: it is stored once
	stored, err := matchRepo.GetByRoomID(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, result.Players, stored.Players)
	assert.Equal(t, result.Scores, stored.Scores)
	assert.Equal(t, "alice", stored.WinnerID)
	assert.True(t, result.EndedAt.Equal(stored.EndedAt))

	// Then: stats were bumped once
	aliceStats, err := matchRepo.GetStats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, PlayerStats{PlayerID: "alice", Wins: 1}, *aliceStats)

	bobStats, err := matchRepo.GetStats(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, PlayerStats{PlayerID: "bob", Losses: 1}, *bobStats)
}

func TestMatchRepository_Draw(t *testing.T) {
	ctx := context.Background()
	matchRepo := newMatchRepo(t)

	result := entity.MatchResult{
		RoomID:    "room-2",
		Players:   [2]string{"alice", "bob"},
		Scores:    map[string]int64{"alice": 2, "bob": 2},
		StartedAt: time.Now(),
		EndedAt:   time.Now(),
	}

	require.NoError(t, matchRepo.RecordMatch(ctx, result))

	stored, err := matchRepo.GetByRoomID(ctx, "room-2")
	require.NoError(t, err)
	assert.Empty(t, stored.WinnerID)

	stats, err := matchRepo.GetStats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Draws)
}

func TestMatchRepository_NotFound(t *testing.T) {
	matchRepo := newMatchRepo(t)

	_, err := matchRepo.GetByRoomID(context.Background(), "nope")
	require.ErrorIs(t, err, ErrMatchNotFound)

	stats, err := matchRepo.GetStats(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Zero(t, stats.Wins+stats.Losses+stats.Draws)
}
