package repository

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanDan1134/wordle-battle/testing/suite"
)

func TestScoreRepository_ScoreSolve_Concurrent(t *testing.T) {
	ctx, st := suite.New(t)

	scoreRepo := NewScoreRepository(st.Storage)
	wordRepo := NewWordRepository(st.Storage, time.Hour)

	for _, playerID := range []string{"alice", "bob"} {
		_, err := wordRepo.AssignIfAbsent(ctx, "room-1", playerID, "CRANE")
		require.NoError(t, err)
	}

	// Given: alice's solve arrives three times at once, next to bob's
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		scored = map[string]int{}
	)
	for _, playerID := range []string{"alice", "alice", "alice", "bob"} {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// When: the solve is scored
			n, ok, err := scoreRepo.ScoreSolve(ctx, "room-1", playerID, "CRANE", "PILOT")
			if !assert.NoError(t, err) || !ok {
				return
			}

			mu.Lock()
			scored[playerID]++
			mu.Unlock()

			// Then: a later read never sees less than the returned value
			scores, err := scoreRepo.GetScores(ctx, "room-1")
			if assert.NoError(t, err) {
				assert.GreaterOrEqual(t, scores[playerID], n)
			}
		}()
	}
	wg.Wait()

	// Then: each player is credited once
	assert.Equal(t, map[string]int{"alice": 1, "bob": 1}, scored)

	scores, err := scoreRepo.GetScores(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"alice": 1, "bob": 1}, scores)
}

func TestScoreRepository_GetScores_Empty(t *testing.T) {
	ctx, st := suite.New(t)

	scoreRepo := NewScoreRepository(st.Storage)

	scores, err := scoreRepo.GetScores(ctx, "unknown")

	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestScoreRepository_ScoreSolve(t *testing.T) {
	ctx, st := suite.New(t)

	scoreRepo := NewScoreRepository(st.Storage)
	wordRepo := NewWordRepository(st.Storage, time.Hour)

	_, err := wordRepo.AssignIfAbsent(ctx, "room-1", "alice", "CRANE")
	require.NoError(t, err)

	// When: alice solves CRANE
	score, scored, err := scoreRepo.ScoreSolve(ctx, "room-1", "alice", "CRANE", "PILOT")
	require.NoError(t, err)

	// Then: she is credited and holds the next word
	assert.True(t, scored)
	assert.Equal(t, int64(1), score)

	word, err := wordRepo.GetWord(ctx, "room-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "PILOT", word)

	// When: the same solve arrives again
	_, scored, err = scoreRepo.ScoreSolve(ctx, "room-1", "alice", "CRANE", "SLATE")
	require.NoError(t, err)

	// Then: nothing changes
	assert.False(t, scored)

	word, err = wordRepo.GetWord(ctx, "room-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "PILOT", word)

	scores, err := scoreRepo.GetScores(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"alice": 1}, scores)

	// Then: a player with no word is never credited
	_, scored, err = scoreRepo.ScoreSolve(ctx, "room-1", "bob", "CRANE", "PILOT")
	require.NoError(t, err)
	assert.False(t, scored)
}
