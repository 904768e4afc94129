package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/DanDan1134/wordle-battle/internal/entity"
)

var ErrMatchNotFound = errors.New("match not found")

type PlayerStats struct {
	PlayerID string `json:"player_id"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
	Draws    int    `json:"draws"`
}

type MatchRepository interface {
	RecordMatch(ctx context.Context, result entity.MatchResult) error
	GetByRoomID(ctx context.Context, roomID string) (*entity.MatchResult, error)
	GetStats(ctx context.Context, playerID string) (*PlayerStats, error)
}

type dbMatch struct {
	conn *sql.DB
}

func NewMatchRepository(conn *sql.DB) MatchRepository {
	return &dbMatch{
		conn: conn,
	}
}

// RecordMatch stores the result and updates both players' stats. Recording the same room twice is a no-op.
func (that *dbMatch) RecordMatch(ctx context.Context, result entity.MatchResult) error {
	tx, err := that.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("can't begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `INSERT OR IGNORE INTO matches
		(room_id, player1_id, player2_id, winner_id, player1_score, player2_score, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := tx.ExecContext(ctx, query,
		result.RoomID,
		result.Players[0],
		result.Players[1],
		sql.NullString{String: result.WinnerID, Valid: result.WinnerID != ""},
		result.Scores[result.Players[0]],
		result.Scores[result.Players[1]],
		result.StartedAt.UTC(),
		result.EndedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("can't save match: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("can't save match: %w", err)
	}

	if inserted == 0 {
		return nil
	}

	for _, playerID := range result.Players {
		if err = that.bumpStats(ctx, tx, playerID, result.WinnerID); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("can't commit match: %w", err)
	}

	return nil
}

func (that *dbMatch) bumpStats(ctx context.Context, tx *sql.Tx, playerID, winnerID string) error {
	column := "losses"
	switch winnerID {
	case "":
		column = "draws"
	case playerID:
		column = "wins"
	}

	query := fmt.Sprintf(`INSERT INTO player_stats (player_id, %[1]s) VALUES (?, 1)
		ON CONFLICT(player_id) DO UPDATE SET %[1]s = %[1]s + 1`, column)

	if _, err := tx.ExecContext(ctx, query, playerID); err != nil {
		return fmt.Errorf("can't update stats of %s: %w", playerID, err)
	}

	return nil
}

func (that *dbMatch) GetByRoomID(ctx context.Context, roomID string) (*entity.MatchResult, error) {
	query := `SELECT room_id, player1_id, player2_id, winner_id, player1_score, player2_score, started_at, ended_at
		FROM matches WHERE room_id = ?`

	var (
		result         entity.MatchResult
		winner         sql.NullString
		score1, score2 int64
	)

	err := that.conn.QueryRowContext(ctx, query, roomID).Scan(
		&result.RoomID,
		&result.Players[0],
		&result.Players[1],
		&winner,
		&score1,
		&score2,
		&result.StartedAt,
		&result.EndedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("can't find match: %w", err)
	}

	result.WinnerID = winner.String
	result.Scores = map[string]int64{
		result.Players[0]: score1,
		result.Players[1]: score2,
	}

	return &result, nil
}

// GetStats returns zeroed stats for players who never finished a match.
func (that *dbMatch) GetStats(ctx context.Context, playerID string) (*PlayerStats, error) {
	query := `SELECT wins, losses, draws FROM player_stats WHERE player_id = ?`

	stats := PlayerStats{PlayerID: playerID}

	err := that.conn.QueryRowContext(ctx, query, playerID).Scan(&stats.Wins, &stats.Losses, &stats.Draws)
	if errors.Is(err, sql.ErrNoRows) {
		return &stats, nil
	}
	if err != nil {
		return nil, fmt.Errorf("can't get stats: %w", err)
	}

	return &stats, nil
}
