package entity

import "time"

// MatchResult is what the persistence collaborator records once a room is finished.
type MatchResult struct {
	RoomID    string           `json:"room_id"`
	Players   [2]string        `json:"players"`
	Scores    map[string]int64 `json:"scores"`
	WinnerID  string           `json:"winner_id"`
	StartedAt time.Time        `json:"started_at"`
	EndedAt   time.Time        `json:"ended_at"`
}

// Winner picks the player with the highest score. A draw returns "".
func Winner(players [2]string, scores map[string]int64) string {
	first, second := scores[players[0]], scores[players[1]]

	switch {
	case first > second:
		return players[0]
	case second > first:
		return players[1]
	default:
		return ""
	}
}

func NewMatchResult(room *Room, scores map[string]int64, endedAt time.Time) MatchResult {
	final := make(map[string]int64, len(room.Players))
	for _, player := range room.Players {
		final[player] = scores[player]
	}

	return MatchResult{
		RoomID:    room.ID,
		Players:   room.Players,
		Scores:    final,
		WinnerID:  Winner(room.Players, final),
		StartedAt: room.CreatedAt,
		EndedAt:   endedAt,
	}
}
