package entity

import (
	"errors"
	"fmt"
	"time"
)

type RoomStatus string

const (
	StatusForming  RoomStatus = "forming"
	StatusActive   RoomStatus = "active"
	StatusFinished RoomStatus = "finished"
)

var (
	ErrSamePlayer         = errors.New("room needs two distinct players")
	ErrUnknownRoomStatus  = errors.New("unknown room status")
	ErrRoomMissingPlayers = errors.New("room must have exactly two players")
)

// Room is one live two-player match.
type Room struct {
	ID        string     `json:"id"`
	Players   [2]string  `json:"players"`
	Status    RoomStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

func NewRoom(id, player1, player2 string) (*Room, error) {
	if player1 == "" || player2 == "" {
		return nil, ErrRoomMissingPlayers
	}

	if player1 == player2 {
		return nil, fmt.Errorf("%w: %s", ErrSamePlayer, player1)
	}

	return &Room{
		ID:        id,
		Players:   [2]string{player1, player2},
		Status:    StatusForming,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (that *Room) HasPlayer(playerID string) bool {
	return that.Players[0] == playerID || that.Players[1] == playerID
}

// Opponent returns the other player of the room, or "" when playerID is not seated.
func (that *Room) Opponent(playerID string) string {
	switch playerID {
	case that.Players[0]:
		return that.Players[1]
	case that.Players[1]:
		return that.Players[0]
	default:
		return ""
	}
}

func (that *Room) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Room) IsActive() bool {
	return that.Status == StatusActive
}

func ParseRoomStatus(s string) (RoomStatus, error) {
	switch status := RoomStatus(s); status {
	case StatusForming, StatusActive, StatusFinished:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRoomStatus, s)
	}
}
