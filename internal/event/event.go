package event

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DanDan1134/wordle-battle/internal/apperror"
)

// Bus topics.
const (
	TopicEvents    = "events"
	TopicStartGame = "start_game"
)

type Type string

const (
	TypeMatchFound       Type = "match_found"
	TypeScoreUpdate      Type = "score_update"
	TypeTimerUpdate      Type = "timer_update"
	TypeGameOver         Type = "game_over"
	TypeMatchResultSaved Type = "match_result_saved"
	TypeNewWordAssigned  Type = "new_word_assigned"
	TypeSessionStart     Type = "session_start"
)

var (
	errMissingRoom    = errors.New("room_id is required")
	errMissingPlayers = errors.New("two distinct players are required")
	errMissingScores  = errors.New("scores are required")
)

// Event is an immutable fact about a room. The concrete types below are the only implementations.
type Event interface {
	Type() Type
	Room() string
	validate() error
}

type MatchFound struct {
	RoomID  string    `json:"room_id"`
	Players [2]string `json:"players"`
}

type ScoreUpdate struct {
	RoomID string           `json:"room_id"`
	Scores map[string]int64 `json:"scores"`
}

type TimerUpdate struct {
	RoomID   string `json:"room_id"`
	TimeLeft int    `json:"time_left"`
}

type GameOver struct {
	RoomID      string           `json:"room_id"`
	FinalScores map[string]int64 `json:"final_scores"`
}

type MatchResultSaved struct {
	RoomID   string           `json:"room_id"`
	WinnerID string           `json:"winner_id"`
	Scores   map[string]int64 `json:"scores"`
}

// NewWordAssigned is addressed to one player, never broadcast to the room.
type NewWordAssigned struct {
	RoomID     string `json:"room_id"`
	PlayerID   string `json:"player_id"`
	WordLength int    `json:"word_length"`
}

// SessionStart tells the referee a freshly paired room needs a clock.
type SessionStart struct {
	RoomID  string    `json:"room_id"`
	Players [2]string `json:"players"`
}

func (MatchFound) Type() Type       { return TypeMatchFound }
func (ScoreUpdate) Type() Type      { return TypeScoreUpdate }
func (TimerUpdate) Type() Type      { return TypeTimerUpdate }
func (GameOver) Type() Type         { return TypeGameOver }
func (MatchResultSaved) Type() Type { return TypeMatchResultSaved }
func (NewWordAssigned) Type() Type  { return TypeNewWordAssigned }
func (SessionStart) Type() Type     { return TypeSessionStart }

func (that MatchFound) Room() string       { return that.RoomID }
func (that ScoreUpdate) Room() string      { return that.RoomID }
func (that TimerUpdate) Room() string      { return that.RoomID }
func (that GameOver) Room() string         { return that.RoomID }
func (that MatchResultSaved) Room() string { return that.RoomID }
func (that NewWordAssigned) Room() string  { return that.RoomID }
func (that SessionStart) Room() string     { return that.RoomID }

func (that MatchFound) validate() error {
	if that.RoomID == "" {
		return errMissingRoom
	}
	return validatePlayers(that.Players)
}

func (that ScoreUpdate) validate() error {
	if that.RoomID == "" {
		return errMissingRoom
	}
	if that.Scores == nil {
		return errMissingScores
	}
	return nil
}

func (that TimerUpdate) validate() error {
	if that.RoomID == "" {
		return errMissingRoom
	}
	if that.TimeLeft < 0 {
		return fmt.Errorf("negative time_left %d", that.TimeLeft)
	}
	return nil
}

func (that GameOver) validate() error {
	if that.RoomID == "" {
		return errMissingRoom
	}
	if that.FinalScores == nil {
		return errMissingScores
	}
	return nil
}

func (that MatchResultSaved) validate() error {
	if that.RoomID == "" {
		return errMissingRoom
	}
	if that.Scores == nil {
		return errMissingScores
	}
	return nil
}

func (that NewWordAssigned) validate() error {
	if that.RoomID == "" {
		return errMissingRoom
	}
	if that.PlayerID == "" {
		return errors.New("player_id is required")
	}
	if that.WordLength <= 0 {
		return fmt.Errorf("invalid word_length %d", that.WordLength)
	}
	return nil
}

func (that SessionStart) validate() error {
	if that.RoomID == "" {
		return errMissingRoom
	}
	return validatePlayers(that.Players)
}

func validatePlayers(players [2]string) error {
	if players[0] == "" || players[1] == "" || players[0] == players[1] {
		return errMissingPlayers
	}
	return nil
}

// Encode renders an event as a flat JSON object carrying its "type" discriminant.
func Encode(e Event) ([]byte, error) {
	if err := e.validate(); err != nil {
		return nil, fmt.Errorf("%w: invalid %s event: %w", apperror.ErrMalformedEvent, e.Type(), err)
	}

	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", e.Type(), err)
	}

	var fields map[string]json.RawMessage
	if err = json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("failed to flatten %s event: %w", e.Type(), err)
	}

	fields["type"], err = json.Marshal(e.Type())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event type: %w", err)
	}

	return json.Marshal(fields)
}

// Decode parses a bus payload. Anything undecodable, unknown or incomplete is ErrMalformedEvent.
func Decode(data []byte) (Event, error) {
	var envelope struct {
		Type Type `json:"type"`
	}

	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrMalformedEvent, err)
	}

	switch envelope.Type {
	case TypeMatchFound:
		return decode[MatchFound](data)
	case TypeScoreUpdate:
		return decode[ScoreUpdate](data)
	case TypeTimerUpdate:
		return decode[TimerUpdate](data)
	case TypeGameOver:
		return decode[GameOver](data)
	case TypeMatchResultSaved:
		return decode[MatchResultSaved](data)
	case TypeNewWordAssigned:
		return decode[NewWordAssigned](data)
	case TypeSessionStart:
		return decode[SessionStart](data)
	case "":
		return nil, fmt.Errorf("%w: missing type", apperror.ErrMalformedEvent)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", apperror.ErrMalformedEvent, envelope.Type)
	}
}

func decode[T Event](data []byte) (Event, error) {
	var e T

	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrMalformedEvent, err)
	}

	if err := e.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", apperror.ErrMalformedEvent, e.Type(), err)
	}

	return e, nil
}
