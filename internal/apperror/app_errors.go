package apperror

import "errors"

// validation, reported to the submitting client only.
var (
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrInvalidGuessLength = errors.New("guess has the wrong length")
	ErrGuessNotAlphabetic = errors.New("guess must contain only letters")
	ErrNotInWordList      = errors.New("not in word list")
	ErrInvalidInput       = errors.New("invalid input")
)

// queue.
var (
	ErrNotInQueue     = errors.New("player is not in queue")
	ErrAlreadyQueued  = errors.New("player is already queued")
	ErrAlreadyInMatch = errors.New("player is already in a match")
)

// room.
var (
	ErrRoomNotFound = errors.New("room not found")
	ErrNotInRoom    = errors.New("player is not in this room")
	ErrRoomFinished = errors.New("room is already finished")
)

// infrastructure.
var (
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrBusDisconnected  = errors.New("event bus disconnected")
	ErrMalformedEvent   = errors.New("malformed event")
)

// ReasonInternal is reported for failures the client cannot act on.
const ReasonInternal = "internal_error"

var reasons = []struct {
	err    error
	reason string
}{
	{ErrNotAuthenticated, "not_authenticated"},
	{ErrInvalidGuessLength, "invalid_length"},
	{ErrGuessNotAlphabetic, "not_alphabetic"},
	{ErrNotInWordList, "not_in_word_list"},
	{ErrInvalidInput, "invalid_input"},
	{ErrNotInQueue, "not_in_queue"},
	{ErrAlreadyQueued, "already_queued"},
	{ErrAlreadyInMatch, "already_in_match"},
	{ErrRoomNotFound, "room_not_found"},
	{ErrNotInRoom, "not_in_room"},
	{ErrRoomFinished, "room_finished"},
	{ErrStoreUnavailable, "temporarily_unavailable"},
	{ErrBusDisconnected, "temporarily_unavailable"},
}

// Reason maps an error to the rejection string sent to clients.
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}

	return ReasonInternal
}

// IsRetryable reports whether the client may simply try the same request again.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrBusDisconnected)
}
