package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanDan1134/wordle-battle/internal/apperror"
)

type recordingPublisher struct {
	err      error
	topics   []string
	payloads [][]byte
}

func (that *recordingPublisher) Publish(_ context.Context, topic string, payload []byte) error {
	that.topics = append(that.topics, topic)
	that.payloads = append(that.payloads, payload)

	return that.err
}

func TestEmitter_Emit(t *testing.T) {
	publisher := &recordingPublisher{}
	emitter := NewEmitter(publisher)

	// When: a score update is emitted
	err := emitter.Emit(context.Background(), TopicEvents, ScoreUpdate{RoomID: "r1", Scores: map[string]int64{"a": 1}})

	// Then: it goes out once, tagged with its type
	require.NoError(t, err)
	require.Len(t, publisher.payloads, 1)
	assert.Equal(t, []string{TopicEvents}, publisher.topics)

	decoded, err := Decode(publisher.payloads[0])
	require.NoError(t, err)
	assert.Equal(t, ScoreUpdate{RoomID: "r1", Scores: map[string]int64{"a": 1}}, decoded)
}

func TestEmitter_InvalidEventIsNotPublished(t *testing.T) {
	publisher := &recordingPublisher{}
	emitter := NewEmitter(publisher)

	err := emitter.Emit(context.Background(), TopicEvents, TimerUpdate{})

	require.ErrorIs(t, err, apperror.ErrMalformedEvent)
	assert.Empty(t, publisher.payloads)
}

func TestEmitter_EmitWithRetry(t *testing.T) {
	publisher := &recordingPublisher{err: errors.Join(apperror.ErrBusDisconnected, errors.New("down"))}
	emitter := NewEmitter(publisher)

	err := emitter.EmitWithRetry(context.Background(), TopicEvents, MatchFound{RoomID: "r1", Players: [2]string{"a", "b"}})

	require.ErrorIs(t, err, apperror.ErrBusDisconnected)
	assert.Greater(t, len(publisher.payloads), 1)
}
