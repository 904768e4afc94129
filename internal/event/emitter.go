package event

import (
	"context"
	"fmt"

	"github.com/DanDan1134/wordle-battle/internal/bus"
)

// Emitter encodes events and hands them to the bus.
type Emitter struct {
	publisher bus.Publisher
}

func NewEmitter(publisher bus.Publisher) *Emitter {
	return &Emitter{
		publisher: publisher,
	}
}

// Emit publishes once. A failure means no subscriber will see the event.
func (that *Emitter) Emit(ctx context.Context, topic string, e Event) error {
	payload, err := Encode(e)
	if err != nil {
		return err
	}

	if err = that.publisher.Publish(ctx, topic, payload); err != nil {
		return fmt.Errorf("failed to emit %s: %w", e.Type(), err)
	}

	return nil
}

// EmitWithRetry republishes a few times for events whose loss would leave clients stuck.
func (that *Emitter) EmitWithRetry(ctx context.Context, topic string, e Event) error {
	payload, err := Encode(e)
	if err != nil {
		return err
	}

	if err = bus.PublishWithRetry(ctx, that.publisher, topic, payload); err != nil {
		return fmt.Errorf("failed to emit %s: %w", e.Type(), err)
	}

	return nil
}
