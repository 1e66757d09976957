package events

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	events []*Event
	err    error
}

func (h *recordingHandler) HandleEvent(ctx context.Context, event *Event) error {
	h.events = append(h.events, event)
	return h.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewEvent(t *testing.T) {
	t.Parallel()

	t.Run("serializes the payload", func(t *testing.T) {
		payload := ItemEnqueuedPayload{
			ItemID:         uuid.New(),
			ConversationID: 42,
			TaskText:       "Fix the exporter",
		}

		event, err := NewEvent(EventTypeItemEnqueued, payload)

		require.NoError(t, err)
		assert.Equal(t, EventTypeItemEnqueued, event.Type)
		assert.NotEqual(t, uuid.Nil, event.ID)
		assert.False(t, event.CreatedAt.IsZero())

		var decoded ItemEnqueuedPayload
		require.NoError(t, event.UnmarshalPayload(&decoded))
		assert.Equal(t, payload, decoded)
	})

	t.Run("rejects an unserializable payload", func(t *testing.T) {
		_, err := NewEvent(EventTypeItemEnqueued, make(chan int))

		assert.Error(t, err)
	})
}

func TestInMemoryEmitter(t *testing.T) {
	t.Parallel()

	newEvent := func(t *testing.T) *Event {
		t.Helper()
		event, err := NewEvent(EventTypeItemEnqueued, ItemEnqueuedPayload{ConversationID: 42})
		require.NoError(t, err)
		return event
	}

	t.Run("delivers an event to every handler", func(t *testing.T) {
		emitter := NewInMemoryEmitter(testLogger())
		first := &recordingHandler{}
		second := &recordingHandler{}
		emitter.RegisterHandler(first)
		emitter.RegisterHandler(second)

		event := newEvent(t)
		require.NoError(t, emitter.EmitEvent(context.Background(), event))

		require.Len(t, first.events, 1)
		require.Len(t, second.events, 1)
		assert.Equal(t, event.ID, first.events[0].ID)
	})

	t.Run("no registered handlers is not an error", func(t *testing.T) {
		emitter := NewInMemoryEmitter(testLogger())

		assert.NoError(t, emitter.EmitEvent(context.Background(), newEvent(t)))
	})

	t.Run("a failing handler does not block the others", func(t *testing.T) {
		emitter := NewInMemoryEmitter(testLogger())
		failing := &recordingHandler{err: errors.New("delivery refused")}
		healthy := &recordingHandler{}
		emitter.RegisterHandler(failing)
		emitter.RegisterHandler(healthy)

		err := emitter.EmitEvent(context.Background(), newEvent(t))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "delivery refused")
		assert.Len(t, healthy.events, 1, "healthy handler still receives the event")
	})

	t.Run("returns the first error when several handlers fail", func(t *testing.T) {
		emitter := NewInMemoryEmitter(testLogger())
		emitter.RegisterHandler(&recordingHandler{err: errors.New("first failure")})
		emitter.RegisterHandler(&recordingHandler{err: errors.New("second failure")})

		err := emitter.EmitEvent(context.Background(), newEvent(t))

		require.Error(t, err)
		assert.Equal(t, "first failure", err.Error())
	})
}
