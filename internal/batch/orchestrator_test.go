package batch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fennwald/triage-api/internal/domain"
	"github.com/fennwald/triage-api/internal/events"
	"github.com/fennwald/triage-api/internal/extraction"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testWindow() (time.Time, time.Time) {
	end := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	return end.Add(-time.Hour), end
}

func testMessages(conversationID int64, n int) []*domain.Message {
	start, _ := testWindow()
	msgs := make([]*domain.Message, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, &domain.Message{
			ID:             int64(i + 1),
			ConversationID: conversationID,
			SenderUsername: "customer",
			Text:           "please fix the exporter",
			ReceivedAt:     start.Add(time.Duration(i) * time.Minute),
		})
	}
	return msgs
}

func newTestOrchestrator(
	t *testing.T,
	messages *mockMessageStore,
	tasks *mockTaskStore,
	items *mockItemStore,
	extractor *mockExtractor,
	emitter events.Emitter,
) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(newNoopDB(), messages, tasks, items, extractor, emitter, testLogger())
	require.NoError(t, err)
	return o
}

func TestRunBatchSuccess(t *testing.T) {
	t.Parallel()

	const convID = int64(42)
	start, end := testWindow()
	claimed := testMessages(convID, 3)

	messages := &mockMessageStore{
		GetUnprocessedInWindowFunc: func(ctx context.Context, conversationID int64, s, e time.Time) ([]*domain.Message, error) {
			assert.Equal(t, convID, conversationID)
			assert.Equal(t, start, s)
			assert.Equal(t, end, e)
			return claimed, nil
		},
	}
	tasks := &mockTaskStore{}
	items := &mockItemStore{}
	extractor := &mockExtractor{
		ExtractFunc: func(ctx context.Context, req extraction.Request) ([]extraction.ExtractedItem, error) {
			return []extraction.ExtractedItem{
				{Text: "Fix the exporter", SourceMessageIDs: []int64{1, 2}},
				{Text: "Follow up on billing", SourceMessageIDs: []int64{3}},
			}, nil
		},
	}
	emitter := &mockEmitter{}

	o := newTestOrchestrator(t, messages, tasks, items, extractor, emitter)
	result := o.RunBatch(context.Background(), convID, start, end)

	assert.Equal(t, OutcomeSuccess, result.Outcome)
	assert.Equal(t, 3, result.MessageCount)
	assert.Equal(t, 2, result.TaskCount)
	assert.NoError(t, result.Err)

	// One task row and one pending item per extracted task.
	require.Len(t, tasks.created, 2)
	require.Len(t, items.created, 2)
	assert.Equal(t, tasks.created[0].ID, items.created[0].TaskID)
	assert.Equal(t, "Fix the exporter", items.created[0].TaskText)
	assert.Equal(t, domain.ItemStatePending, items.created[0].State)

	// Every claimed message was marked processed, in the same run.
	assert.Equal(t, []int64{1, 2, 3}, messages.markedIDs)

	// One announcement per enqueued item, after commit.
	require.Len(t, emitter.events, 2)
	assert.Equal(t, events.EventTypeItemEnqueued, emitter.events[0].Type)

	// The guard was released.
	assert.Zero(t, o.Guard().InFlight())
}

func TestRunBatchEmptyWindow(t *testing.T) {
	t.Parallel()

	messages := &mockMessageStore{
		GetUnprocessedInWindowFunc: func(ctx context.Context, conversationID int64, s, e time.Time) ([]*domain.Message, error) {
			return nil, nil
		},
	}
	extractor := &mockExtractor{}

	o := newTestOrchestrator(t, messages, &mockTaskStore{}, &mockItemStore{}, extractor, &mockEmitter{})
	start, end := testWindow()
	result := o.RunBatch(context.Background(), 42, start, end)

	assert.Equal(t, OutcomeEmpty, result.Outcome)
	assert.Zero(t, result.MessageCount)
	// No extraction call for an empty batch.
	assert.Zero(t, extractor.calls)
	assert.Zero(t, messages.markProcessed)
}

func TestRunBatchInvalidWindow(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, &mockMessageStore{}, &mockTaskStore{}, &mockItemStore{}, &mockExtractor{}, &mockEmitter{})
	start, end := testWindow()

	result := o.RunBatch(context.Background(), 42, end, start)

	assert.Equal(t, OutcomePermanentFailure, result.Outcome)
	assert.Error(t, result.Err)
}

func TestRunBatchAlreadyRunning(t *testing.T) {
	t.Parallel()

	const convID = int64(42)
	start, end := testWindow()

	release := make(chan struct{})
	started := make(chan struct{})

	messages := &mockMessageStore{
		GetUnprocessedInWindowFunc: func(ctx context.Context, conversationID int64, s, e time.Time) ([]*domain.Message, error) {
			// Only the guarded conversation blocks. The guard rejects the
			// second run for it before the store is reached, so this path
			// runs exactly once.
			if conversationID != convID {
				return nil, nil
			}
			close(started)
			<-release
			return nil, nil
		},
	}

	o := newTestOrchestrator(t, messages, &mockTaskStore{}, &mockItemStore{}, &mockExtractor{}, &mockEmitter{})

	first := make(chan Result, 1)
	go func() {
		first <- o.RunBatch(context.Background(), convID, start, end)
	}()

	<-started

	// Second run for the same conversation is rejected immediately, not
	// queued.
	result := o.RunBatch(context.Background(), convID, start, end)
	assert.Equal(t, OutcomeAlreadyRunning, result.Outcome)
	assert.NoError(t, result.Err)

	// A different conversation is unaffected.
	other := o.RunBatch(context.Background(), convID+1, start, end)
	assert.Equal(t, OutcomeEmpty, other.Outcome)

	close(release)
	assert.Equal(t, OutcomeEmpty, (<-first).Outcome)
}

func TestRunBatchSelectFailure(t *testing.T) {
	t.Parallel()

	messages := &mockMessageStore{
		GetUnprocessedInWindowFunc: func(ctx context.Context, conversationID int64, s, e time.Time) ([]*domain.Message, error) {
			return nil, errors.New("connection reset")
		},
	}

	o := newTestOrchestrator(t, messages, &mockTaskStore{}, &mockItemStore{}, &mockExtractor{}, &mockEmitter{})
	start, end := testWindow()
	result := o.RunBatch(context.Background(), 42, start, end)

	assert.Equal(t, OutcomeTransientFailure, result.Outcome)
	assert.Error(t, result.Err)
	assert.Zero(t, o.Guard().InFlight())
}

func TestRunBatchExtractionFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		outcome Outcome
	}{
		{"transient failure is retryable", extraction.ErrTransientFailure, OutcomeTransientFailure},
		{"rate limit is retryable", extraction.ErrRateLimited, OutcomeTransientFailure},
		{"invalid response is permanent", extraction.ErrInvalidResponse, OutcomePermanentFailure},
		{"content blocked is permanent", extraction.ErrContentBlocked, OutcomePermanentFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			const convID = int64(42)
			messages := &mockMessageStore{
				GetUnprocessedInWindowFunc: func(ctx context.Context, conversationID int64, s, e time.Time) ([]*domain.Message, error) {
					return testMessages(convID, 2), nil
				},
			}
			extractor := &mockExtractor{
				ExtractFunc: func(ctx context.Context, req extraction.Request) ([]extraction.ExtractedItem, error) {
					return nil, tt.err
				},
			}

			o := newTestOrchestrator(t, messages, &mockTaskStore{}, &mockItemStore{}, extractor, &mockEmitter{})
			start, end := testWindow()
			result := o.RunBatch(context.Background(), convID, start, end)

			assert.Equal(t, tt.outcome, result.Outcome)
			assert.ErrorIs(t, result.Err, tt.err)
			// Failed runs must not consume the messages.
			assert.Zero(t, messages.markProcessed)
		})
	}
}

func TestRunBatchWriteFailureRollsBack(t *testing.T) {
	t.Parallel()

	const convID = int64(42)
	messages := &mockMessageStore{
		GetUnprocessedInWindowFunc: func(ctx context.Context, conversationID int64, s, e time.Time) ([]*domain.Message, error) {
			return testMessages(convID, 1), nil
		},
	}
	tasks := &mockTaskStore{
		CreateFunc: func(ctx context.Context, task *domain.ExtractedTask) error {
			return errors.New("insert failed")
		},
	}
	extractor := &mockExtractor{
		ExtractFunc: func(ctx context.Context, req extraction.Request) ([]extraction.ExtractedItem, error) {
			return []extraction.ExtractedItem{{Text: "task", SourceMessageIDs: []int64{1}}}, nil
		},
	}
	emitter := &mockEmitter{}

	o := newTestOrchestrator(t, messages, tasks, &mockItemStore{}, extractor, emitter)
	start, end := testWindow()
	result := o.RunBatch(context.Background(), convID, start, end)

	assert.Equal(t, OutcomeTransientFailure, result.Outcome)
	assert.Error(t, result.Err)
	// Nothing announced for a rolled-back batch.
	assert.Empty(t, emitter.events)
	assert.Zero(t, messages.markProcessed)
}

func TestRunBatchFormatsExtractionRequest(t *testing.T) {
	t.Parallel()

	const convID = int64(42)
	msgs := testMessages(convID, 2)
	msgs[0].SenderName = "Jane Doe"
	msgs[0].SenderUsername = "jdoe"

	messages := &mockMessageStore{
		GetUnprocessedInWindowFunc: func(ctx context.Context, conversationID int64, s, e time.Time) ([]*domain.Message, error) {
			return msgs, nil
		},
	}
	extractor := &mockExtractor{
		ExtractFunc: func(ctx context.Context, req extraction.Request) ([]extraction.ExtractedItem, error) {
			return nil, extraction.ErrTransientFailure
		},
	}

	o := newTestOrchestrator(t, messages, &mockTaskStore{}, &mockItemStore{}, extractor, &mockEmitter{})
	start, end := testWindow()
	o.RunBatch(context.Background(), convID, start, end)

	require.Equal(t, 1, extractor.calls)
	assert.Equal(t, convID, extractor.last.ConversationID)
	require.Len(t, extractor.last.Messages, 2)
	assert.Equal(t, "Jane Doe (@jdoe)", extractor.last.Messages[0].Author)
	assert.Equal(t, int64(1), extractor.last.Messages[0].ID)
}
