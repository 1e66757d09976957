package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestItem(t *testing.T) *PrioritizationItem {
	t.Helper()
	item, err := NewPrioritizationItem(12345, uuid.New(), "Fix the broken checkout button")
	require.NoError(t, err)
	return item
}

func TestNewPrioritizationItem(t *testing.T) {
	t.Parallel()

	t.Run("creates pending item with valid parameters", func(t *testing.T) {
		taskID := uuid.New()
		item, err := NewPrioritizationItem(12345, taskID, "Fix the broken checkout button")

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, item.ID)
		assert.Equal(t, int64(12345), item.ConversationID)
		assert.Equal(t, taskID, item.TaskID)
		assert.Equal(t, ItemStatePending, item.State)
		assert.Nil(t, item.Priority)
		assert.Nil(t, item.PrioritizedAt)
		assert.Nil(t, item.ExportedAt)
		assert.False(t, item.CreatedAt.IsZero())
	})

	t.Run("fails with zero conversation ID", func(t *testing.T) {
		item, err := NewPrioritizationItem(0, uuid.New(), "text")

		assert.ErrorIs(t, err, ErrInvalidConversationID)
		assert.Nil(t, item)
	})

	t.Run("fails with nil task ID", func(t *testing.T) {
		item, err := NewPrioritizationItem(12345, uuid.Nil, "text")

		assert.ErrorIs(t, err, ErrEmptyTaskID)
		assert.Nil(t, item)
	})

	t.Run("fails with empty task text", func(t *testing.T) {
		item, err := NewPrioritizationItem(12345, uuid.New(), "")

		assert.ErrorIs(t, err, ErrEmptyTaskText)
		assert.Nil(t, item)
	})

	t.Run("accepts negative conversation ID", func(t *testing.T) {
		// Group chat IDs are negative on some platforms.
		item, err := NewPrioritizationItem(-100123456, uuid.New(), "text")

		require.NoError(t, err)
		assert.Equal(t, int64(-100123456), item.ConversationID)
	})
}

func TestPrioritizationItemSetPriority(t *testing.T) {
	t.Parallel()

	t.Run("moves pending item to prioritized", func(t *testing.T) {
		item := newTestItem(t)

		err := item.SetPriority(PriorityHigh)

		require.NoError(t, err)
		assert.Equal(t, ItemStatePrioritized, item.State)
		require.NotNil(t, item.Priority)
		assert.Equal(t, PriorityHigh, *item.Priority)
		assert.NotNil(t, item.PrioritizedAt)
	})

	t.Run("rejects unknown priority", func(t *testing.T) {
		item := newTestItem(t)

		err := item.SetPriority(Priority("critical"))

		assert.ErrorIs(t, err, ErrInvalidPriority)
		assert.Equal(t, ItemStatePending, item.State)
	})

	t.Run("rejects second prioritization", func(t *testing.T) {
		item := newTestItem(t)
		require.NoError(t, item.SetPriority(PriorityLow))

		err := item.SetPriority(PriorityUrgent)

		assert.ErrorIs(t, err, ErrInvalidStateTransition)
		assert.Equal(t, PriorityLow, *item.Priority)
	})

	t.Run("rejects prioritizing a discarded item", func(t *testing.T) {
		item := newTestItem(t)
		require.NoError(t, item.Discard())

		err := item.SetPriority(PriorityMedium)

		assert.ErrorIs(t, err, ErrInvalidStateTransition)
		assert.Equal(t, ItemStateDiscarded, item.State)
	})
}

func TestPrioritizationItemMarkExported(t *testing.T) {
	t.Parallel()

	t.Run("moves prioritized item to exported", func(t *testing.T) {
		item := newTestItem(t)
		require.NoError(t, item.SetPriority(PriorityUrgent))

		err := item.MarkExported()

		require.NoError(t, err)
		assert.Equal(t, ItemStateExported, item.State)
		assert.NotNil(t, item.ExportedAt)
	})

	t.Run("rejects exporting a pending item", func(t *testing.T) {
		item := newTestItem(t)

		err := item.MarkExported()

		assert.ErrorIs(t, err, ErrInvalidStateTransition)
		assert.Equal(t, ItemStatePending, item.State)
	})

	t.Run("rejects exporting twice", func(t *testing.T) {
		item := newTestItem(t)
		require.NoError(t, item.SetPriority(PriorityUrgent))
		require.NoError(t, item.MarkExported())

		err := item.MarkExported()

		assert.ErrorIs(t, err, ErrInvalidStateTransition)
	})
}

func TestPrioritizationItemDiscard(t *testing.T) {
	t.Parallel()

	t.Run("discards a pending item", func(t *testing.T) {
		item := newTestItem(t)

		require.NoError(t, item.Discard())
		assert.Equal(t, ItemStateDiscarded, item.State)
	})

	t.Run("discards a prioritized item", func(t *testing.T) {
		item := newTestItem(t)
		require.NoError(t, item.SetPriority(PriorityMedium))

		require.NoError(t, item.Discard())
		assert.Equal(t, ItemStateDiscarded, item.State)
	})

	t.Run("rejects discarding an exported item", func(t *testing.T) {
		item := newTestItem(t)
		require.NoError(t, item.SetPriority(PriorityMedium))
		require.NoError(t, item.MarkExported())

		err := item.Discard()

		assert.ErrorIs(t, err, ErrInvalidStateTransition)
		assert.Equal(t, ItemStateExported, item.State)
	})

	t.Run("rejects discarding twice", func(t *testing.T) {
		item := newTestItem(t)
		require.NoError(t, item.Discard())

		err := item.Discard()

		assert.ErrorIs(t, err, ErrInvalidStateTransition)
	})
}
