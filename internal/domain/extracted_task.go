package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExtractedTask represents a single actionable item distilled from a batch
// of messages by the extraction call. Immutable once created.
// SourceMessageIDs preserves the causal link to the messages that produced
// the task and is never empty.
type ExtractedTask struct {
	ID               uuid.UUID `json:"id"`
	ConversationID   int64     `json:"conversation_id"`
	Text             string    `json:"text"`
	SourceMessageIDs []int64   `json:"source_message_ids"`
	ExtractedAt      time.Time `json:"extracted_at"`
	CreatedDate      time.Time `json:"created_date"`
}

// NewExtractedTask creates a new ExtractedTask with a generated ID and
// UTC timestamps. CreatedDate is the extraction timestamp truncated to a
// UTC calendar date, which is what the daily report keys off.
func NewExtractedTask(conversationID int64, text string, sourceMessageIDs []int64) (*ExtractedTask, error) {
	now := time.Now().UTC()

	task := &ExtractedTask{
		ID:               uuid.New(),
		ConversationID:   conversationID,
		Text:             text,
		SourceMessageIDs: append([]int64(nil), sourceMessageIDs...),
		ExtractedAt:      now,
		CreatedDate:      now.Truncate(24 * time.Hour),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the ExtractedTask has valid data.
func (t *ExtractedTask) Validate() error {
	if t.ConversationID == 0 {
		return ErrInvalidConversationID
	}

	if t.Text == "" {
		return ErrEmptyTaskText
	}

	if len(t.SourceMessageIDs) == 0 {
		return ErrNoSourceMessages
	}

	return nil
}
