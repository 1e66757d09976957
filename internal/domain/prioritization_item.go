package domain

import (
	"time"

	"github.com/google/uuid"
)

// Priority is the urgency label a human assigns to an extracted task.
type Priority string

// Priority levels, lowest to highest.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ItemState represents the lifecycle state of a prioritization item.
type ItemState string

// Possible item states. Transitions are monotonic:
// pending -> prioritized -> exported, or pending/prioritized -> discarded.
const (
	ItemStatePending     ItemState = "pending"
	ItemStatePrioritized ItemState = "prioritized"
	ItemStateExported    ItemState = "exported"
	ItemStateDiscarded   ItemState = "discarded"
)

// PrioritizationItem carries an extracted task through the human
// prioritization step. Priority is set exactly once; an item is never
// resurrected after reaching exported or discarded.
type PrioritizationItem struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID int64      `json:"conversation_id"`
	TaskID         uuid.UUID  `json:"task_id"`
	TaskText       string     `json:"task_text"`
	Priority       *Priority  `json:"priority,omitempty"`
	State          ItemState  `json:"state"`
	CreatedAt      time.Time  `json:"created_at"`
	PrioritizedAt  *time.Time `json:"prioritized_at,omitempty"`
	ExportedAt     *time.Time `json:"exported_at,omitempty"`
}

// NewPrioritizationItem creates a new pending item for the given task.
func NewPrioritizationItem(conversationID int64, taskID uuid.UUID, taskText string) (*PrioritizationItem, error) {
	item := &PrioritizationItem{
		ID:             uuid.New(),
		ConversationID: conversationID,
		TaskID:         taskID,
		TaskText:       taskText,
		State:          ItemStatePending,
		CreatedAt:      time.Now().UTC(),
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}

	return item, nil
}

// Validate checks if the PrioritizationItem has valid data.
func (i *PrioritizationItem) Validate() error {
	if i.ConversationID == 0 {
		return ErrInvalidConversationID
	}

	if i.TaskID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if i.TaskText == "" {
		return ErrEmptyTaskText
	}

	if !IsValidItemState(i.State) {
		return ErrInvalidItemState
	}

	if i.Priority != nil && !IsValidPriority(*i.Priority) {
		return ErrInvalidPriority
	}

	return nil
}

// SetPriority assigns a priority and moves the item to prioritized.
// Legal only from pending.
func (i *PrioritizationItem) SetPriority(p Priority) error {
	if !IsValidPriority(p) {
		return ErrInvalidPriority
	}

	if i.State != ItemStatePending {
		return ErrInvalidStateTransition
	}

	now := time.Now().UTC()
	i.Priority = &p
	i.State = ItemStatePrioritized
	i.PrioritizedAt = &now
	return nil
}

// MarkExported moves the item to exported. Legal only from prioritized.
func (i *PrioritizationItem) MarkExported() error {
	if i.State != ItemStatePrioritized {
		return ErrInvalidStateTransition
	}

	now := time.Now().UTC()
	i.State = ItemStateExported
	i.ExportedAt = &now
	return nil
}

// Discard moves the item to discarded, irreversibly.
// Legal from pending or prioritized.
func (i *PrioritizationItem) Discard() error {
	if i.State != ItemStatePending && i.State != ItemStatePrioritized {
		return ErrInvalidStateTransition
	}

	i.State = ItemStateDiscarded
	return nil
}

// IsValidPriority checks if the given value is a defined priority level.
func IsValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// IsValidItemState checks if the given value is a defined item state.
func IsValidItemState(s ItemState) bool {
	switch s {
	case ItemStatePending, ItemStatePrioritized, ItemStateExported, ItemStateDiscarded:
		return true
	default:
		return false
	}
}
