// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidConversationID is returned when a conversation id is zero.
	ErrInvalidConversationID = errors.New("conversation ID cannot be zero")

	// ErrEmptyMessageText is returned when a message has no text content.
	ErrEmptyMessageText = errors.New("message text cannot be empty")

	// ErrZeroReceivedAt is returned when a message carries no receive timestamp.
	ErrZeroReceivedAt = errors.New("message receive timestamp cannot be zero")

	// ErrEmptyTaskText is returned when an extracted task has no text.
	ErrEmptyTaskText = errors.New("task text cannot be empty")

	// ErrNoSourceMessages is returned when an extracted task references no
	// source messages. Every task must keep its causal link to the batch
	// that produced it.
	ErrNoSourceMessages = errors.New("extracted task must reference at least one source message")

	// ErrEmptyTaskID is returned when a prioritization item references no task.
	ErrEmptyTaskID = errors.New("task ID cannot be empty")

	// ErrInvalidPriority is returned when a priority value is not one of
	// the defined levels.
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrInvalidItemState is returned when an item state is not valid.
	ErrInvalidItemState = errors.New("invalid item state")

	// ErrInvalidStateTransition is returned when a prioritization item is
	// asked to make a transition its current state does not permit. State
	// transitions are monotonic and are never silently overwritten.
	ErrInvalidStateTransition = errors.New("invalid state transition")
)
