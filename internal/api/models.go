package api

import (
	"time"
)

// Common request/response structures

// IngestMessageRequest defines the payload for the message ingestion endpoint.
type IngestMessageRequest struct {
	ConversationID int64  `json:"conversation_id" validate:"required"`
	SenderID       int64  `json:"sender_id"`
	SenderUsername string `json:"sender_username" validate:"max=128"`
	SenderName     string `json:"sender_name"     validate:"max=256"`
	Text           string `json:"text"            validate:"required,min=1,max=8192"`
	// ReceivedAt is optional; the server clock is used when absent.
	ReceivedAt *time.Time `json:"received_at,omitempty"`
}

// IngestMessageResponse reports the outcome of a message ingestion.
type IngestMessageResponse struct {
	MessageID int64 `json:"message_id,omitempty"`
	// Dropped is true when the sender is a staff member; staff chatter is
	// never queued for extraction.
	Dropped bool `json:"dropped"`
}

// TokenRequest defines the payload for the staff token endpoint.
type TokenRequest struct {
	Username string `json:"username" validate:"required_without=UserID,max=128"`
	UserID   int64  `json:"user_id"`
}

// TokenResponse defines the successful response for the staff token endpoint.
type TokenResponse struct {
	// AccessToken is the JWT used for API authorization
	AccessToken string `json:"token"`

	// ExpiresAt is the ISO 8601 timestamp when the token expires
	ExpiresAt string `json:"expires_at,omitempty"`
}

// TaskResponse represents the response data for an extracted task.
type TaskResponse struct {
	ID               string    `json:"id"`
	ConversationID   int64     `json:"conversation_id"`
	Text             string    `json:"text"`
	SourceMessageIDs []int64   `json:"source_message_ids"`
	ExtractedAt      time.Time `json:"extracted_at"`
	CreatedDate      string    `json:"created_date"`
}

// ItemResponse represents the response data for a prioritization item.
type ItemResponse struct {
	ID             string     `json:"id"`
	ConversationID int64      `json:"conversation_id"`
	TaskID         string     `json:"task_id"`
	TaskText       string     `json:"task_text"`
	Priority       *string    `json:"priority,omitempty"`
	State          string     `json:"state"`
	CreatedAt      time.Time  `json:"created_at"`
	PrioritizedAt  *time.Time `json:"prioritized_at,omitempty"`
	ExportedAt     *time.Time `json:"exported_at,omitempty"`
}

// SetPriorityRequest defines the payload for the item prioritization endpoint.
type SetPriorityRequest struct {
	Priority string `json:"priority" validate:"required,oneof=low medium high urgent"`
}

// TriggerRangeRequest defines the payload for the range batch trigger.
type TriggerRangeRequest struct {
	Days int `json:"days" validate:"required,min=1,max=30"`
}

// TriggerResponse reports the outcome of an on-demand batch trigger.
type TriggerResponse struct {
	ConversationID int64  `json:"conversation_id"`
	Outcome        string `json:"outcome"`
	MessageCount   int    `json:"message_count"`
	TaskCount      int    `json:"task_count"`
}

// ReportResponse carries an assembled daily report.
type ReportResponse struct {
	ConversationID int64    `json:"conversation_id"`
	Date           string   `json:"date"`
	TotalItems     int      `json:"total_items"`
	ExportedCount  int      `json:"exported_count"`
	DiscardedCount int      `json:"discarded_count"`
	Chunks         []string `json:"chunks"`
}
