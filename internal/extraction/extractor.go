package extraction

import (
	"context"
	"time"
)

// SourceMessage is one attributed message line in an extraction request.
type SourceMessage struct {
	ID        int64
	Author    string
	Text      string
	Timestamp time.Time
}

// Request is one batch of messages submitted to the extraction call.
// Messages must be ordered by timestamp ascending.
type Request struct {
	ConversationID int64
	Messages       []SourceMessage
}

// ExtractedItem is one actionable item returned by the extraction call.
// SourceMessageIDs names the messages that contributed to the item; the
// gateway guarantees it is non-empty.
type ExtractedItem struct {
	Text             string
	SourceMessageIDs []int64
}

// Extractor defines the interface for turning a message batch into
// actionable items. This interface serves as a boundary between the
// application core and the external language-understanding service.
type Extractor interface {
	// Extract submits the batch and returns the extracted items.
	// A batch with no actionable content yields an empty slice, not an
	// error. Failures carry the transient/permanent taxonomy from
	// errors.go so callers can decide between retry-by-rescheduling and
	// permanent skip.
	Extract(ctx context.Context, req Request) ([]ExtractedItem, error)
}
