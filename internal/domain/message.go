package domain

import "time"

// Message represents a raw chat message stored for later batch extraction.
// Messages are immutable once stored except for the Processed flag, which is
// flipped exactly once when the containing batch completes successfully.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	SenderUsername string    `json:"sender_username,omitempty"`
	SenderName     string    `json:"sender_name,omitempty"`
	Text           string    `json:"text"`
	ReceivedAt     time.Time `json:"received_at"`
	Processed      bool      `json:"processed"`
}

// NewMessage creates a new unprocessed Message. The ID is assigned by the
// store on insert. Returns an error if validation fails.
func NewMessage(
	conversationID, senderID int64,
	senderUsername, senderName, text string,
	receivedAt time.Time,
) (*Message, error) {
	msg := &Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		SenderUsername: senderUsername,
		SenderName:     senderName,
		Text:           text,
		ReceivedAt:     receivedAt.UTC(),
		Processed:      false,
	}

	if err := msg.Validate(); err != nil {
		return nil, err
	}

	return msg, nil
}

// Validate checks if the Message has valid data.
func (m *Message) Validate() error {
	if m.ConversationID == 0 {
		return ErrInvalidConversationID
	}

	if m.Text == "" {
		return ErrEmptyMessageText
	}

	if m.ReceivedAt.IsZero() {
		return ErrZeroReceivedAt
	}

	return nil
}

// Author returns a human-readable attribution for the sender, used when
// formatting a batch for the extraction call.
func (m *Message) Author() string {
	switch {
	case m.SenderName != "" && m.SenderUsername != "":
		return m.SenderName + " (@" + m.SenderUsername + ")"
	case m.SenderUsername != "":
		return "@" + m.SenderUsername
	case m.SenderName != "":
		return m.SenderName
	default:
		return "unknown"
	}
}
