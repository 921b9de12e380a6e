package chat

import "time"

// MessageKind distinguishes text messages from image references.
type MessageKind string

const (
	// KindText is a plain text message.
	KindText MessageKind = "text"
	// KindImage is a message whose body is an opaque object-store key.
	KindImage MessageKind = "image"
)

// Message is one persisted chat message. Content is immutable after creation;
// only the read flag and the soft-delete flag mutate.
//
// Message holds the thread id only (no back-pointer object) so there is no
// in-memory object cycle between Thread and Message.
type Message struct {
	ID        int64
	ThreadID  int64
	SenderID  int64
	Kind      MessageKind
	Content   string
	ImageKey  string
	Read      bool
	Deleted   bool
	CreatedAt time.Time
}

// Preview returns the text shown in thread lists.
func (m Message) Preview() string {
	if m.Kind == KindImage {
		return "[image]"
	}
	return m.Content
}

// Delivery is the delivery-ready payload produced by a successful send.
// It is serialized onto the broadcast channel and handed to local sessions.
type Delivery struct {
	MessageID  int64       `json:"message_id"`
	ThreadID   int64       `json:"thread_id"`
	ListingID  int64       `json:"listing_id"`
	SenderID   int64       `json:"sender_id"`
	ReceiverID int64       `json:"receiver_id"`
	Kind       MessageKind `json:"kind"`
	Content    string      `json:"content,omitempty"`
	ImageKey   string      `json:"image_key,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// ReadReceipt is the broadcast payload for the read channel: the id of a
// message that just transitioned to read, plus the message's original sender
// (the delivery target) and the reader who triggered it.
type ReadReceipt struct {
	MessageID int64 `json:"message_id"`
	ThreadID  int64 `json:"thread_id"`
	SenderID  int64 `json:"sender_id"`
	ReaderID  int64 `json:"reader_id"`
}
