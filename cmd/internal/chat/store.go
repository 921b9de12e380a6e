package chat

import (
	"context"
	"time"
)

// ThreadStore persists conversation threads.
//
// Requirements:
//   - Resolve is idempotent and order-independent on the participant pair.
//   - Resolve is race-safe under concurrent first contacts: a uniqueness
//     constraint on (listing, unordered pair) backs create, and a conflicting
//     insert re-fetches the winning row instead of failing.
type ThreadStore interface {
	// Resolve finds or creates the thread for (listingID, {senderID, receiverID}).
	// On create, the thread's participants are fixed to the given orientation
	// and last activity stays unset until the first message commits.
	Resolve(ctx context.Context, listingID, senderID, receiverID int64, now time.Time) (Thread, bool, error)

	// FindThread loads the thread for (listingID, {a, b}) without creating
	// one. Order-independent on the pair; ErrThreadNotFound when absent.
	FindThread(ctx context.Context, listingID, a, b int64) (Thread, error)

	// GetThread loads a thread by id. Soft-deleted threads are not returned.
	GetThread(ctx context.Context, threadID int64) (Thread, error)

	// ListThreads returns up to req.FetchLimit() thread rows for a member,
	// ordered by thread id in the requested direction, optionally filtered to
	// threads holding unread messages addressed to the member.
	ListThreads(ctx context.Context, memberID int64, req PageRequest, unreadOnly bool) ([]ThreadListRow, error)
}

// AppendInput describes a message append request.
type AppendInput struct {
	ThreadID int64
	SenderID int64
	Kind     MessageKind
	Content  string
	ImageKey string
	Now      time.Time
}

// MessageStore persists messages and tracks read state.
//
// Append must atomically insert the message and bump the owning thread's
// last-activity timestamp: either both commit or neither does.
type MessageStore interface {
	Append(ctx context.Context, in AppendInput) (Message, error)

	// ListMessages returns up to req.FetchLimit() rows of a thread, ordered
	// by message id in the requested direction.
	ListMessages(ctx context.Context, threadID int64, req PageRequest) ([]Message, error)

	// GetMessage loads a message by id. Soft-deleted messages are not returned.
	GetMessage(ctx context.Context, messageID int64) (Message, error)

	// MarkRead sets read=true on every unread message of the thread addressed
	// to readerID (sender != reader) and returns the rows that transitioned.
	// Idempotent: a second call returns no rows.
	MarkRead(ctx context.Context, threadID, readerID int64) ([]Message, error)

	// UnreadCount counts unread messages of the thread addressed to readerID.
	UnreadCount(ctx context.Context, threadID, readerID int64) (int, error)
}

// Store is the combined persistence surface; the Postgres and memory
// implementations satisfy both halves over one resource.
type Store interface {
	ThreadStore
	MessageStore
	Close() error
}
