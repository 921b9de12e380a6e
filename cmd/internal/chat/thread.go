// Package chat contains Pawline's realtime chat core: conversation threads,
// messages, persistence, broadcast fanout, and the WebSocket gateway.
package chat

import "time"

// ThreadStatus is the moderation state of a thread.
type ThreadStatus string

const (
	// ThreadStatusNormal is the default state.
	ThreadStatusNormal ThreadStatus = "normal"
	// ThreadStatusFlagged marks a thread reported for review.
	ThreadStatusFlagged ThreadStatus = "flagged"
	// ThreadStatusRemoved marks a thread pulled by moderation.
	ThreadStatusRemoved ThreadStatus = "removed"
)

// Thread is a conversation between exactly two participants, scoped to one
// listing. Exactly one thread exists per unordered (listing, pair) combination.
//
// SenderID is the participant who initiated first contact; ReceiverID is the
// counterpart (the listing owner on first contact). The pair is unordered for
// resolution purposes.
type Thread struct {
	ID            int64
	ListingID     int64
	SenderID      int64
	ReceiverID    int64
	LastMessageAt *time.Time
	Status        ThreadStatus
	Deleted       bool
	CreatedAt     time.Time
}

// HasParticipant reports whether userID is one of the two participants.
func (t Thread) HasParticipant(userID int64) bool {
	return userID != 0 && (userID == t.SenderID || userID == t.ReceiverID)
}

// Counterpart returns the participant other than userID.
// Returns 0 when userID is not a participant.
func (t Thread) Counterpart(userID int64) int64 {
	switch userID {
	case t.SenderID:
		return t.ReceiverID
	case t.ReceiverID:
		return t.SenderID
	default:
		return 0
	}
}

// ThreadListRow is one row of a member's thread list as returned by the store.
// Display enrichment (nicknames, listing titles) happens in the service.
type ThreadListRow struct {
	Thread        Thread
	LastKind      MessageKind
	LastPreview   string
	LastMessageAt *time.Time
	UnreadCount   int
}

// ThreadSummary is the API-facing thread list entry.
type ThreadSummary struct {
	ThreadID            int64
	ListingID           int64
	ListingTitle        string
	CounterpartID       int64
	CounterpartNickname string
	LastKind            MessageKind
	LastPreview         string
	LastMessageAt       *time.Time
	UnreadCount         int
}
