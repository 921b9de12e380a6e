package chat

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// InMemoryStore is a dev fallback when DB is not configured; it also backs
// the unit tests. Semantics mirror PostgresStore: race-safe thread
// resolution, atomic append + activity bump, idempotent read marking.
type InMemoryStore struct {
	mu           sync.Mutex
	nextThreadID int64
	nextMsgID    int64
	threads      map[int64]*Thread
	messages     map[int64]*Message
}

// NewInMemoryStore constructs an in-memory Store implementation.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		threads:  make(map[int64]*Thread),
		messages: make(map[int64]*Message),
	}
}

// Close closes the store (noop for in-memory).
func (s *InMemoryStore) Close() error { return nil }

// Resolve finds or creates the thread for the unordered participant pair.
func (s *InMemoryStore) Resolve(ctx context.Context, listingID, senderID, receiverID int64, now time.Time) (Thread, bool, error) {
	if listingID <= 0 || senderID <= 0 || receiverID <= 0 {
		return Thread{}, false, errors.New("chat: invalid resolve input")
	}
	if senderID == receiverID {
		return Thread{}, false, ErrSelfThread
	}
	if err := ctx.Err(); err != nil {
		return Thread{}, false, err
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t := s.findPairLocked(listingID, senderID, receiverID); t != nil {
		return *t, false, nil
	}

	s.nextThreadID++
	t := &Thread{
		ID:         s.nextThreadID,
		ListingID:  listingID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     ThreadStatusNormal,
		CreatedAt:  now,
	}
	s.threads[t.ID] = t
	return *t, true, nil
}

// FindThread loads the thread for the unordered pair without creating one.
func (s *InMemoryStore) FindThread(ctx context.Context, listingID, a, b int64) (Thread, error) {
	if err := ctx.Err(); err != nil {
		return Thread{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t := s.findPairLocked(listingID, a, b); t != nil {
		return *t, nil
	}
	return Thread{}, ErrThreadNotFound
}

func (s *InMemoryStore) findPairLocked(listingID, a, b int64) *Thread {
	for _, t := range s.threads {
		if t.Deleted || t.ListingID != listingID {
			continue
		}
		if (t.SenderID == a && t.ReceiverID == b) ||
			(t.SenderID == b && t.ReceiverID == a) {
			return t
		}
	}
	return nil
}

// GetThread loads a thread by id.
func (s *InMemoryStore) GetThread(ctx context.Context, threadID int64) (Thread, error) {
	if err := ctx.Err(); err != nil {
		return Thread{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.threads[threadID]
	if !ok || t.Deleted {
		return Thread{}, ErrThreadNotFound
	}
	return *t, nil
}

// ListThreads pages a member's threads with preview and unread count.
func (s *InMemoryStore) ListThreads(ctx context.Context, memberID int64, req PageRequest, unreadOnly bool) ([]ThreadListRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]ThreadListRow, 0, 16)
	for _, t := range s.threads {
		if t.Deleted || t.Status == ThreadStatusRemoved || !t.HasParticipant(memberID) {
			continue
		}
		if !cursorAdmits(t.ID, req) {
			continue
		}

		r := ThreadListRow{Thread: *t}
		var last *Message
		for _, m := range s.messages {
			if m.ThreadID != t.ID || m.Deleted {
				continue
			}
			if last == nil || m.ID > last.ID {
				last = m
			}
			if m.SenderID != memberID && !m.Read {
				r.UnreadCount++
			}
		}
		if last != nil {
			r.LastKind = last.Kind
			r.LastPreview = last.Preview()
			ts := last.CreatedAt
			r.LastMessageAt = &ts
		}
		if unreadOnly && r.UnreadCount == 0 {
			continue
		}
		rows = append(rows, r)
	}

	sortRows(rows, req.Direction)
	if len(rows) > req.FetchLimit() {
		rows = rows[:req.FetchLimit()]
	}
	return rows, nil
}

// Append inserts a message and bumps the thread's last activity atomically.
func (s *InMemoryStore) Append(ctx context.Context, in AppendInput) (Message, error) {
	if in.ThreadID <= 0 || in.SenderID <= 0 {
		return Message{}, errors.New("chat: invalid append input")
	}
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.threads[in.ThreadID]
	if !ok || t.Deleted {
		return Message{}, ErrThreadNotFound
	}

	s.nextMsgID++
	m := &Message{
		ID:        s.nextMsgID,
		ThreadID:  in.ThreadID,
		SenderID:  in.SenderID,
		Kind:      in.Kind,
		Content:   in.Content,
		ImageKey:  in.ImageKey,
		CreatedAt: now,
	}
	s.messages[m.ID] = m

	ts := now
	t.LastMessageAt = &ts
	return *m, nil
}

// ListMessages pages a thread's messages by id.
func (s *InMemoryStore) ListMessages(ctx context.Context, threadID int64, req PageRequest) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, 0, req.FetchLimit())
	for _, m := range s.messages {
		if m.ThreadID != threadID || m.Deleted {
			continue
		}
		if !cursorAdmits(m.ID, req) {
			continue
		}
		out = append(out, *m)
	}

	if req.Direction == SortOldest {
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	}
	if len(out) > req.FetchLimit() {
		out = out[:req.FetchLimit()]
	}
	return out, nil
}

// GetMessage loads a message by id.
func (s *InMemoryStore) GetMessage(ctx context.Context, messageID int64) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[messageID]
	if !ok || m.Deleted {
		return Message{}, ErrMessageNotFound
	}
	return *m, nil
}

// MarkRead bulk-transitions unread messages addressed to readerID and returns them.
func (s *InMemoryStore) MarkRead(ctx context.Context, threadID, readerID int64) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Message
	for _, m := range s.messages {
		if m.ThreadID != threadID || m.Deleted || m.Read || m.SenderID == readerID {
			continue
		}
		m.Read = true
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UnreadCount counts unread messages of the thread addressed to readerID.
func (s *InMemoryStore) UnreadCount(ctx context.Context, threadID, readerID int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cnt := 0
	for _, m := range s.messages {
		if m.ThreadID == threadID && !m.Deleted && !m.Read && m.SenderID != readerID {
			cnt++
		}
	}
	return cnt, nil
}

func cursorAdmits(id int64, req PageRequest) bool {
	if req.Cursor == nil {
		return true
	}
	if req.Direction == SortOldest {
		return id > *req.Cursor
	}
	return id < *req.Cursor
}

func sortRows(rows []ThreadListRow, dir SortDirection) {
	if dir == SortOldest {
		sort.Slice(rows, func(i, j int) bool { return rows[i].Thread.ID < rows[j].Thread.ID })
		return
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Thread.ID > rows[j].Thread.ID })
}
