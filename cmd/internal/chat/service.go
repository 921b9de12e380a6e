package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pawline/cmd/internal/directory"
)

// Service implements the chat operations: sending (resolve thread, persist,
// bump activity, publish), thread/message listing, and read-state tracking.
//
// Publish ordering: a message is always durably committed before it is
// handed to the Publisher, and a publish failure never fails the send.
type Service struct {
	log      *slog.Logger
	store    Store
	listings directory.Listings
	members  directory.Members
	pub      Publisher
	metrics  *Metrics
}

// NewService constructs a Service. A nil publisher degrades to NopPublisher;
// nil metrics disable instrumentation.
func NewService(log *slog.Logger, store Store, listings directory.Listings, members directory.Members, pub Publisher, metrics *Metrics) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	if store == nil {
		return nil, errors.New("chat: nil store")
	}
	if listings == nil || members == nil {
		return nil, errors.New("chat: nil directory")
	}
	if pub == nil {
		pub = NopPublisher{}
	}
	return &Service{
		log:      log,
		store:    store,
		listings: listings,
		members:  members,
		pub:      pub,
		metrics:  metrics,
	}, nil
}

// SendInput describes one send request. Exactly one of Content and ImageKey
// must be set. ReceiverID is optional: when zero, the receiver resolves to
// the listing owner (first-contact rule). A non-zero ReceiverID only
// addresses a thread that already exists, such as the owner replying to a
// counterpart; it never creates one.
type SendInput struct {
	SenderID   int64
	ListingID  int64
	ReceiverID int64
	Content    string
	ImageKey   string
	Now        time.Time
}

// Send validates, persists, and publishes one message, returning the
// delivery-ready payload.
func (s *Service) Send(ctx context.Context, in SendInput) (Delivery, error) {
	content := strings.TrimSpace(in.Content)
	imageKey := strings.TrimSpace(in.ImageKey)
	if (content == "") == (imageKey == "") {
		return Delivery{}, ErrEmptyMessage
	}

	kind := KindText
	if imageKey != "" {
		kind = KindImage
	}

	listing, err := s.listings.Listing(ctx, in.ListingID)
	if errors.Is(err, directory.ErrListingNotFound) {
		return Delivery{}, ErrListingNotFound
	}
	if err != nil {
		return Delivery{}, fmt.Errorf("resolve listing: %w", err)
	}

	if _, err := s.members.Member(ctx, in.SenderID); err != nil {
		if errors.Is(err, directory.ErrMemberNotFound) {
			return Delivery{}, ErrSenderNotFound
		}
		return Delivery{}, fmt.Errorf("resolve sender: %w", err)
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	thread, err := s.resolveForSender(ctx, listing, in.SenderID, in.ReceiverID, now)
	if err != nil {
		return Delivery{}, err
	}
	if thread.Status == ThreadStatusRemoved {
		return Delivery{}, ErrForbidden
	}

	msg, err := s.store.Append(ctx, AppendInput{
		ThreadID: thread.ID,
		SenderID: in.SenderID,
		Kind:     kind,
		Content:  content,
		ImageKey: imageKey,
		Now:      now,
	})
	if err != nil {
		return Delivery{}, fmt.Errorf("append message: %w", err)
	}
	s.metrics.messageSent()

	d := Delivery{
		MessageID:  msg.ID,
		ThreadID:   thread.ID,
		ListingID:  listing.ID,
		SenderID:   msg.SenderID,
		ReceiverID: thread.Counterpart(msg.SenderID),
		Kind:       msg.Kind,
		Content:    msg.Content,
		ImageKey:   msg.ImageKey,
		CreatedAt:  msg.CreatedAt,
	}

	// The message is durable at this point. Live delivery is best-effort:
	// publish failures are logged and swallowed, never surfaced to the caller.
	if err := s.pub.PublishMessage(ctx, d); err != nil {
		s.metrics.publishFailed()
		s.log.Error("chat.publish.fail", "message_id", d.MessageID, "thread_id", d.ThreadID, "err", err)
	}

	return d, nil
}

// ListThreads pages the caller's threads, enriched for display.
func (s *Service) ListThreads(ctx context.Context, callerID int64, req PageRequest, unreadOnly bool) (Page[ThreadSummary], error) {
	req = req.Normalize(defaultPageSize, maxPageSize)

	rows, err := s.store.ListThreads(ctx, callerID, req, unreadOnly)
	if err != nil {
		return Page[ThreadSummary]{}, err
	}

	page := BuildPage(rows, req.Size, func(r ThreadListRow) int64 { return r.Thread.ID })

	out := Page[ThreadSummary]{
		Items:      make([]ThreadSummary, 0, len(page.Items)),
		HasNext:    page.HasNext,
		NextCursor: page.NextCursor,
	}
	for _, r := range page.Items {
		out.Items = append(out.Items, s.summarize(ctx, callerID, r))
	}
	return out, nil
}

func (s *Service) summarize(ctx context.Context, callerID int64, r ThreadListRow) ThreadSummary {
	sum := ThreadSummary{
		ThreadID:      r.Thread.ID,
		ListingID:     r.Thread.ListingID,
		CounterpartID: r.Thread.Counterpart(callerID),
		LastKind:      r.LastKind,
		LastPreview:   r.LastPreview,
		LastMessageAt: r.LastMessageAt,
		UnreadCount:   r.UnreadCount,
	}

	// Display lookups are best-effort: a vanished listing or member leaves
	// the field empty rather than failing the whole page.
	if l, err := s.listings.Listing(ctx, r.Thread.ListingID); err == nil {
		sum.ListingTitle = l.Title
	}
	if m, err := s.members.Member(ctx, sum.CounterpartID); err == nil {
		sum.CounterpartNickname = m.Nickname
	}
	return sum
}

// ListMessages pages a thread's messages for a participant. Before the page
// is fetched it marks every unread message addressed to the caller as read,
// so the returned page already reflects the new read state, and publishes
// one read receipt per transitioned message.
func (s *Service) ListMessages(ctx context.Context, callerID, threadID int64, req PageRequest) (Page[Message], error) {
	thread, err := s.authorize(ctx, callerID, threadID)
	if err != nil {
		return Page[Message]{}, err
	}
	req = req.Normalize(defaultPageSize, maxPageSize)

	read, err := s.store.MarkRead(ctx, threadID, callerID)
	if err != nil {
		return Page[Message]{}, fmt.Errorf("mark read: %w", err)
	}
	s.publishReadReceipts(ctx, thread, callerID, read)

	rows, err := s.store.ListMessages(ctx, threadID, req)
	if err != nil {
		return Page[Message]{}, err
	}
	return BuildPage(rows, req.Size, func(m Message) int64 { return m.ID }), nil
}

// MarkRead transitions the caller's unread messages in the thread and
// publishes receipts. Idempotent.
func (s *Service) MarkRead(ctx context.Context, callerID, threadID int64) (int, error) {
	thread, err := s.authorize(ctx, callerID, threadID)
	if err != nil {
		return 0, err
	}

	read, err := s.store.MarkRead(ctx, threadID, callerID)
	if err != nil {
		return 0, err
	}
	s.publishReadReceipts(ctx, thread, callerID, read)
	return len(read), nil
}

// UnreadCount reports the caller's unread count for one thread.
func (s *Service) UnreadCount(ctx context.Context, callerID, threadID int64) (int, error) {
	if _, err := s.authorize(ctx, callerID, threadID); err != nil {
		return 0, err
	}
	return s.store.UnreadCount(ctx, threadID, callerID)
}

// GetMessage loads one message, enforcing thread membership.
func (s *Service) GetMessage(ctx context.Context, callerID, messageID int64) (Message, error) {
	m, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return Message{}, err
	}
	if _, err := s.authorize(ctx, callerID, m.ThreadID); err != nil {
		return Message{}, err
	}
	return m, nil
}

// AuthorizeThreadMember verifies the caller participates in the thread.
// Image address issuance authorizes against this.
func (s *Service) AuthorizeThreadMember(ctx context.Context, callerID, threadID int64) (Thread, error) {
	return s.authorize(ctx, callerID, threadID)
}

// ResolveThread finds or creates the caller's thread on a listing without
// sending a message. Upload-address issuance uses it when the image is the
// first contact, so the object key can be thread-scoped up front.
func (s *Service) ResolveThread(ctx context.Context, callerID, listingID, receiverID int64) (Thread, error) {
	listing, err := s.listings.Listing(ctx, listingID)
	if errors.Is(err, directory.ErrListingNotFound) {
		return Thread{}, ErrListingNotFound
	}
	if err != nil {
		return Thread{}, fmt.Errorf("resolve listing: %w", err)
	}
	if _, err := s.members.Member(ctx, callerID); err != nil {
		if errors.Is(err, directory.ErrMemberNotFound) {
			return Thread{}, ErrSenderNotFound
		}
		return Thread{}, fmt.Errorf("resolve caller: %w", err)
	}
	thread, err := s.resolveForSender(ctx, listing, callerID, receiverID, time.Now().UTC())
	if err != nil {
		return Thread{}, err
	}
	if thread.Status == ThreadStatusRemoved {
		return Thread{}, ErrForbidden
	}
	return thread, nil
}

// resolveForSender maps a send's addressing onto its thread. The only
// orientation that may create a thread is first contact toward the listing
// owner; every other pair, the owner replying included, must name a thread
// that already exists. A client-chosen receiver therefore can never open a
// thread with an arbitrary or nonexistent member.
func (s *Service) resolveForSender(ctx context.Context, listing directory.Listing, senderID, receiverID int64, now time.Time) (Thread, error) {
	if receiverID == 0 {
		receiverID = listing.OwnerID
	}
	if receiverID == senderID {
		return Thread{}, ErrSelfThread
	}

	if senderID != listing.OwnerID && receiverID == listing.OwnerID {
		thread, created, err := s.store.Resolve(ctx, listing.ID, senderID, receiverID, now)
		if err != nil {
			return Thread{}, fmt.Errorf("resolve thread: %w", err)
		}
		if created {
			s.log.Info("chat.thread.create",
				"thread_id", thread.ID, "listing_id", listing.ID,
				"sender_id", senderID, "receiver_id", receiverID)
		}
		return thread, nil
	}

	thread, err := s.store.FindThread(ctx, listing.ID, senderID, receiverID)
	if errors.Is(err, ErrThreadNotFound) {
		return Thread{}, ErrForbidden
	}
	if err != nil {
		return Thread{}, fmt.Errorf("find thread: %w", err)
	}
	return thread, nil
}

func (s *Service) authorize(ctx context.Context, callerID, threadID int64) (Thread, error) {
	thread, err := s.store.GetThread(ctx, threadID)
	if err != nil {
		return Thread{}, err
	}
	if !thread.HasParticipant(callerID) {
		return Thread{}, ErrForbidden
	}
	return thread, nil
}

func (s *Service) publishReadReceipts(ctx context.Context, thread Thread, readerID int64, read []Message) {
	for _, m := range read {
		r := ReadReceipt{
			MessageID: m.ID,
			ThreadID:  thread.ID,
			SenderID:  m.SenderID,
			ReaderID:  readerID,
		}
		if err := s.pub.PublishRead(ctx, r); err != nil {
			s.metrics.publishFailed()
			s.log.Error("chat.read_receipt.publish.fail", "message_id", m.ID, "err", err)
		}
	}
}
