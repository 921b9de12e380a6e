package chat

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a Store backed by PostgreSQL.
//
// Ownership model:
// - PostgresStore does NOT own the pgx pool. The caller must close the pool.
// - Close() is therefore a no-op.
//
// Concurrency model:
//   - Thread resolution relies on the unique index over
//     (listing_id, least(pair), greatest(pair)): concurrent first contacts
//     race on the insert and the loser re-fetches the winning row.
//   - Append runs in a single transaction so the message insert and the
//     thread activity bump commit together or not at all.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures PostgresStore behavior.
type PostgresOption func(*PostgresStore) error

// WithSchema sets the DB schema used by this store (default: "pawline").
// The schema name is validated and safely quoted in queries.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return errors.New("chat: empty schema")
		}
		if !isValidPGIdent(schema) {
			return errors.New("chat: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a Postgres-backed Store.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "pawline",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, errors.New("chat: nil pool")
	}
	return st, nil
}

// Close is a no-op because the pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }

const threadColumns = `id, listing_id, sender_id, receiver_id, last_message_at, status, deleted, created_at`

const messageColumns = `id, thread_id, sender_id, kind, content, image_key, read, deleted, created_at`

// Resolve finds or creates the thread for the unordered participant pair.
func (s *PostgresStore) Resolve(ctx context.Context, listingID, senderID, receiverID int64, now time.Time) (Thread, bool, error) {
	if s == nil || s.pool == nil {
		return Thread{}, false, errors.New("chat: nil store")
	}
	if listingID <= 0 || senderID <= 0 || receiverID <= 0 {
		return Thread{}, false, errors.New("chat: invalid resolve input")
	}
	if senderID == receiverID {
		return Thread{}, false, ErrSelfThread
	}
	if err := ctx.Err(); err != nil {
		return Thread{}, false, err
	}

	threads := pgIdent(s.schema, "threads")

	t, err := s.findByPair(ctx, threads, listingID, senderID, receiverID)
	if err == nil {
		return t, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Thread{}, false, err
	}

	if now.IsZero() {
		now = time.Now().UTC()
	}

	// The unique pair index turns the check-then-create race into a no-op
	// insert for the loser, which then re-fetches the winner's row.
	row := s.pool.QueryRow(ctx,
		`INSERT INTO `+threads+` (listing_id, sender_id, receiver_id, status, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (listing_id, (LEAST(sender_id, receiver_id)), (GREATEST(sender_id, receiver_id)))
		 DO NOTHING
		 RETURNING `+threadColumns,
		listingID, senderID, receiverID, string(ThreadStatusNormal), now,
	)

	t, err = scanThread(row)
	if err == nil {
		return t, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Thread{}, false, fmt.Errorf("insert thread: %w", err)
	}

	// Lost the race: someone else created it between the lookup and the insert.
	t, err = s.findByPair(ctx, threads, listingID, senderID, receiverID)
	if err != nil {
		return Thread{}, false, fmt.Errorf("refetch thread after conflict: %w", err)
	}
	return t, false, nil
}

// FindThread loads the thread for the unordered pair without creating one.
func (s *PostgresStore) FindThread(ctx context.Context, listingID, a, b int64) (Thread, error) {
	if s == nil || s.pool == nil {
		return Thread{}, errors.New("chat: nil store")
	}

	t, err := s.findByPair(ctx, pgIdent(s.schema, "threads"), listingID, a, b)
	if errors.Is(err, pgx.ErrNoRows) {
		return Thread{}, ErrThreadNotFound
	}
	if err != nil {
		return Thread{}, err
	}
	return t, nil
}

func (s *PostgresStore) findByPair(ctx context.Context, threadsTable string, listingID, a, b int64) (Thread, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+threadColumns+`
		   FROM `+threadsTable+`
		  WHERE listing_id = $1
		    AND LEAST(sender_id, receiver_id) = LEAST($2::bigint, $3::bigint)
		    AND GREATEST(sender_id, receiver_id) = GREATEST($2::bigint, $3::bigint)
		    AND NOT deleted`,
		listingID, a, b,
	)
	return scanThread(row)
}

// GetThread loads a thread by id.
func (s *PostgresStore) GetThread(ctx context.Context, threadID int64) (Thread, error) {
	if s == nil || s.pool == nil {
		return Thread{}, errors.New("chat: nil store")
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+threadColumns+` FROM `+pgIdent(s.schema, "threads")+` WHERE id = $1 AND NOT deleted`,
		threadID,
	)
	t, err := scanThread(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Thread{}, ErrThreadNotFound
	}
	if err != nil {
		return Thread{}, err
	}
	return t, nil
}

// ListThreads pages a member's threads with last-message preview and unread count.
func (s *PostgresStore) ListThreads(ctx context.Context, memberID int64, req PageRequest, unreadOnly bool) ([]ThreadListRow, error) {
	if s == nil || s.pool == nil {
		return nil, errors.New("chat: nil store")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	threads := pgIdent(s.schema, "threads")
	messages := pgIdent(s.schema, "messages")

	var sb strings.Builder
	args := make([]any, 0, 4)
	args = append(args, memberID)

	sb.WriteString(`SELECT t.id, t.listing_id, t.sender_id, t.receiver_id, t.last_message_at, t.status, t.deleted, t.created_at,
       COALESCE(lm.kind, ''), COALESCE(lm.content, ''), COALESCE(lm.image_key, ''), lm.created_at,
       COALESCE(u.cnt, 0)
  FROM ` + threads + ` t
  LEFT JOIN LATERAL (
       SELECT m.kind, m.content, m.image_key, m.created_at
         FROM ` + messages + ` m
        WHERE m.thread_id = t.id AND NOT m.deleted
        ORDER BY m.id DESC
        LIMIT 1
  ) lm ON TRUE
  LEFT JOIN LATERAL (
       SELECT COUNT(*) AS cnt
         FROM ` + messages + ` m
        WHERE m.thread_id = t.id AND m.sender_id <> $1 AND NOT m.read AND NOT m.deleted
  ) u ON TRUE
 WHERE (t.sender_id = $1 OR t.receiver_id = $1)
   AND NOT t.deleted
   AND t.status <> 'removed'`)

	if req.Cursor != nil {
		args = append(args, *req.Cursor)
		if req.Direction == SortOldest {
			fmt.Fprintf(&sb, " AND t.id > $%d", len(args))
		} else {
			fmt.Fprintf(&sb, " AND t.id < $%d", len(args))
		}
	}
	if unreadOnly {
		sb.WriteString(" AND u.cnt > 0")
	}

	if req.Direction == SortOldest {
		sb.WriteString(" ORDER BY t.id ASC")
	} else {
		sb.WriteString(" ORDER BY t.id DESC")
	}
	args = append(args, req.FetchLimit())
	fmt.Fprintf(&sb, " LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ThreadListRow, 0, req.FetchLimit())
	for rows.Next() {
		var (
			r        ThreadListRow
			kind     string
			imageKey string
		)
		if err := rows.Scan(
			&r.Thread.ID,
			&r.Thread.ListingID,
			&r.Thread.SenderID,
			&r.Thread.ReceiverID,
			&r.Thread.LastMessageAt,
			&r.Thread.Status,
			&r.Thread.Deleted,
			&r.Thread.CreatedAt,
			&kind,
			&r.LastPreview,
			&imageKey,
			&r.LastMessageAt,
			&r.UnreadCount,
		); err != nil {
			return nil, err
		}
		r.LastKind = MessageKind(kind)
		if r.LastKind == KindImage {
			r.LastPreview = "[image]"
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Append inserts a message and bumps the thread's last activity in one transaction.
func (s *PostgresStore) Append(ctx context.Context, in AppendInput) (Message, error) {
	if s == nil || s.pool == nil {
		return Message{}, errors.New("chat: nil store")
	}
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

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return Message{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	messages := pgIdent(s.schema, "messages")
	threads := pgIdent(s.schema, "threads")

	var id int64
	if err := tx.QueryRow(ctx,
		`INSERT INTO `+messages+` (thread_id, sender_id, kind, content, image_key, read, deleted, created_at)
		 VALUES ($1, $2, $3, $4, $5, FALSE, FALSE, $6)
		 RETURNING id`,
		in.ThreadID, in.SenderID, string(in.Kind), in.Content, in.ImageKey, now,
	).Scan(&id); err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE `+threads+` SET last_message_at = $2 WHERE id = $1`,
		in.ThreadID, now,
	); err != nil {
		return Message{}, fmt.Errorf("bump thread activity: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Message{}, err
	}

	return Message{
		ID:        id,
		ThreadID:  in.ThreadID,
		SenderID:  in.SenderID,
		Kind:      in.Kind,
		Content:   in.Content,
		ImageKey:  in.ImageKey,
		CreatedAt: now,
	}, nil
}

// ListMessages pages a thread's messages by id.
func (s *PostgresStore) ListMessages(ctx context.Context, threadID int64, req PageRequest) ([]Message, error) {
	if s == nil || s.pool == nil {
		return nil, errors.New("chat: nil store")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	messages := pgIdent(s.schema, "messages")

	var sb strings.Builder
	args := make([]any, 0, 3)
	args = append(args, threadID)

	sb.WriteString(`SELECT ` + messageColumns + ` FROM ` + messages + ` WHERE thread_id = $1 AND NOT deleted`)

	if req.Cursor != nil {
		args = append(args, *req.Cursor)
		if req.Direction == SortOldest {
			fmt.Fprintf(&sb, " AND id > $%d", len(args))
		} else {
			fmt.Fprintf(&sb, " AND id < $%d", len(args))
		}
	}
	if req.Direction == SortOldest {
		sb.WriteString(" ORDER BY id ASC")
	} else {
		sb.WriteString(" ORDER BY id DESC")
	}
	args = append(args, req.FetchLimit())
	fmt.Fprintf(&sb, " LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows, req.FetchLimit())
}

// GetMessage loads a message by id.
func (s *PostgresStore) GetMessage(ctx context.Context, messageID int64) (Message, error) {
	if s == nil || s.pool == nil {
		return Message{}, errors.New("chat: nil store")
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+messageColumns+` FROM `+pgIdent(s.schema, "messages")+` WHERE id = $1 AND NOT deleted`,
		messageID,
	)
	m, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Message{}, ErrMessageNotFound
	}
	if err != nil {
		return Message{}, err
	}
	return m, nil
}

// MarkRead bulk-transitions unread messages addressed to readerID and returns them.
func (s *PostgresStore) MarkRead(ctx context.Context, threadID, readerID int64) ([]Message, error) {
	if s == nil || s.pool == nil {
		return nil, errors.New("chat: nil store")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`UPDATE `+pgIdent(s.schema, "messages")+`
		    SET read = TRUE
		  WHERE thread_id = $1 AND sender_id <> $2 AND NOT read AND NOT deleted
		 RETURNING `+messageColumns,
		threadID, readerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows, 8)
}

// UnreadCount counts unread messages of the thread addressed to readerID.
func (s *PostgresStore) UnreadCount(ctx context.Context, threadID, readerID int64) (int, error) {
	if s == nil || s.pool == nil {
		return 0, errors.New("chat: nil store")
	}

	var cnt int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM `+pgIdent(s.schema, "messages")+`
		  WHERE thread_id = $1 AND sender_id <> $2 AND NOT read AND NOT deleted`,
		threadID, readerID,
	).Scan(&cnt)
	if err != nil {
		return 0, err
	}
	return cnt, nil
}

// ---- scan helpers ----

func scanThread(row pgx.Row) (Thread, error) {
	var (
		t      Thread
		status string
	)
	err := row.Scan(
		&t.ID,
		&t.ListingID,
		&t.SenderID,
		&t.ReceiverID,
		&t.LastMessageAt,
		&status,
		&t.Deleted,
		&t.CreatedAt,
	)
	if err != nil {
		return Thread{}, err
	}
	t.Status = ThreadStatus(status)
	return t, nil
}

func scanMessage(row pgx.Row) (Message, error) {
	var (
		m    Message
		kind string
	)
	err := row.Scan(
		&m.ID,
		&m.ThreadID,
		&m.SenderID,
		&kind,
		&m.Content,
		&m.ImageKey,
		&m.Read,
		&m.Deleted,
		&m.CreatedAt,
	)
	if err != nil {
		return Message{}, err
	}
	m.Kind = MessageKind(kind)
	return m, nil
}

func scanMessages(rows pgx.Rows, capHint int) ([]Message, error) {
	out := make([]Message, 0, capHint)
	for rows.Next() {
		var (
			m    Message
			kind string
		)
		if err := rows.Scan(
			&m.ID,
			&m.ThreadID,
			&m.SenderID,
			&kind,
			&m.Content,
			&m.ImageKey,
			&m.Read,
			&m.Deleted,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		m.Kind = MessageKind(kind)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

var pgIdentRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func isValidPGIdent(s string) bool {
	return pgIdentRE.MatchString(s)
}

func pgIdent(schema, table string) string {
	// pgx.Identifier safely quotes identifiers, preventing SQL injection.
	return pgx.Identifier{schema, table}.Sanitize()
}
