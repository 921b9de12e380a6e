package directory

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDirectory reads listings and members from the platform schema.
// It does not own the pool.
type PostgresDirectory struct {
	pool   *pgxpool.Pool
	schema string
}

// Option configures PostgresDirectory behavior.
type Option func(*PostgresDirectory) error

// WithSchema sets the DB schema used by the directory (default: "pawline").
func WithSchema(schema string) Option {
	return func(d *PostgresDirectory) error {
		schema = strings.TrimSpace(schema)
		if schema == "" || !identRE.MatchString(schema) {
			return errors.New("directory: invalid schema identifier")
		}
		d.schema = schema
		return nil
	}
}

// NewPostgresDirectory constructs a directory backed by PostgreSQL.
func NewPostgresDirectory(pool *pgxpool.Pool, opts ...Option) (*PostgresDirectory, error) {
	d := &PostgresDirectory{
		pool:   pool,
		schema: "pawline",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	if d.pool == nil {
		return nil, errors.New("directory: nil pool")
	}
	return d, nil
}

// Listing resolves one listing by id.
func (d *PostgresDirectory) Listing(ctx context.Context, id int64) (Listing, error) {
	if d == nil || d.pool == nil {
		return Listing{}, errors.New("directory: nil directory")
	}
	if err := ctx.Err(); err != nil {
		return Listing{}, err
	}

	var l Listing
	err := d.pool.QueryRow(ctx,
		`SELECT id, owner_id, title FROM `+ident(d.schema, "listings")+` WHERE id = $1 AND NOT deleted`,
		id,
	).Scan(&l.ID, &l.OwnerID, &l.Title)
	if errors.Is(err, pgx.ErrNoRows) {
		return Listing{}, ErrListingNotFound
	}
	if err != nil {
		return Listing{}, err
	}
	return l, nil
}

// Member resolves one member by id.
func (d *PostgresDirectory) Member(ctx context.Context, id int64) (Member, error) {
	if d == nil || d.pool == nil {
		return Member{}, errors.New("directory: nil directory")
	}
	if err := ctx.Err(); err != nil {
		return Member{}, err
	}

	var m Member
	err := d.pool.QueryRow(ctx,
		`SELECT id, nickname FROM `+ident(d.schema, "members")+` WHERE id = $1 AND NOT deleted`,
		id,
	).Scan(&m.ID, &m.Nickname)
	if errors.Is(err, pgx.ErrNoRows) {
		return Member{}, ErrMemberNotFound
	}
	if err != nil {
		return Member{}, err
	}
	return m, nil
}

var identRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func ident(schema, table string) string {
	return pgx.Identifier{schema, table}.Sanitize()
}
