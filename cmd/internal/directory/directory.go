// Package directory exposes read-only views of the platform entities the
// chat core collaborates with: listings and members. Chat never mutates
// these; it reads ids and display fields only.
package directory

import (
	"context"
	"errors"
)

var (
	// ErrListingNotFound is returned when a listing id does not resolve.
	ErrListingNotFound = errors.New("listing not found")

	// ErrMemberNotFound is returned when a member id does not resolve.
	ErrMemberNotFound = errors.New("member not found")
)

// Listing is the minimal listing view needed for first-contact resolution
// and thread summaries.
type Listing struct {
	ID      int64
	OwnerID int64
	Title   string
}

// Member is the minimal member view needed for display.
type Member struct {
	ID       int64
	Nickname string
}

// Listings resolves listings by id.
type Listings interface {
	Listing(ctx context.Context, id int64) (Listing, error)
}

// Members resolves members by id.
type Members interface {
	Member(ctx context.Context, id int64) (Member, error)
}
