package directory

import (
	"context"
	"sync"
)

// InMemoryDirectory is a dev/test directory seeded by hand.
type InMemoryDirectory struct {
	mu       sync.RWMutex
	listings map[int64]Listing
	members  map[int64]Member
}

// NewInMemoryDirectory constructs an empty in-memory directory.
func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{
		listings: make(map[int64]Listing),
		members:  make(map[int64]Member),
	}
}

// PutListing seeds or replaces a listing.
func (d *InMemoryDirectory) PutListing(l Listing) {
	d.mu.Lock()
	d.listings[l.ID] = l
	d.mu.Unlock()
}

// PutMember seeds or replaces a member.
func (d *InMemoryDirectory) PutMember(m Member) {
	d.mu.Lock()
	d.members[m.ID] = m
	d.mu.Unlock()
}

// Listing resolves one listing by id.
func (d *InMemoryDirectory) Listing(ctx context.Context, id int64) (Listing, error) {
	if err := ctx.Err(); err != nil {
		return Listing{}, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	l, ok := d.listings[id]
	if !ok {
		return Listing{}, ErrListingNotFound
	}
	return l, nil
}

// Member resolves one member by id.
func (d *InMemoryDirectory) Member(ctx context.Context, id int64) (Member, error) {
	if err := ctx.Err(); err != nil {
		return Member{}, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	m, ok := d.members[id]
	if !ok {
		return Member{}, ErrMemberNotFound
	}
	return m, nil
}
