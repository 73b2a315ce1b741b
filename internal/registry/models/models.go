package models

import (
	"time"

	id "recordshare/pkg/domain"
)

// Identity is an address and the role it registered with.
type Identity struct {
	Address      id.Address
	Role         Role
	RegisteredAt time.Time
}

// Registered reports whether the identity has left the Unregistered state.
func (i Identity) Registered() bool {
	return i.Role != RoleUnregistered
}

// DocumentRecord is a pointer to an externally stored document. Records are
// immutable once appended.
type DocumentRecord struct {
	Index          int
	Owner          id.Address
	ContentPointer string
	CreatedAt      time.Time
	// Active is always true. It is reserved for a future soft-delete and no
	// operation changes it.
	Active bool
}

// AccessGrant is a directed edge from an owner to a consumer.
type AccessGrant struct {
	Owner     id.Address
	Consumer  id.Address
	GrantedAt time.Time
}

// TimestampPrecision is the resolution of registry-assigned timestamps. It
// matches PostgreSQL's timestamptz so values survive a round trip.
const TimestampPrecision = time.Microsecond

// NextCreatedAt returns a creation time that is strictly after prev and as
// close to now as possible, truncated to TimestampPrecision.
func NextCreatedAt(prev, now time.Time) time.Time {
	next := now.UTC().Truncate(TimestampPrecision)
	if !prev.IsZero() && !next.After(prev) {
		next = prev.Add(TimestampPrecision)
	}
	return next
}
