package session

import "context"

// Mutator is applied inside an atomic read-modify-write. Returning an
// error aborts the update and leaves the stored session unchanged.
type Mutator func(*Session) error

// Store keys sessions by conversation identity. A cold read returns a
// fresh default session, never an error. Updates to the same session are
// strictly serialized; updates to different sessions do not block each
// other.
type Store interface {
	// Get retrieves the session, creating a default one if absent.
	Get(ctx context.Context, id ID) (Session, error)

	// Update applies mutate atomically and returns the resulting session.
	Update(ctx context.Context, id ID, mutate Mutator) (Session, error)

	// Reset clears the session history per the system-prompt invariant.
	Reset(ctx context.Context, id ID) error

	// Close releases any backing resources.
	Close() error
}
