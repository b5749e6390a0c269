package store

import (
	"context"

	"inigma/internal/domain"
)

// Store is the durable key→record mapping behind the lifecycle engine.
// All cross-request state lives here; request handlers hold no locks of
// their own and rely on ConditionalUpdate for the one operation that needs
// more than read-then-blind-write semantics.
type Store interface {
	// Put writes the record unconditionally.
	Put(ctx context.Context, s domain.Secret) error

	// Get returns the record or domain.ErrNotFound.
	Get(ctx context.Context, id string) (domain.Secret, error)

	// ConditionalUpdate applies mutate iff pred holds over the current
	// record at apply time, atomically with respect to other writes on the
	// same id. It returns applied=false, with a nil error, when the record
	// is missing or the predicate does not hold. A record is never
	// partially written.
	ConditionalUpdate(ctx context.Context, id string, pred func(domain.Secret) bool, mutate func(*domain.Secret)) (bool, error)

	// Delete removes the record, reporting whether it existed.
	Delete(ctx context.Context, id string) (bool, error)

	// Scan calls fn for every record. The iteration is finite and
	// restartable per call; it backs listing and sweeping only, never the
	// single-record hot path. Returning an error from fn stops the scan.
	Scan(ctx context.Context, fn func(domain.Secret) error) error

	Close() error
}
