package domain

import "errors"

var (
	// ErrInvalidInput covers malformed or oversized request fields. Always
	// client-caused, detected before any store call.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound means the secret is absent or has lapsed. A dead secret is
	// indistinguishable from one that never existed.
	ErrNotFound = errors.New("secret not found")

	// ErrForbidden means the requester is neither the owner nor, for an
	// unclaimed secret, the creator.
	ErrForbidden = errors.New("access denied")

	// ErrConflict means a claim lost the race: the secret is already owned.
	ErrConflict = errors.New("secret already owned")

	// ErrRateLimited is returned by the request gate when a client exceeds
	// its window budget.
	ErrRateLimited = errors.New("rate limit exceeded")
)
