package domain

import "errors"

// Error taxonomy. Service packages wrap these sentinels with context so
// the HTTP layer can map any error chain to a status without knowing
// which service produced it.
var (
	// ErrNotFound means an entity referenced by id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrBusinessRule means the request is well-formed but violates a
	// lifecycle or validation rule (e.g. scheduling without a template).
	ErrBusinessRule = errors.New("business rule violation")

	// ErrTransport means an outbound send attempt failed. Handled by the
	// per-recipient retry policy, never fatal to a run.
	ErrTransport = errors.New("transport failure")

	// ErrInvalidToken means a tracking token did not resolve. The public
	// surface must degrade generically and never confirm token validity.
	ErrInvalidToken = errors.New("invalid token")

	// ErrRateLimited means a per-token or per-transport limit rejected
	// the request.
	ErrRateLimited = errors.New("rate limited")
)
