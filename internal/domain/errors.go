package domain

import "errors"

var (
	// ErrInvalidQuery rejects a listing request that names a filter or sort field outside the whitelist.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidValue rejects an out-of-range or malformed value, such as a rating outside 1..5.
	ErrInvalidValue = errors.New("invalid value")
	// ErrNotFound indicates a referenced user, store or owned store does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict signals a broken uniqueness invariant on the rating upsert. It is never retryable.
	ErrConflict = errors.New("conflict")
	// ErrAlreadyExists rejects a create with an email that is already taken.
	ErrAlreadyExists = errors.New("already exists")
)
