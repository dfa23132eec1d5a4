package database

import "errors"

var (
	// ErrURLNotFound is returned when no URL record is stored under a token.
	ErrURLNotFound = errors.New("url not found")
	// ErrInvalidKey is returned when a raw storage key does not follow the
	// namespace:id layout.
	ErrInvalidKey = errors.New("invalid key")
)
