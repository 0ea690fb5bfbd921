package service

import "errors"

// Sentinel errors for service operations.
var (
	ErrAnimeNotFound    = errors.New("anime not found")
	ErrStoreUnavailable = errors.New("anime store not configured")
	ErrInvalidInput     = errors.New("invalid input")
)
