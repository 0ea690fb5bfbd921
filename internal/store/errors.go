package store

import "errors"

// Sentinel errors for store operations.
var (
	ErrAnimeNotFound = errors.New("anime not found")
	ErrInvalidAnime  = errors.New("anime has no id")
)
