package reembed

import "errors"

var (
	// ErrMissingText is returned when a stored point carries no text to embed
	ErrMissingText = errors.New("point payload has no text")
)
