package index

import "errors"

var (
	// ErrEmbedderRequired is returned when no embedding pipeline is provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrVectorCountMismatch is returned when the embedder returns a
	// different number of vectors than documents it was given.
	ErrVectorCountMismatch = errors.New("embedder returned wrong number of vectors")
)
