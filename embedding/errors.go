package embedding

import "errors"

var (
	// ErrEmbedderRequired is returned when no embedding backend is provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrVectorCountMismatch is returned when the backend answers a batch
	// with a different number of vectors than inputs it was given.
	ErrVectorCountMismatch = errors.New("embedding backend returned wrong number of vectors")
)
