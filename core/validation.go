// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import "fmt"

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Text must not be empty (it is what gets embedded)
//   - Metadata keys must not be empty
//
// NOT validated:
//   - Metadata values (may be nil; a missing checksum means the text is the identity)
func ValidateDocument(doc Document) error {
	if doc.Text == "" {
		return fmt.Errorf("%w: %w: %w", ErrValidation, ErrInvalidDocument, ErrEmptyText)
	}
	if _, ok := doc.Metadata[""]; ok {
		return fmt.Errorf("%w: %w: %w: metadata", ErrValidation, ErrInvalidDocument, ErrMissingKey)
	}
	return nil
}

// ValidateDocuments validates every document and reports the first failure
// together with its position.
func ValidateDocuments(docs []Document) error {
	for i, doc := range docs {
		if err := ValidateDocument(doc); err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
	}
	return nil
}

// ValidateVector checks that v is non-empty and, when size > 0, has exactly
// size components.
func ValidateVector(v Vector, size int) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyVector)
	}
	if size > 0 && len(v) != size {
		return fmt.Errorf("%w: %w: expected %d, got %d", ErrValidation, ErrDimensionMismatch, size, len(v))
	}
	return nil
}
