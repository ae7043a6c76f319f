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

import "errors"

// Domain validation errors
var (
	// ErrValidation is the parent of every validation failure. Validation
	// failures are fatal and never retried.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptyText indicates the Text field is empty.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrEmptyVector indicates a vector with no components.
	ErrEmptyVector = errors.New("vector cannot be empty")

	// ErrDimensionMismatch indicates a vector whose length differs from the
	// collection's configured size.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrMissingKey indicates an empty metadata key.
	ErrMissingKey = errors.New("missing required key")

	// ErrUnsupportedInput indicates an input of a type the operation cannot handle.
	ErrUnsupportedInput = errors.New("unsupported input")
)

var (
	// ErrConfiguration indicates missing or inconsistent configuration.
	// Configuration errors are fatal and never retried.
	ErrConfiguration = errors.New("configuration error")
)
