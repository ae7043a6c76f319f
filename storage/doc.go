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


// Package storage provides the vector storage abstraction for vidsearch.
//
// A VectorStore holds named collections of points (id, vector, payload)
// and answers cosine similarity queries over them. Stores are opened from
// a directory path so that a damaged store can be discarded by removing
// that directory and opened again empty.
//
// # Constructor Return Type Pattern
//
// Public constructors return the VectorStore interface to keep callers
// decoupled from the backend:
//
//	store, err := badger.Open("/path/to/vector_data")  // returns storage.VectorStore
//
// Internal package constructors may return concrete types since they're
// only used within the implementation package.
//
// # Serialization
//
// Points and collection descriptors are encoded with hand-written codecs
// built on mus-go primitives (see serialization.go). Payloads are stored as
// JSON inside the point record, so payload values decode to their JSON
// types.
//
// # Thread Safety
//
// All store implementations must be thread-safe and support concurrent
// access from multiple goroutines.
package storage
