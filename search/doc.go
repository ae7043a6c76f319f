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


// Package search answers keyword and image queries against the video index.
//
// Raw index results are memoized per query string in a cache.Keyed shared
// with the rest of the process. The score threshold is applied after the
// cache lookup, so the same query asked with different thresholds hits the
// index only once.
//
// Image queries ask the chat model for a JSON list of keywords describing
// the image and then run an ordinary keyword search.
package search
