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

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"maps"

	"github.com/google/uuid"
)

// Well-known payload and metadata keys.
const (
	// PayloadTextKey holds the document text inside a point payload.
	PayloadTextKey = "text"

	// MetadataChecksumKey holds the content hash of the source media.
	MetadataChecksumKey = "checksum"
)

// Vector is an embedding vector. Its dimensionality is fixed per
// (model, dimensions) configuration.
type Vector []float32

// Document is a unit of searchable text with arbitrary metadata.
// Documents are produced by the ingestion driver and consumed by the index.
type Document struct {
	Text     string
	Metadata map[string]any
}

// Checksum returns the checksum metadata value, if present.
func (d Document) Checksum() (string, bool) {
	v, ok := d.Metadata[MetadataChecksumKey]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

// IdentityContent returns the content the document is addressed by:
// the checksum when present, otherwise the text.
func (d Document) IdentityContent() string {
	if checksum, ok := d.Checksum(); ok {
		return checksum
	}
	return d.Text
}

// PointID returns the deterministic point identity of the document.
func (d Document) PointID() string {
	return PointIDFromContent(d.IdentityContent())
}

// PointIDFromContent derives a stable UUID (v5, DNS namespace) from the hex
// MD5 digest of content. Identical content always yields the same id.
func PointIDFromContent(content string) string {
	sum := md5.Sum([]byte(content))
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(hex.EncodeToString(sum[:]))).String()
}

// Point is a stored (id, vector, payload) triple.
type Point struct {
	ID      string
	Vector  Vector
	Payload map[string]any
}

// NewPoint builds the point for a document. The payload carries the text
// under PayloadTextKey followed by every metadata entry; a metadata entry
// named "text" takes precedence.
func NewPoint(doc Document, vector Vector) Point {
	payload := make(map[string]any, len(doc.Metadata)+1)
	payload[PayloadTextKey] = doc.Text
	maps.Copy(payload, doc.Metadata)
	return Point{
		ID:      doc.PointID(),
		Vector:  vector,
		Payload: payload,
	}
}

// ScoredPoint is a point returned from a similarity search.
type ScoredPoint struct {
	Point
	Score float32
}

// Distance identifies the similarity metric of a collection.
type Distance string

const (
	// DistanceCosine ranks points by cosine similarity.
	DistanceCosine Distance = "cosine"
)

// Collection describes a named set of points with fixed dimensionality.
type Collection struct {
	Name       string
	VectorSize int
	Distance   Distance
}

// SearchResult is a ranked hit shaped for presentation.
type SearchResult struct {
	Text     string
	Metadata map[string]any
	Score    float32
}

// ResultFromPoint maps a scored point to a SearchResult: the payload text
// becomes Text and every other payload entry becomes metadata. Points read
// back from a store carry JSON-decoded payloads, so numeric metadata such
// as a video duration is float64 regardless of the type it was indexed as.
func ResultFromPoint(sp ScoredPoint) SearchResult {
	text, _ := sp.Payload[PayloadTextKey].(string)
	metadata := make(map[string]any, len(sp.Payload))
	for k, v := range sp.Payload {
		if k == PayloadTextKey {
			continue
		}
		metadata[k] = v
	}
	return SearchResult{
		Text:     text,
		Metadata: metadata,
		Score:    sp.Score,
	}
}

// FilterByScore keeps results whose score is at least threshold.
// The input slice is not modified.
func FilterByScore(results []SearchResult, threshold float32) []SearchResult {
	filtered := make([]SearchResult, 0, len(results))
	for _, r := range results {
		if r.Score >= threshold {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
