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


package storage

import (
	"encoding/json"
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"

	"github.com/poiesic/vidsearch/core"
)

// MarshalPoint serializes a Point to bytes. The payload is embedded as JSON,
// so it only round-trips JSON types: UnmarshalPoint returns every number as
// float64, lists as []any and objects as map[string]any.
func MarshalPoint(point core.Point) ([]byte, error) {
	payload, err := json.Marshal(point.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: point %s payload: %w", ErrSerializationFailed, point.ID, err)
	}
	rec := pointRecord{id: point.ID, vector: point.Vector, payload: string(payload)}
	buf := make([]byte, pointMUS.Size(rec))
	pointMUS.Marshal(rec, buf)
	return buf, nil
}

// UnmarshalPoint deserializes a Point from bytes. Payload values come back
// with encoding/json's default types (numbers are float64).
func UnmarshalPoint(data []byte) (core.Point, error) {
	rec, _, err := pointMUS.Unmarshal(data)
	if err != nil {
		return core.Point{}, fmt.Errorf("%w: point: %w", ErrSerializationFailed, err)
	}
	point := core.Point{ID: rec.id, Vector: rec.vector}
	if err := json.Unmarshal([]byte(rec.payload), &point.Payload); err != nil {
		return core.Point{}, fmt.Errorf("%w: point %s payload: %w", ErrSerializationFailed, rec.id, err)
	}
	return point, nil
}

// MarshalCollection serializes a Collection descriptor to bytes.
func MarshalCollection(collection core.Collection) []byte {
	buf := make([]byte, collectionMUS.Size(collection))
	collectionMUS.Marshal(collection, buf)
	return buf
}

// UnmarshalCollection deserializes a Collection descriptor from bytes.
func UnmarshalCollection(data []byte) (core.Collection, error) {
	collection, _, err := collectionMUS.Unmarshal(data)
	if err != nil {
		return core.Collection{}, fmt.Errorf("%w: collection: %w", ErrSerializationFailed, err)
	}
	return collection, nil
}

// pointRecord is the stored form of a core.Point.
type pointRecord struct {
	id      string
	vector  core.Vector
	payload string
}

var (
	pointMUS      = pointSer{}
	vectorMUS     = vectorSer{}
	collectionMUS = collectionSer{}
)

type pointSer struct{}

func (pointSer) Marshal(r pointRecord, bs []byte) (n int) {
	n = ord.String.Marshal(r.id, bs)
	n += vectorMUS.Marshal(r.vector, bs[n:])
	return n + ord.String.Marshal(r.payload, bs[n:])
}

func (pointSer) Unmarshal(bs []byte) (r pointRecord, n int, err error) {
	r.id, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	r.vector, n1, err = vectorMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.payload, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (pointSer) Size(r pointRecord) (size int) {
	return ord.String.Size(r.id) + vectorMUS.Size(r.vector) + ord.String.Size(r.payload)
}

// vectorSer writes a length prefix followed by fixed-width float32 values.
type vectorSer struct{}

func (vectorSer) Marshal(v core.Vector, bs []byte) (n int) {
	n = varint.PositiveInt.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func (vectorSer) Unmarshal(bs []byte) (v core.Vector, n int, err error) {
	length, n, err := varint.PositiveInt.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 || length*4 > len(bs)-n {
		return nil, n, ErrTruncatedData
	}
	v = make(core.Vector, length)
	for i := range v {
		var n1 int
		v[i], n1, err = raw.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
	}
	return v, n, nil
}

func (vectorSer) Size(v core.Vector) int {
	size := varint.PositiveInt.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}

type collectionSer struct{}

func (collectionSer) Marshal(c core.Collection, bs []byte) (n int) {
	n = ord.String.Marshal(c.Name, bs)
	n += varint.PositiveInt.Marshal(c.VectorSize, bs[n:])
	return n + ord.String.Marshal(string(c.Distance), bs[n:])
}

func (collectionSer) Unmarshal(bs []byte) (c core.Collection, n int, err error) {
	c.Name, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	c.VectorSize, n1, err = varint.PositiveInt.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var distance string
	distance, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	c.Distance = core.Distance(distance)
	return
}

func (collectionSer) Size(c core.Collection) int {
	return ord.String.Size(c.Name) + varint.PositiveInt.Size(c.VectorSize) + ord.String.Size(string(c.Distance))
}
