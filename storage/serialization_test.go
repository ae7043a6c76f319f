package storage

import (
	"testing"

	"github.com/poiesic/vidsearch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalPoint(t *testing.T) {
	tests := []struct {
		name  string
		point core.Point
	}{
		{
			name: "full point",
			point: core.Point{
				ID:     core.PointIDFromContent("abc123"),
				Vector: core.Vector{0.1, -0.2, 0.3},
				Payload: map[string]any{
					"text":       "a cat on a sofa",
					"title":      "cat",
					"source_url": "data/videos/cat.mp4",
					"checksum":   "abc123",
				},
			},
		},
		{
			name:  "empty vector and payload",
			point: core.Point{ID: "id", Vector: core.Vector{}, Payload: map[string]any{}},
		},
		{
			name: "unicode text",
			point: core.Point{
				ID:      "id",
				Vector:  core.Vector{1},
				Payload: map[string]any{"text": "有理数的概念"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := MarshalPoint(tt.point)
			require.NoError(t, err)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalPoint(data)
			require.NoError(t, err)
			assert.Equal(t, tt.point, decoded)
		})
	}
}

func TestMarshalPoint_NumericPayloadDecodesAsJSON(t *testing.T) {
	payload := map[string]any{
		"n":        3,
		"duration": int64(95),
		"tags":     []string{"cat"},
		"extra":    map[string]int{"views": 2},
	}
	data, err := MarshalPoint(core.Point{ID: "id", Vector: core.Vector{1}, Payload: payload})
	require.NoError(t, err)

	decoded, err := UnmarshalPoint(data)
	require.NoError(t, err)
	assert.Equal(t, float64(3), decoded.Payload["n"])
	assert.Equal(t, float64(95), decoded.Payload["duration"])
	assert.Equal(t, []any{"cat"}, decoded.Payload["tags"])
	assert.Equal(t, map[string]any{"views": float64(2)}, decoded.Payload["extra"])
}

func TestMarshalPoint_UnencodablePayload(t *testing.T) {
	_, err := MarshalPoint(core.Point{ID: "id", Payload: map[string]any{"ch": make(chan int)}})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestUnmarshalPoint_Invalid(t *testing.T) {
	valid, err := MarshalPoint(core.Point{ID: "id", Vector: core.Vector{1, 2, 3}, Payload: map[string]any{"text": "x"}})
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"truncated", valid[:len(valid)/2]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalPoint(tt.data)
			assert.ErrorIs(t, err, ErrSerializationFailed)
		})
	}
}

func TestMarshalUnmarshalCollection(t *testing.T) {
	c := core.Collection{Name: "videos", VectorSize: 1536, Distance: core.DistanceCosine}

	data := MarshalCollection(c)
	decoded, err := UnmarshalCollection(data)
	require.NoError(t, err)
	assert.Equal(t, c, decoded)

	_, err = UnmarshalCollection(nil)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
