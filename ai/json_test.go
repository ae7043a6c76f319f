package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `  ["a", "b"] `, `["a", "b"]`},
		{"json fence", "Here you go:\n```json\n[\"a\"]\n```", `["a"]`},
		{"plain fence", "```\n{\"k\": 1}\n```", `{"k": 1}`},
		{"last fence wins", "```json\n[\"first\"]\n```\nrevised:\n```json\n[\"second\"]\n```", `["second"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.in))
		})
	}
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"valid unchanged", `["a", "b"]`, `["a", "b"]`},
		{"trailing comma in array", `["a", "b",]`, `["a", "b"]`},
		{"trailing comma in object", "{\"a\": 1,\n}", "{\"a\": 1\n}"},
		{"missing key quote", `{type": "x"}`, `{"type": "x"}`},
		{"missing key quote after comma", `{"a": 1, name": "x"}`, `{"a": 1, "name": "x"}`},
		{"comma inside string kept", `["a,]"]`, `["a,]"]`},
		{"smart quotes", `[“a”]`, `["a"]`},
		{"bare literal in array", `[1, true]`, `[1, true]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RepairJSON(tt.in))
		})
	}
}

func TestParseJSON(t *testing.T) {
	t.Run("fenced list", func(t *testing.T) {
		var got []string
		err := ParseJSON("```json\n[\"cat\", \"sofa\"]\n```", &got)
		require.NoError(t, err)
		assert.Equal(t, []string{"cat", "sofa"}, got)
	})

	t.Run("repaired list", func(t *testing.T) {
		var got []string
		err := ParseJSON(`["cat", "sofa",]`, &got)
		require.NoError(t, err)
		assert.Equal(t, []string{"cat", "sofa"}, got)
	})

	t.Run("not json", func(t *testing.T) {
		var got []string
		err := ParseJSON("I cannot see an image.", &got)
		assert.Error(t, err)
	})
}
