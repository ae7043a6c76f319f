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


package ai

import (
	"encoding/json"
	"regexp"
	"strings"
)

// fencePattern matches ``` and ```json fenced blocks.
var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ExtractJSON returns the body of the last fenced code block in a model
// response, or the whole trimmed response when there is none.
func ExtractJSON(text string) string {
	matches := fencePattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(matches[len(matches)-1][1])
}

// ParseJSON extracts JSON from a model response and decodes it into v.
// When the raw text does not decode, a repaired copy is tried before
// giving up; the error returned is the one from the raw attempt.
func ParseJSON(text string, v any) error {
	raw := ExtractJSON(text)
	err := json.Unmarshal([]byte(raw), v)
	if err == nil {
		return nil
	}
	if repaired := RepairJSON(raw); repaired != raw {
		if json.Unmarshal([]byte(repaired), v) == nil {
			return nil
		}
	}
	return err
}

// RepairJSON attempts to fix common JSON formatting issues from LLM responses:
// typographic quotes, missing opening quotes before object keys and trailing
// commas before a closing bracket or brace.
func RepairJSON(s string) string {
	s = strings.NewReplacer("“", `"`, "”", `"`).Replace(s)

	result := []rune(s)
	fixed := make([]rune, 0, len(result)+16)
	inString := false

	i := 0
	for i < len(result) {
		ch := result[i]

		if inString {
			fixed = append(fixed, ch)
			if ch == '\\' && i+1 < len(result) {
				fixed = append(fixed, result[i+1])
				i += 2
				continue
			}
			if ch == '"' {
				inString = false
			}
			i++
			continue
		}

		switch ch {
		case '"':
			inString = true
			fixed = append(fixed, ch)
			i++
		case ',':
			// Drop the comma if only whitespace separates it from a closer.
			j := i + 1
			for j < len(result) && isSpace(result[j]) {
				j++
			}
			if j < len(result) && (result[j] == ']' || result[j] == '}') {
				i++
				continue
			}
			fixed = append(fixed, ch)
			i++
			i = repairKey(result, i, &fixed)
		case '{':
			fixed = append(fixed, ch)
			i++
			i = repairKey(result, i, &fixed)
		default:
			fixed = append(fixed, ch)
			i++
		}
	}

	return string(fixed)
}

// repairKey copies whitespace starting at i and, if an unquoted key
// followed by `":` comes next, emits it with its opening quote restored.
// It returns the index of the first rune not consumed.
func repairKey(result []rune, i int, fixed *[]rune) int {
	for i < len(result) && isSpace(result[i]) {
		*fixed = append(*fixed, result[i])
		i++
	}
	if i >= len(result) || !isLetter(result[i]) {
		return i
	}

	keyStart := i
	for i < len(result) && (isLetter(result[i]) || result[i] == '_') {
		i++
	}
	if i+1 < len(result) && result[i] == '"' && result[i+1] == ':' {
		*fixed = append(*fixed, '"')
		*fixed = append(*fixed, result[keyStart:i]...)
		*fixed = append(*fixed, '"')
		return i + 1
	}
	// not a key; rewind so the caller copies it unchanged
	return keyStart
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}

// isLetter returns true if the rune is an ASCII letter.
func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
