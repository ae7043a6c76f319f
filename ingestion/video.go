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


package ingestion

import (
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// checksumSize is the BLAKE2b digest length in bytes.
const checksumSize = 32

var videoExtensions = []string{".mov", ".mp4"}

// IsVideo reports whether path has a supported video extension.
// The match is case-insensitive.
func IsVideo(path string) bool {
	return slices.Contains(videoExtensions, strings.ToLower(filepath.Ext(path)))
}

// FindVideos walks root and returns every video file below it in lexical
// order. A root that is itself a video file is returned alone.
func FindVideos(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if !IsVideo(root) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedVideo, root)
		}
		return []string{root}, nil
	}

	var videos []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsVideo(path) {
			videos = append(videos, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return videos, nil
}

// Checksum returns the hex BLAKE2b-256 digest of the file at path.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h, err := blake2b.New(checksumSize, nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("checksum %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Title is the file name of path without its extension.
func Title(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// sourceURL returns path relative to base with forward slashes.
// When no relative path exists the absolute path is used.
func sourceURL(base, path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil {
		rel = abs
	}
	return filepath.ToSlash(rel)
}
