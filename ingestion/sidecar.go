package ingestion

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/poiesic/vidsearch/core"
)

// Sidecar is the per-video metadata file stored as {checksum}.json.
// A present sidecar means the video was already transcribed and summarized.
type Sidecar struct {
	Text     string          `json:"text"`
	Metadata SidecarMetadata `json:"metadata"`
}

// SidecarMetadata is the metadata block of a Sidecar.
type SidecarMetadata struct {
	Title       string `json:"title"`
	Transcript  string `json:"transcript"`
	DisplayText string `json:"display_text"`
	SourceURL   string `json:"source_url"`
	Checksum    string `json:"checksum"`
}

// Document converts the sidecar into an indexable document.
func (s *Sidecar) Document() core.Document {
	return core.Document{
		Text: s.Text,
		Metadata: map[string]any{
			"title":                  s.Metadata.Title,
			"transcript":             s.Metadata.Transcript,
			"display_text":           s.Metadata.DisplayText,
			"source_url":             s.Metadata.SourceURL,
			core.MetadataChecksumKey: s.Metadata.Checksum,
		},
	}
}

func sidecarPath(dir, checksum string) string {
	return filepath.Join(dir, checksum+".json")
}

// loadSidecar reads the sidecar for checksum. A missing file is reported
// as (nil, nil).
func loadSidecar(dir, checksum string) (*Sidecar, error) {
	data, err := os.ReadFile(sidecarPath(dir, checksum))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var s Sidecar
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSidecar, checksum, err)
	}
	return &s, nil
}

// saveSidecar writes s through a temporary file and a rename, so a partial
// sidecar is never visible under its final name.
func saveSidecar(dir string, s *Sidecar) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(s); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, s.Metadata.Checksum+".*.json.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), sidecarPath(dir, s.Metadata.Checksum))
}
