package openai

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/poiesic/vidsearch/ai"
	"github.com/poiesic/vidsearch/core"
)

// imageDataURL encodes an image as a base64 data URL. The MIME type is
// sniffed from the content; files whose content is not recognised as an
// image fall back to their extension.
func imageDataURL(img ai.Image) (string, error) {
	data := img.Data
	if len(data) == 0 {
		if img.Path == "" {
			return "", fmt.Errorf("%w: %w: image has neither path nor data", core.ErrValidation, core.ErrUnsupportedInput)
		}
		var err error
		data, err = os.ReadFile(img.Path)
		if err != nil {
			return "", fmt.Errorf("read image %s: %w", img.Path, err)
		}
	}

	mime := imageMIME(data, img.Path)
	if mime == "" {
		return "", fmt.Errorf("%w: %w: not an image", core.ErrValidation, core.ErrUnsupportedInput)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func imageMIME(data []byte, path string) string {
	detected := mimetype.Detect(data)
	if strings.HasPrefix(detected.String(), "image/") {
		return detected.String()
	}
	if path == "" {
		return ""
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "":
		return ""
	case "jpg":
		return "image/jpeg"
	default:
		return "image/" + ext
	}
}
