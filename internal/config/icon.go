package config

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"io/fs"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"
)

// IconSize is the only icon size the client accepts.
const IconSize = 64

// LoadIcon reads the server icon, resizes it to exactly 64x64 when
// needed, and returns the base64-encoded PNG bytes for the status
// response's favicon field. A missing file is not an error: the status
// response simply carries no icon.
func LoadIcon(path string) (string, error) {
	img, err := imaging.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Info().Str("path", path).Msg("no server icon found, status response will have none")
			return "", nil
		}
		return "", fmt.Errorf("opening server icon %s: %w", path, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != IconSize || bounds.Dy() != IconSize {
		log.Info().
			Str("path", path).
			Int("width", bounds.Dx()).
			Int("height", bounds.Dy()).
			Msg("resizing server icon to 64x64")
		img = imaging.Resize(img, IconSize, IconSize, imaging.CatmullRom)

		// Persist the resized icon so the next run skips this step.
		if err := imaging.Save(img, path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to save resized server icon")
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encoding server icon: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
