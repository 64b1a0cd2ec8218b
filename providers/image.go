package providers

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMaxImageDim caps the longer side of an image sent to a provider.
const DefaultMaxImageDim = 1568

// passthrough lists formats every vision API accepts as-is.
var passthrough = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// Prepare returns an encoding of data that providers accept. Images within
// maxDim in a supported format pass through unchanged; anything else is
// decoded, downscaled to fit maxDim and re-encoded as PNG. maxDim <= 0 keeps
// the original size.
func Prepare(data []byte, maxDim int) ([]byte, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	fits := maxDim <= 0 || (cfg.Width <= maxDim && cfg.Height <= maxDim)
	if mt, ok := passthrough[format]; ok && fits {
		return data, mt, nil
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode %s image: %w", format, err)
	}
	if !fits {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, "", fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), "image/png", nil
}
