package recognition

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"

	"github.com/disintegration/imaging"
)

// minReceiptHeight is the pixel height below which a scan is upscaled;
// engines read small phone photos poorly.
const minReceiptHeight = 800

// prepareImage normalizes a receipt photo for recognition: decode, drop
// color, upscale small scans, and re-encode as PNG.
func prepareImage(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	gray := imaging.Grayscale(img)
	if gray.Bounds().Dy() < minReceiptHeight {
		gray = imaging.Resize(gray, 0, 1200, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}
