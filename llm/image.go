package llm

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
)

const visionJPEGQuality = 80

// PrepareImage downscales a base64 screenshot to at most maxWidth pixels
// wide, keeping the aspect ratio, and returns it as base64 JPEG. Images that
// already fit are returned unchanged.
func PrepareImage(b64 string, maxWidth int) (string, error) {
	if b64 == "" || maxWidth <= 0 {
		return b64, nil
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("decode screenshot: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	if img.Bounds().Dx() <= maxWidth {
		return b64, nil
	}

	resized := resize.Resize(uint(maxWidth), 0, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: visionJPEGQuality}); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
