package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"time"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/kozaktomas/bundy-kiosk/internal/constants"
)

// Normalize decodes a JPEG, PNG or BMP frame, scales it down to fit within
// maxWidth x maxHeight keeping the aspect ratio, and re-encodes it as JPEG.
func Normalize(data []byte, maxWidth, maxHeight int) (Frame, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Frame{}, fmt.Errorf("failed to decode frame: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > constants.MaxFramePixels {
		return Frame{}, fmt.Errorf("%w: %dx%d", ErrFrameTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Frame{}, fmt.Errorf("failed to decode frame: %w", err)
	}

	bounds := img.Bounds()
	width, height := fitWithin(bounds.Dx(), bounds.Dy(), maxWidth, maxHeight)

	var out image.Image = img
	if width != bounds.Dx() || height != bounds.Dy() {
		resized := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		out = resized
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: constants.JPEGQuality}); err != nil {
		return Frame{}, fmt.Errorf("failed to encode frame: %w", err)
	}

	return Frame{
		Data:       buf.Bytes(),
		Width:      width,
		Height:     height,
		ReceivedAt: time.Now(),
	}, nil
}

// fitWithin returns the largest size with the aspect ratio of w x h that
// fits within maxW x maxH. Images that already fit are left alone.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	scale := min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	newW := max(1, int(float64(w)*scale))
	newH := max(1, int(float64(h)*scale))
	return newW, newH
}
