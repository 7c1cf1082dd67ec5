// Package image provides image loading and preview scaling.
package image

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultPreviewWidth is the width analysis previews are scaled to.
const DefaultPreviewWidth = 320

// ErrEmptyImage is returned when a decoded image has no pixels.
var ErrEmptyImage = errors.New("image has no pixels")

// Load decodes the image at path. The format name reported by the decoder is
// returned alongside the image.
func Load(path string) (image.Image, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	return Decode(file)
}

// Decode decodes an image from r using any registered format.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// PreviewSize returns the preview dimensions for a source of w×h pixels
// scaled to width, preserving aspect ratio.
func PreviewSize(w, h, width int) (int, int) {
	if w <= 0 || h <= 0 || width <= 0 {
		return 0, 0
	}
	ph := int(math.Round(float64(h) / float64(w) * float64(width)))
	return width, ph
}

// Preview scales src to the given width with bilinear filtering and returns a
// non-premultiplied RGBA buffer, the same layout a 2D canvas hands back from
// getImageData.
func Preview(src image.Image, width int) (*image.NRGBA, error) {
	b := src.Bounds()
	pw, ph := PreviewSize(b.Dx(), b.Dy(), width)
	if pw == 0 || ph == 0 {
		return nil, ErrEmptyImage
	}

	dst := image.NewNRGBA(image.Rect(0, 0, pw, ph))
	draw.ApproxBiLinear.Scale(dst, dst.Rect, src, b, draw.Src, nil)
	return dst, nil
}

// LoadPreview loads the image at path and scales it to width.
func LoadPreview(path string, width int) (*image.NRGBA, error) {
	img, _, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Preview(img, width)
}

// DecodePreview decodes an image from r and scales it to width.
func DecodePreview(r io.Reader, width int) (*image.NRGBA, error) {
	img, _, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return Preview(img, width)
}

// ToNRGBA returns img as *image.NRGBA with its origin at (0, 0), copying
// only when needed.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	return dst
}
