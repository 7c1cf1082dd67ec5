//go:build opencv
// +build opencv

package cvimage

import (
	"fmt"
	"image"
	"io"

	"gocv.io/x/gocv"

	rimage "ripecheck/internal/image"
)

// Available reports whether OpenCV support is compiled in.
const Available = true

// LoadPreview reads path with OpenCV and scales it to width pixels wide.
func LoadPreview(path string, width int) (*image.NRGBA, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("failed to read image: %s", path)
	}
	return preview(mat, width)
}

// DecodePreview decodes an encoded image from r with OpenCV and scales it to
// width pixels wide.
func DecodePreview(r io.Reader, width int) (*image.NRGBA, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	mat, err := gocv.IMDecode(buf, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("failed to decode image: %w", rimage.ErrEmptyImage)
	}
	return preview(mat, width)
}

func preview(mat gocv.Mat, width int) (*image.NRGBA, error) {
	w, h := rimage.PreviewSize(mat.Cols(), mat.Rows(), width)
	if w == 0 || h == 0 {
		return nil, rimage.ErrEmptyImage
	}

	scaled := gocv.NewMat()
	defer scaled.Close()
	gocv.Resize(mat, &scaled, image.Pt(w, h), 0, 0, gocv.InterpolationLinear)

	img, err := scaled.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	return rimage.ToNRGBA(img), nil
}
