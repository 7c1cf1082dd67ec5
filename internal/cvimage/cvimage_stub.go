//go:build !opencv
// +build !opencv

package cvimage

import (
	"errors"
	"image"
	"io"
)

// Available reports whether OpenCV support is compiled in.
const Available = false

// ErrUnavailable is returned by the stubs in builds without OpenCV.
var ErrUnavailable = errors.New("OpenCV support not enabled: rebuild with -tags=opencv")

// LoadPreview is a stub; build with -tags=opencv to enable it.
func LoadPreview(path string, width int) (*image.NRGBA, error) {
	return nil, ErrUnavailable
}

// DecodePreview is a stub; build with -tags=opencv to enable it.
func DecodePreview(r io.Reader, width int) (*image.NRGBA, error) {
	return nil, ErrUnavailable
}
