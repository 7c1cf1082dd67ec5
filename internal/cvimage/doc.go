// Package cvimage decodes and scales previews through OpenCV. It is the
// alternative to internal/image for formats or sizes the pure-Go decoders
// handle poorly.
//
// OpenCV needs cgo, so the real decoder is only built with -tags=opencv.
// Other builds get stubs that return ErrUnavailable.
package cvimage
