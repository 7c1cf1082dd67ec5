package ripeness

import "image"

// DefaultBins is the number of histogram bins per channel.
const DefaultBins = 16

// FeatureLength returns the feature vector length for the given bin count.
func FeatureLength(bins int) int {
	return 3 * normalizeBins(bins)
}

// Features builds the normalized RGB histogram of img: bins entries for red,
// then green, then blue, each count divided by the total pixel count. Each
// channel block sums to 1 for a non-empty image. An empty image yields an
// all-zero vector of the same length.
func Features(img *image.NRGBA, bins int) []float64 {
	bins = normalizeBins(bins)
	out := make([]float64, 3*bins)
	if img == nil {
		return out
	}

	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return out
	}

	red := out[:bins]
	green := out[bins : 2*bins]
	blue := out[2*bins:]
	width := 256.0 / float64(bins)

	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for i := 0; i+3 < len(row); i += 4 {
			red[binOf(row[i], width, bins)]++
			green[binOf(row[i+1], width, bins)]++
			blue[binOf(row[i+2], width, bins)]++
		}
	}

	n := float64(total)
	for i := range out {
		out[i] /= n
	}
	return out
}

func binOf(c uint8, width float64, bins int) int {
	return min(bins-1, int(float64(c)/width))
}

func normalizeBins(bins int) int {
	switch {
	case bins <= 0:
		return DefaultBins
	case bins > 256:
		return 256
	}
	return bins
}
