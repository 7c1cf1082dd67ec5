// Package ripeness extracts color statistics and histogram features from
// fruit images and classifies ripeness with fixed hue/value rules.
package ripeness

import (
	"context"
	"image"

	"ripecheck/pkg/colorutil"
)

// Brightness window for the statistics scan. Pixels at or below MinValue are
// treated as shadow, pixels at or above MaxValue as specular highlight.
const (
	MinValue = 0.15
	MaxValue = 0.98
)

// rowsPerBand is how many rows ComputeStatsContext scans between
// cancellation checks.
const rowsPerBand = 32

// Stats holds mean hue and value over the pixels that passed the
// brightness filter.
type Stats struct {
	MeanHue     float64 `json:"mean_hue"`
	MeanValue   float64 `json:"mean_value"`
	SampleCount int     `json:"sample_count"`
}

// ComputeStats scans every pixel of img and returns mean hue (degrees) and
// mean value over the pixels with MinValue < V < MaxValue. When no pixel
// qualifies both means are zero.
func ComputeStats(img *image.NRGBA) Stats {
	stats, _ := ComputeStatsContext(context.Background(), img)
	return stats
}

// ComputeStatsContext is ComputeStats scanned in row bands, checking ctx
// between bands. On cancellation the partial result is discarded.
func ComputeStatsContext(ctx context.Context, img *image.NRGBA) (Stats, error) {
	var acc statsAccumulator
	if img == nil {
		return Stats{}, nil
	}

	b := img.Bounds()
	for y0 := b.Min.Y; y0 < b.Max.Y; y0 += rowsPerBand {
		if err := ctx.Err(); err != nil {
			return Stats{}, err
		}
		y1 := min(y0+rowsPerBand, b.Max.Y)
		for y := y0; y < y1; y++ {
			row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
			for i := 0; i+3 < len(row); i += 4 {
				acc.add(row[i], row[i+1], row[i+2])
			}
		}
	}

	return acc.stats(), nil
}

type statsAccumulator struct {
	sumH, sumV float64
	n          int
}

func (a *statsAccumulator) add(r, g, b uint8) {
	h, _, v := colorutil.RGBToHSV(r, g, b)
	if v > MinValue && v < MaxValue {
		a.sumH += h
		a.sumV += v
		a.n++
	}
}

func (a *statsAccumulator) stats() Stats {
	if a.n == 0 {
		return Stats{}
	}
	return Stats{
		MeanHue:     a.sumH / float64(a.n),
		MeanValue:   a.sumV / float64(a.n),
		SampleCount: a.n,
	}
}
