// Package histplot renders a histogram feature vector as a PNG chart.
package histplot

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var channels = []struct {
	name  string
	color color.RGBA
}{
	{"red", color.RGBA{R: 0xD3, G: 0x2F, B: 0x2F, A: 0xFF}},
	{"green", color.RGBA{R: 0x38, G: 0x8E, B: 0x3C, A: 0xFF}},
	{"blue", color.RGBA{R: 0x19, G: 0x76, B: 0xD2, A: 0xFF}},
}

// New builds a plot of features laid out as consecutive red, green and blue
// blocks of equal length.
func New(title string, features []float64) (*plot.Plot, error) {
	if len(features) == 0 || len(features)%len(channels) != 0 {
		return nil, fmt.Errorf("feature length %d is not a multiple of %d", len(features), len(channels))
	}
	bins := len(features) / len(channels)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "bin"
	p.Y.Label.Text = "fraction of pixels"
	p.Y.Min = 0

	for c, ch := range channels {
		pts := make(plotter.XYs, bins)
		for i := range pts {
			pts[i] = plotter.XY{X: float64(i), Y: features[c*bins+i]}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("%s line: %w", ch.name, err)
		}
		line.Color = ch.color
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(ch.name, line)
	}
	p.Legend.Top = true

	return p, nil
}

// Save renders features to path. The format follows the file extension.
func Save(path, title string, features []float64) error {
	p, err := New(title, features)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create plot dir: %w", err)
	}
	if err := p.Save(6*vg.Inch, 3*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}
