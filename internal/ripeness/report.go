package ripeness

import (
	"context"
	"fmt"
	"image"

	"ripecheck/internal/logger"
)

// Report is the result of analyzing one preview image.
type Report struct {
	Stats
	Label    Label     `json:"label"`
	Features []float64 `json:"features"`
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Dominant string    `json:"dominant_color,omitempty"`
}

// HueText formats the mean hue the way the page displays it.
func (r Report) HueText() string { return fmt.Sprintf("%.1f°", r.MeanHue) }

// ValueText formats the mean value the way the page displays it.
func (r Report) ValueText() string { return fmt.Sprintf("%.2f", r.MeanValue) }

// Analyzer runs both feature paths over a preview image.
type Analyzer struct {
	Bins          int
	DominantColor bool
}

// NewAnalyzer returns an Analyzer with the default bin count.
func NewAnalyzer() *Analyzer {
	return &Analyzer{Bins: DefaultBins, DominantColor: true}
}

// Analyze computes statistics, the heuristic label and the feature vector for
// img. The dominant color is best-effort: a failure is logged and left blank.
func (a *Analyzer) Analyze(ctx context.Context, img *image.NRGBA) (Report, error) {
	stats, err := ComputeStatsContext(ctx, img)
	if err != nil {
		return Report{}, err
	}

	rep := Report{
		Stats:    stats,
		Label:    Classify(stats.MeanHue, stats.MeanValue),
		Features: Features(img, a.Bins),
	}
	if img != nil {
		rep.Width = img.Bounds().Dx()
		rep.Height = img.Bounds().Dy()
	}

	if a.DominantColor && rep.Width > 0 && rep.Height > 0 {
		hex, err := DominantColor(img)
		if err != nil {
			logger.Warn("ripeness", "dominant color: %v", err)
		} else {
			rep.Dominant = hex
		}
	}

	logger.Debug("ripeness", "analyzed %dx%d: hue=%.1f value=%.2f n=%d label=%q",
		rep.Width, rep.Height, rep.MeanHue, rep.MeanValue, rep.SampleCount, rep.Label)
	return rep, nil
}

// Analyze runs the default bins over img without dominant color extraction.
func Analyze(img *image.NRGBA) Report {
	rep, _ := (&Analyzer{Bins: DefaultBins}).Analyze(context.Background(), img)
	return rep
}
