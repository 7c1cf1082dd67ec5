package ripeness

import (
	"image/color"

	"ripecheck/pkg/colorutil"
)

// Label is the heuristic classifier's verdict.
type Label string

const (
	LabelTooDark   Label = "Uncertain (too dark)"
	LabelRipe      Label = "RIPE (yellow)"
	LabelOverripe  Label = "OVERRIPE (brown)"
	LabelUnripe    Label = "UNRIPE (green)"
	LabelUncertain Label = "Uncertain"
)

// Thresholds tuned for bananas under diffuse light.
const (
	darkValue     = 0.25
	ripeHueMin    = 25.0
	ripeHueMax    = 75.0
	ripeMinValue  = 0.4
	otherMinValue = 0.35
)

// Classify maps mean hue (degrees) and mean value to a label. Rules are
// evaluated in order and the first match wins.
func Classify(meanHue, meanValue float64) Label {
	switch {
	case meanValue < darkValue:
		return LabelTooDark
	case meanHue >= ripeHueMin && meanHue <= ripeHueMax && meanValue > ripeMinValue:
		return LabelRipe
	case meanHue < ripeHueMin && meanValue > otherMinValue:
		return LabelOverripe
	case meanHue > ripeHueMax && meanValue > otherMinValue:
		return LabelUnripe
	default:
		return LabelUncertain
	}
}

func (l Label) String() string { return string(l) }

// Color returns the swatch shown next to the label.
func (l Label) Color() color.NRGBA {
	switch l {
	case LabelRipe:
		return colorutil.Yellow
	case LabelOverripe:
		return colorutil.Brown
	case LabelUnripe:
		return colorutil.Green
	default:
		return colorutil.Gray
	}
}
