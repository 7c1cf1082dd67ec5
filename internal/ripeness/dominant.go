package ripeness

import (
	"errors"
	"fmt"
	"image"

	"github.com/EdlinOrg/prominentcolor"
)

// DominantColor returns the hex code (RRGGBB) of the most populous k-means
// color cluster in img.
func DominantColor(img image.Image) (string, error) {
	colors, err := prominentcolor.KmeansWithArgs(prominentcolor.ArgumentNoCropping, img)
	if err != nil {
		return "", fmt.Errorf("unable to extract dominant color: %w", err)
	}

	var best *prominentcolor.ColorItem
	for i, c := range colors {
		if best == nil || c.Cnt > best.Cnt {
			best = &colors[i]
		}
	}
	if best == nil {
		return "", errors.New("no colors found")
	}
	return best.AsString(), nil
}
