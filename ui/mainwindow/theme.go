//go:build gui
// +build gui

package mainwindow

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"

	"ripecheck/pkg/colorutil"
)

// RipecheckTheme tints the default theme banana yellow.
type RipecheckTheme struct{}

var _ fyne.Theme = (*RipecheckTheme)(nil)

func (t *RipecheckTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary:
		return colorutil.Yellow
	case theme.ColorNameSelection:
		return color.NRGBA{R: 0xF9, G: 0xD3, B: 0x3C, A: 0x60}
	case theme.ColorNameSuccess:
		return colorutil.Green
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *RipecheckTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *RipecheckTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *RipecheckTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameText:
		return 15
	default:
		return theme.DefaultTheme().Size(name)
	}
}
