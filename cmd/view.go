//go:build gui
// +build gui

package cmd

import (
	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"ripecheck/internal/logger"
	"ripecheck/ui/mainwindow"
)

var viewCmd = &cobra.Command{
	Use:   "view [IMAGE]",
	Short: "Open the desktop window",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fyneApp := app.NewWithID("io.ripecheck.viewer")
		fyneApp.Settings().SetTheme(&mainwindow.RipecheckTheme{})

		win := mainwindow.New(fyneApp, cfg, previewLoader())
		if len(args) == 1 {
			if err := win.ShowImage(args[0]); err != nil {
				logger.Warn("ui", "failed to open %s: %v", args[0], err)
			}
		}
		win.ShowAndRun()
		return nil
	},
}
