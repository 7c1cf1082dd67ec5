//go:build !gui
// +build !gui

package cmd

import (
	"errors"

	"github.com/spf13/cobra"
)

var viewCmd = &cobra.Command{
	Use:   "view [IMAGE]",
	Short: "Open the desktop window (requires -tags=gui)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return errors.New("desktop window not enabled: rebuild with -tags=gui")
	},
}
