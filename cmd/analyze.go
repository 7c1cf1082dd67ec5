package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ripecheck/internal/histplot"
	"ripecheck/internal/ripeness"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze IMAGE...",
	Short: "Judge ripeness of one or more images with the color heuristic",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		plotDir, _ := cmd.Flags().GetString("plot")
		analyzer := cfg.Analyzer()
		out := cmd.OutOrStdout()

		reports := make([]analyzeResult, 0, len(args))
		for _, path := range args {
			img, err := loadPreview(path)
			if err != nil {
				return err
			}
			rep, err := analyzer.Analyze(cmd.Context(), img)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if plotDir != "" {
				base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
				if err := histplot.Save(filepath.Join(plotDir, base+"_hist.png"), base, rep.Features); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}
			if asJSON {
				reports = append(reports, analyzeResult{Path: path, Report: rep})
				continue
			}
			fmt.Fprintf(out, "%s\n  mean hue:   %s\n  mean value: %s\n  verdict:    %s\n",
				path, rep.HueText(), rep.ValueText(), rep.Label)
			if rep.Dominant != "" {
				fmt.Fprintf(out, "  dominant:   #%s\n", rep.Dominant)
			}
		}

		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(reports)
		}
		return nil
	},
}

type analyzeResult struct {
	Path string `json:"path"`
	ripeness.Report
}

func init() {
	analyzeCmd.Flags().Bool("json", false, "Print reports as JSON")
	analyzeCmd.Flags().String("plot", "", "Write a histogram chart per image into this directory")
}
