package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ripecheck/internal/learn"
)

var trainCmd = &cobra.Command{
	Use:   "train --unripe IMG... --ripe IMG... --overripe IMG... --predict IMG",
	Short: "Train the classifier on labeled images and predict another",
	Long: "train labels every image given for --unripe, --ripe and --overripe, " +
		"trains a fresh model on them, and prints the prediction for --predict. " +
		"Nothing is saved: the samples and model last only for this run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, _ := cmd.Flags().GetString("predict")
		if target == "" {
			return fmt.Errorf("--predict is required")
		}

		analyzer := cfg.Analyzer()
		analyzer.DominantColor = false
		session := learn.NewSession("cli", cfg.LearnOptions())
		out := cmd.OutOrStdout()

		for _, class := range learn.Classes() {
			paths, _ := cmd.Flags().GetStringSlice(class.String())
			for _, path := range paths {
				img, err := loadPreview(path)
				if err != nil {
					return err
				}
				rep, err := analyzer.Analyze(cmd.Context(), img)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if _, err := session.AddSample(rep.Features, class); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}
		}
		fmt.Fprintln(out, session.Status())

		img, err := loadPreview(target)
		if err != nil {
			return err
		}
		rep, err := analyzer.Analyze(cmd.Context(), img)
		if err != nil {
			return fmt.Errorf("%s: %w", target, err)
		}

		fmt.Fprintln(out, learn.StatusTraining)
		pred, err := session.Train(cmd.Context(), rep.Features)
		if err != nil {
			fmt.Fprintln(out, session.Status())
			return err
		}
		fmt.Fprintln(out, session.Status())
		fmt.Fprintf(out, "%s: %s (heuristic: %s)\n", target, pred, rep.Label)
		return nil
	},
}

func init() {
	for _, class := range learn.Classes() {
		trainCmd.Flags().StringSlice(class.String(), nil, fmt.Sprintf("Images labeled %s (repeatable)", class))
	}
	trainCmd.Flags().String("predict", "", "Image to classify after training")
}
