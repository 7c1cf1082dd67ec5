package cmd

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ripecheck/internal/config"
	"ripecheck/internal/cvimage"
	rimage "ripecheck/internal/image"
	"ripecheck/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "ripecheck",
	Short: "Banana ripeness checker",
	Long: "ripecheck judges banana ripeness from a photo with a color heuristic, " +
		"and trains a small classifier on images you label yourself.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
}

var errNoOpenCV = errors.New("built without OpenCV support, rebuild with -tags=opencv")

// cfg is the configuration resolved by the root command's pre-run hook.
var cfg = config.Default()

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default $XDG_CONFIG_HOME/ripecheck/config.json)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error, silent")
	rootCmd.PersistentFlags().String("decoder", "", "Image decoder: go or opencv")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(quizCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file, applies flag overrides and initializes
// the logger.
func loadConfig(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	c, err := config.Load(path)
	if err != nil {
		return err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		c.LogLevel = lvl
	}
	if dec, _ := cmd.Flags().GetString("decoder"); dec != "" {
		c.Decoder = dec
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Decoder == config.DecoderOpenCV && !cvimage.Available {
		return fmt.Errorf("decoder %q: %w", c.Decoder, errNoOpenCV)
	}

	level, err := logger.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	logger.Init(level, os.Stderr)
	cfg = c
	return nil
}

// previewLoader returns the path loader for the configured decoder.
func previewLoader() func(path string, width int) (*image.NRGBA, error) {
	if cfg.Decoder == config.DecoderOpenCV {
		return cvimage.LoadPreview
	}
	return rimage.LoadPreview
}

// previewDecoder returns the stream decoder for the configured decoder.
func previewDecoder() func(r io.Reader, width int) (*image.NRGBA, error) {
	if cfg.Decoder == config.DecoderOpenCV {
		return cvimage.DecodePreview
	}
	return rimage.DecodePreview
}

func loadPreview(path string) (*image.NRGBA, error) {
	img, err := previewLoader()(path, cfg.PreviewWidth)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}
