// Package config loads ripecheck's JSON configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ripecheck/internal/learn"
	"ripecheck/internal/logger"
	"ripecheck/internal/ripeness"
)

const (
	appDirName = "ripecheck"
	configFile = "config.json"
)

// Decoder names.
const (
	DecoderGo     = "go"
	DecoderOpenCV = "opencv"
)

// Config is the full runtime configuration.
type Config struct {
	PreviewWidth  int      `json:"preview_width"`
	Bins          int      `json:"bins"`
	Decoder       string   `json:"decoder"`
	DominantColor bool     `json:"dominant_color"`
	LogLevel      string   `json:"log_level"`
	Training      Training `json:"training"`
	Server        Server   `json:"server"`
}

// Training mirrors learn.Options.
type Training struct {
	Hidden       int     `json:"hidden"`
	Epochs       int     `json:"epochs"`
	BatchSize    int     `json:"batch_size"`
	LearningRate float64 `json:"learning_rate"`
	MinSamples   int     `json:"min_samples"`
	MinPerClass  int     `json:"min_per_class"`
	Seed         int64   `json:"seed"`
}

// Server configures the HTTP front end.
type Server struct {
	Addr           string   `json:"addr"`
	MaxUploadBytes int64    `json:"max_upload_bytes"`
	MaxSessions    int      `json:"max_sessions"`
	TrainTimeout   Duration `json:"train_timeout"`
	// IdleTimeout frees sessions not touched for this long. Zero keeps
	// them until they are deleted.
	IdleTimeout Duration `json:"idle_timeout"`
}

// Duration is a time.Duration that reads and writes as a string like "30s".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Default returns the stock configuration.
func Default() Config {
	opts := learn.DefaultOptions()
	return Config{
		PreviewWidth:  320,
		Bins:          ripeness.DefaultBins,
		Decoder:       DecoderGo,
		DominantColor: true,
		LogLevel:      "info",
		Training: Training{
			Hidden:       opts.Hidden,
			Epochs:       opts.Epochs,
			BatchSize:    opts.BatchSize,
			LearningRate: opts.LearningRate,
			MinSamples:   opts.MinSamples,
			MinPerClass:  opts.MinPerClass,
		},
		Server: Server{
			Addr:           ":8080",
			MaxUploadBytes: 10 << 20,
			MaxSessions:    256,
			TrainTimeout:   Duration(time.Minute),
			IdleTimeout:    Duration(30 * time.Minute),
		},
	}
}

// DefaultPath returns ~/.config/ripecheck/config.json (or the platform
// equivalent).
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine config directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, appDirName, configFile), nil
}

// Load reads the config at path over the defaults. An empty path means
// DefaultPath. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating the directory.
func (c Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.PreviewWidth <= 0 {
		errs = append(errs, fmt.Errorf("preview_width must be positive, got %d", c.PreviewWidth))
	}
	if c.Bins <= 0 || c.Bins > 256 {
		errs = append(errs, fmt.Errorf("bins must be in 1..256, got %d", c.Bins))
	}
	if c.Decoder != DecoderGo && c.Decoder != DecoderOpenCV {
		errs = append(errs, fmt.Errorf("decoder must be %q or %q, got %q", DecoderGo, DecoderOpenCV, c.Decoder))
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	t := c.Training
	if t.Hidden <= 0 || t.Epochs <= 0 || t.BatchSize <= 0 {
		errs = append(errs, errors.New("training hidden, epochs and batch_size must be positive"))
	}
	if t.LearningRate <= 0 {
		errs = append(errs, fmt.Errorf("training learning_rate must be positive, got %g", t.LearningRate))
	}
	if t.MinSamples < 1 || t.MinPerClass < 0 {
		errs = append(errs, errors.New("training min_samples must be at least 1 and min_per_class non-negative"))
	}
	if c.Server.MaxUploadBytes <= 0 || c.Server.MaxSessions <= 0 {
		errs = append(errs, errors.New("server max_upload_bytes and max_sessions must be positive"))
	}
	if c.Server.TrainTimeout < 0 || c.Server.IdleTimeout < 0 {
		errs = append(errs, errors.New("server train_timeout and idle_timeout must not be negative"))
	}
	return errors.Join(errs...)
}

// LearnOptions converts the training section.
func (c Config) LearnOptions() learn.Options {
	return learn.Options{
		Hidden:       c.Training.Hidden,
		Epochs:       c.Training.Epochs,
		BatchSize:    c.Training.BatchSize,
		LearningRate: c.Training.LearningRate,
		MinSamples:   c.Training.MinSamples,
		MinPerClass:  c.Training.MinPerClass,
		Seed:         c.Training.Seed,
	}
}

// Analyzer returns a ripeness analyzer for this config.
func (c Config) Analyzer() *ripeness.Analyzer {
	return &ripeness.Analyzer{Bins: c.Bins, DominantColor: c.DominantColor}
}
