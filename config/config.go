// Package config loads the TOML configuration file. The result is a plain
// value handed into the batch runner and pipeline at startup; nothing here
// is ambient or mutable after Load returns, so components stay unit-testable
// in isolation.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/scanforge/scanprep/pipeline"
)

// Paths names the input and output folders for batch runs.
type Paths struct {
	InputFolder  string `toml:"input_folder"`
	OutputFolder string `toml:"output_folder"`
}

// Pipeline carries the normalization tuning values.
type Pipeline struct {
	DPI                 float64 `toml:"dpi"`
	ContrastFactor      float64 `toml:"contrast_factor"`
	BrightnessFactor    float64 `toml:"brightness_factor"`
	BinarizeThreshold   int     `toml:"binarize_threshold"`
	SignificanceDegrees int     `toml:"significance_degrees"`
	// Detector selects the orientation engine: "osd", "tesseract" or "none".
	Detector string `toml:"detector"`
	// DetectTimeoutSeconds bounds each orientation-detection call.
	DetectTimeoutSeconds int `toml:"detect_timeout_seconds"`
}

// Extraction configures the invoice-field extraction collaborator.
type Extraction struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	// TimeoutSeconds bounds each vision-model call.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Config is the full configuration value.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Pipeline   Pipeline   `toml:"pipeline"`
	Extraction Extraction `toml:"extraction"`
}

// Default returns the stock configuration.
func Default() Config {
	p := pipeline.DefaultParams()
	return Config{
		Pipeline: Pipeline{
			DPI:                  p.DPI,
			ContrastFactor:       p.ContrastFactor,
			BrightnessFactor:     p.BrightnessFactor,
			BinarizeThreshold:    int(p.BinarizeThreshold),
			SignificanceDegrees:  p.SignificanceDegrees,
			Detector:             "osd",
			DetectTimeoutSeconds: 30,
		},
		Extraction: Extraction{
			Provider:       "googleai",
			Model:          "gemini-1.5-flash",
			TimeoutSeconds: 120,
		},
	}
}

// Load reads path and unmarshals it over the defaults, then validates.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges; zero folder paths are allowed here because
// the CLI can supply them per run.
func (c Config) Validate() error {
	p := c.Pipeline
	if p.DPI <= 0 {
		return fmt.Errorf("config: dpi must be positive, got %v", p.DPI)
	}
	if p.ContrastFactor <= 0 {
		return fmt.Errorf("config: contrast_factor must be positive, got %v", p.ContrastFactor)
	}
	if p.BrightnessFactor <= 0 {
		return fmt.Errorf("config: brightness_factor must be positive, got %v", p.BrightnessFactor)
	}
	if p.BinarizeThreshold < 0 || p.BinarizeThreshold > 255 {
		return fmt.Errorf("config: binarize_threshold must be in [0,255], got %d", p.BinarizeThreshold)
	}
	if p.SignificanceDegrees < 0 || p.SignificanceDegrees >= 180 {
		return fmt.Errorf("config: significance_degrees must be in [0,180), got %d", p.SignificanceDegrees)
	}
	switch p.Detector {
	case "osd", "tesseract", "none":
	default:
		return fmt.Errorf("config: unknown detector %q", p.Detector)
	}
	if c.Extraction.TimeoutSeconds < 0 {
		return fmt.Errorf("config: extraction timeout_seconds must not be negative, got %d",
			c.Extraction.TimeoutSeconds)
	}
	return nil
}

// Params converts the configuration into pipeline tuning values.
func (c Config) Params() pipeline.Params {
	return pipeline.Params{
		DPI:                  c.Pipeline.DPI,
		SignificanceDegrees:  c.Pipeline.SignificanceDegrees,
		ContrastFactor:       c.Pipeline.ContrastFactor,
		BrightnessFactor:     c.Pipeline.BrightnessFactor,
		BrightnessMeanCutoff: pipeline.DefaultParams().BrightnessMeanCutoff,
		BinarizeThreshold:    uint8(c.Pipeline.BinarizeThreshold),
	}
}

// DetectTimeout returns the configured orientation-detection bound.
func (c Config) DetectTimeout() time.Duration {
	return time.Duration(c.Pipeline.DetectTimeoutSeconds) * time.Second
}

// ExtractTimeout returns the configured bound for each vision-model call.
// Zero disables the bound.
func (c Config) ExtractTimeout() time.Duration {
	return time.Duration(c.Extraction.TimeoutSeconds) * time.Second
}
