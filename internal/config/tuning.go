// Package config loads the tracker's tuning parameters and environment
// settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ironsheep/color-tracker-mcp/internal/detection"
	"github.com/ironsheep/color-tracker-mcp/internal/signature"
	"github.com/ironsheep/color-tracker-mcp/internal/tracking"
)

// EnvConfigPath names the environment variable holding the path of a JSON
// tuning file.
const EnvConfigPath = "TRACKER_MCP_CONFIG"

// maxFileSize caps the size of a tuning file.
const maxFileSize = 1 * 1024 * 1024

// TuningConfig holds the detection and tracking parameters.
//
// Every field is optional. Unset fields fall back to the defaults returned by
// the Get* methods, so partial files are safe.
type TuningConfig struct {
	// Detection cycle
	DetectionInterval *string  `json:"detection_interval,omitempty"` // duration string like "1s"
	MatchThreshold    *float64 `json:"match_threshold,omitempty"`
	HueWeight         *float64 `json:"hue_weight,omitempty"`

	// Signature extraction
	NoiseFloor   *float64 `json:"noise_floor,omitempty"`
	SampleStride *int     `json:"sample_stride,omitempty"`

	// Selection and replay
	MinSelectionSize *int    `json:"min_selection_size,omitempty"`
	FrameInterval    *string `json:"frame_interval,omitempty"` // duration string like "33ms"
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field set to its
// default value.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		DetectionInterval: ptrString(detection.DefaultInterval.String()),
		MatchThreshold:    ptrFloat64(signature.DefaultThreshold),
		HueWeight:         ptrFloat64(signature.DefaultHueWeight),
		NoiseFloor:        ptrFloat64(signature.DefaultNoiseFloor),
		SampleStride:      ptrInt(signature.DefaultStride),
		MinSelectionSize:  ptrInt(tracking.DefaultMinSelectionSize),
		FrameInterval:     ptrString(tracking.DefaultFrameInterval.String()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file must have a .json extension and be at most 1MB.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// FromEnv loads the file named by TRACKER_MCP_CONFIG, or returns an empty
// config when the variable is unset.
func FromEnv() (*TuningConfig, error) {
	path := os.Getenv(EnvConfigPath)
	if path == "" {
		return EmptyTuningConfig(), nil
	}
	return LoadTuningConfig(path)
}

// Validate checks that the set values are usable.
func (c *TuningConfig) Validate() error {
	if c.DetectionInterval != nil && *c.DetectionInterval != "" {
		d, err := time.ParseDuration(*c.DetectionInterval)
		if err != nil {
			return fmt.Errorf("invalid detection_interval '%s': %w", *c.DetectionInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("detection_interval must be positive, got %s", d)
		}
	}

	if c.FrameInterval != nil && *c.FrameInterval != "" {
		d, err := time.ParseDuration(*c.FrameInterval)
		if err != nil {
			return fmt.Errorf("invalid frame_interval '%s': %w", *c.FrameInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("frame_interval must be positive, got %s", d)
		}
	}

	// Zero would select the built-in default, so it is rejected rather than
	// silently ignored.
	if c.MatchThreshold != nil {
		if *c.MatchThreshold <= 0 || *c.MatchThreshold > 1 {
			return fmt.Errorf("match_threshold must be in (0, 1], got %f", *c.MatchThreshold)
		}
	}

	if c.HueWeight != nil {
		if *c.HueWeight <= 0 || *c.HueWeight > 1 {
			return fmt.Errorf("hue_weight must be in (0, 1], got %f", *c.HueWeight)
		}
	}

	if c.NoiseFloor != nil {
		if *c.NoiseFloor <= 0 || *c.NoiseFloor >= 1 {
			return fmt.Errorf("noise_floor must be in (0, 1), got %f", *c.NoiseFloor)
		}
	}

	if c.SampleStride != nil && *c.SampleStride < 1 {
		return fmt.Errorf("sample_stride must be at least 1, got %d", *c.SampleStride)
	}

	if c.MinSelectionSize != nil && *c.MinSelectionSize < 0 {
		return fmt.Errorf("min_selection_size must not be negative, got %d", *c.MinSelectionSize)
	}

	return nil
}

// GetDetectionInterval returns the minimum time between detection cycles.
func (c *TuningConfig) GetDetectionInterval() time.Duration {
	if c.DetectionInterval == nil || *c.DetectionInterval == "" {
		return detection.DefaultInterval
	}
	d, err := time.ParseDuration(*c.DetectionInterval)
	if err != nil {
		return detection.DefaultInterval
	}
	return d
}

// GetFrameInterval returns the replay loop period.
func (c *TuningConfig) GetFrameInterval() time.Duration {
	if c.FrameInterval == nil || *c.FrameInterval == "" {
		return tracking.DefaultFrameInterval
	}
	d, err := time.ParseDuration(*c.FrameInterval)
	if err != nil || d <= 0 {
		return tracking.DefaultFrameInterval
	}
	return d
}

// GetMatchThreshold returns the match_threshold value or the default.
func (c *TuningConfig) GetMatchThreshold() float64 {
	if c.MatchThreshold == nil {
		return signature.DefaultThreshold
	}
	return *c.MatchThreshold
}

// GetHueWeight returns the hue_weight value or the default.
func (c *TuningConfig) GetHueWeight() float64 {
	if c.HueWeight == nil {
		return signature.DefaultHueWeight
	}
	return *c.HueWeight
}

// GetNoiseFloor returns the noise_floor value or the default.
func (c *TuningConfig) GetNoiseFloor() float64 {
	if c.NoiseFloor == nil {
		return signature.DefaultNoiseFloor
	}
	return *c.NoiseFloor
}

// GetSampleStride returns the sample_stride value or the default.
func (c *TuningConfig) GetSampleStride() int {
	if c.SampleStride == nil {
		return signature.DefaultStride
	}
	return *c.SampleStride
}

// GetMinSelectionSize returns the min_selection_size value or the default.
func (c *TuningConfig) GetMinSelectionSize() int {
	if c.MinSelectionSize == nil {
		return tracking.DefaultMinSelectionSize
	}
	return *c.MinSelectionSize
}

// Extractor builds a signature extractor from the config.
func (c *TuningConfig) Extractor() signature.Extractor {
	return signature.Extractor{
		Stride:     c.GetSampleStride(),
		NoiseFloor: c.GetNoiseFloor(),
	}
}

// Comparator builds a signature comparator from the config.
func (c *TuningConfig) Comparator() signature.Comparator {
	return signature.Comparator{
		Threshold: c.GetMatchThreshold(),
		HueWeight: c.GetHueWeight(),
	}
}

// Cycle builds a detection cycle from the config.
func (c *TuningConfig) Cycle() *detection.Cycle {
	return &detection.Cycle{
		Interval:   c.GetDetectionInterval(),
		Extractor:  c.Extractor(),
		Comparator: c.Comparator(),
	}
}
