package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default filter constants.
const DefaultConfigPath = "config/ukf.defaults.json"

// TuningConfig represents the root configuration for filter tuning.
// Every field is optional; the Get* methods fall back to built-in
// defaults so partial files are safe.
type TuningConfig struct {
	// Sensor enables
	UseLaser *bool `json:"use_laser,omitempty"`
	UseRadar *bool `json:"use_radar,omitempty"`

	// Process noise standard deviations
	StdA     *float64 `json:"std_a,omitempty"`     // m/s²
	StdYawdd *float64 `json:"std_yawdd,omitempty"` // rad/s²

	// Lidar measurement noise standard deviations (m)
	StdLaserPx *float64 `json:"std_laser_px,omitempty"`
	StdLaserPy *float64 `json:"std_laser_py,omitempty"`

	// Radar measurement noise standard deviations
	StdRadarR   *float64 `json:"std_radar_r,omitempty"`   // m
	StdRadarPhi *float64 `json:"std_radar_phi,omitempty"` // rad
	StdRadarRd  *float64 `json:"std_radar_rd,omitempty"`  // m/s

	// Initial covariance diagonal
	InitialCovScale *float64 `json:"initial_cov_scale,omitempty"`

	// Prediction sub-stepping for long gaps
	MaxStepSeconds *float64 `json:"max_step_seconds,omitempty"`
	SubStepSeconds *float64 `json:"sub_step_seconds,omitempty"`

	// Longest timestamp gap a single measurement may span
	MaxGapSeconds *float64 `json:"max_gap_seconds,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the built-in defaults.
func DefaultTuningConfig() *TuningConfig {
	c := EmptyTuningConfig()
	return &TuningConfig{
		UseLaser:        ptrBool(c.GetUseLaser()),
		UseRadar:        ptrBool(c.GetUseRadar()),
		StdA:            ptrFloat64(c.GetStdA()),
		StdYawdd:        ptrFloat64(c.GetStdYawdd()),
		StdLaserPx:      ptrFloat64(c.GetStdLaserPx()),
		StdLaserPy:      ptrFloat64(c.GetStdLaserPy()),
		StdRadarR:       ptrFloat64(c.GetStdRadarR()),
		StdRadarPhi:     ptrFloat64(c.GetStdRadarPhi()),
		StdRadarRd:      ptrFloat64(c.GetStdRadarRd()),
		InitialCovScale: ptrFloat64(c.GetInitialCovScale()),
		MaxStepSeconds:  ptrFloat64(c.GetMaxStepSeconds()),
		SubStepSeconds:  ptrFloat64(c.GetSubStepSeconds()),
		MaxGapSeconds:   ptrFloat64(c.GetMaxGapSeconds()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
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

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
// Noise terms must be strictly positive so every covariance the filter
// factorises stays positive definite.
func (c *TuningConfig) Validate() error {
	positive := []struct {
		name string
		v    *float64
	}{
		{"std_a", c.StdA},
		{"std_yawdd", c.StdYawdd},
		{"std_laser_px", c.StdLaserPx},
		{"std_laser_py", c.StdLaserPy},
		{"std_radar_r", c.StdRadarR},
		{"std_radar_phi", c.StdRadarPhi},
		{"std_radar_rd", c.StdRadarRd},
		{"initial_cov_scale", c.InitialCovScale},
		{"max_step_seconds", c.MaxStepSeconds},
		{"sub_step_seconds", c.SubStepSeconds},
		{"max_gap_seconds", c.MaxGapSeconds},
	}
	for _, p := range positive {
		if p.v != nil && !(*p.v > 0) {
			return fmt.Errorf("%s must be positive, got %f", p.name, *p.v)
		}
	}

	if c.GetMaxStepSeconds() < c.GetSubStepSeconds() {
		return fmt.Errorf("max_step_seconds (%f) must not be less than sub_step_seconds (%f)",
			c.GetMaxStepSeconds(), c.GetSubStepSeconds())
	}
	if c.GetMaxGapSeconds() < c.GetMaxStepSeconds() {
		return fmt.Errorf("max_gap_seconds (%f) must not be less than max_step_seconds (%f)",
			c.GetMaxGapSeconds(), c.GetMaxStepSeconds())
	}

	return nil
}

// GetUseLaser returns the use_laser value or the default.
func (c *TuningConfig) GetUseLaser() bool {
	if c.UseLaser == nil {
		return true
	}
	return *c.UseLaser
}

// GetUseRadar returns the use_radar value or the default.
func (c *TuningConfig) GetUseRadar() bool {
	if c.UseRadar == nil {
		return true
	}
	return *c.UseRadar
}

// GetStdA returns the std_a value or the default.
func (c *TuningConfig) GetStdA() float64 {
	if c.StdA == nil {
		return 2.0
	}
	return *c.StdA
}

// GetStdYawdd returns the std_yawdd value or the default.
func (c *TuningConfig) GetStdYawdd() float64 {
	if c.StdYawdd == nil {
		return 1.5
	}
	return *c.StdYawdd
}

// GetStdLaserPx returns the std_laser_px value or the default.
func (c *TuningConfig) GetStdLaserPx() float64 {
	if c.StdLaserPx == nil {
		return 0.2
	}
	return *c.StdLaserPx
}

// GetStdLaserPy returns the std_laser_py value or the default.
func (c *TuningConfig) GetStdLaserPy() float64 {
	if c.StdLaserPy == nil {
		return 0.15
	}
	return *c.StdLaserPy
}

// GetStdRadarR returns the std_radar_r value or the default.
func (c *TuningConfig) GetStdRadarR() float64 {
	if c.StdRadarR == nil {
		return 0.15
	}
	return *c.StdRadarR
}

// GetStdRadarPhi returns the std_radar_phi value or the default.
func (c *TuningConfig) GetStdRadarPhi() float64 {
	if c.StdRadarPhi == nil {
		return 0.02
	}
	return *c.StdRadarPhi
}

// GetStdRadarRd returns the std_radar_rd value or the default.
func (c *TuningConfig) GetStdRadarRd() float64 {
	if c.StdRadarRd == nil {
		return 0.15
	}
	return *c.StdRadarRd
}

// GetInitialCovScale returns the initial_cov_scale value or the default.
func (c *TuningConfig) GetInitialCovScale() float64 {
	if c.InitialCovScale == nil {
		return 0.05
	}
	return *c.InitialCovScale
}

// GetMaxStepSeconds returns the max_step_seconds value or the default.
func (c *TuningConfig) GetMaxStepSeconds() float64 {
	if c.MaxStepSeconds == nil {
		return 0.2
	}
	return *c.MaxStepSeconds
}

// GetSubStepSeconds returns the sub_step_seconds value or the default.
func (c *TuningConfig) GetSubStepSeconds() float64 {
	if c.SubStepSeconds == nil {
		return 0.1
	}
	return *c.SubStepSeconds
}

// GetMaxGapSeconds returns the max_gap_seconds value or the default.
func (c *TuningConfig) GetMaxGapSeconds() float64 {
	if c.MaxGapSeconds == nil {
		return 60
	}
	return *c.MaxGapSeconds
}
