package ukf

import (
	"fmt"

	"github.com/banshee-data/sensorfusion/internal/config"
)

// Config holds the noise constants and sequencing parameters of a Filter.
// It is fixed at construction.
type Config struct {
	UseLaser bool // when false, lidar measurements only initialise the filter
	UseRadar bool // when false, radar measurements only initialise the filter

	// Process noise
	StdA     float64 // longitudinal acceleration σ (m/s²)
	StdYawdd float64 // yaw acceleration σ (rad/s²)

	// Lidar measurement noise
	StdLaserPx float64 // m
	StdLaserPy float64 // m

	// Radar measurement noise
	StdRadarR   float64 // range σ (m)
	StdRadarPhi float64 // bearing σ (rad)
	StdRadarRd  float64 // range-rate σ (m/s)

	// InitialCovScale is the diagonal of the covariance seeded on the first
	// measurement. It is independent of sensor noise.
	InitialCovScale float64

	// Long gaps are propagated in SubStepSeconds increments while the
	// remaining interval exceeds MaxStepSeconds.
	MaxStepSeconds float64
	SubStepSeconds float64

	// MaxGapSeconds is the longest interval one measurement may advance the
	// filter by. Larger gaps are rejected.
	MaxGapSeconds float64
}

// DefaultConfig returns the built-in filter constants.
func DefaultConfig() Config {
	return Config{
		UseLaser:        true,
		UseRadar:        true,
		StdA:            2,
		StdYawdd:        1.5,
		StdLaserPx:      0.2,
		StdLaserPy:      0.15,
		StdRadarR:       0.15,
		StdRadarPhi:     0.02,
		StdRadarRd:      0.15,
		InitialCovScale: 0.05,
		MaxStepSeconds:  0.2,
		SubStepSeconds:  0.1,
		MaxGapSeconds:   60,
	}
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		UseLaser:        cfg.GetUseLaser(),
		UseRadar:        cfg.GetUseRadar(),
		StdA:            cfg.GetStdA(),
		StdYawdd:        cfg.GetStdYawdd(),
		StdLaserPx:      cfg.GetStdLaserPx(),
		StdLaserPy:      cfg.GetStdLaserPy(),
		StdRadarR:       cfg.GetStdRadarR(),
		StdRadarPhi:     cfg.GetStdRadarPhi(),
		StdRadarRd:      cfg.GetStdRadarRd(),
		InitialCovScale: cfg.GetInitialCovScale(),
		MaxStepSeconds:  cfg.GetMaxStepSeconds(),
		SubStepSeconds:  cfg.GetSubStepSeconds(),
		MaxGapSeconds:   cfg.GetMaxGapSeconds(),
	}
}

// Validate checks that every noise term is strictly positive so the
// augmented and innovation covariances are positive definite.
func (c Config) Validate() error {
	positive := []struct {
		name string
		v    float64
	}{
		{"std_a", c.StdA},
		{"std_yawdd", c.StdYawdd},
		{"std_laser_px", c.StdLaserPx},
		{"std_laser_py", c.StdLaserPy},
		{"std_radar_r", c.StdRadarR},
		{"std_radar_phi", c.StdRadarPhi},
		{"std_radar_rd", c.StdRadarRd},
		{"initial_cov_scale", c.InitialCovScale},
		{"sub_step_seconds", c.SubStepSeconds},
	}
	for _, p := range positive {
		if !(p.v > 0) {
			return fmt.Errorf("%s must be positive, got %v", p.name, p.v)
		}
	}
	if c.MaxStepSeconds < c.SubStepSeconds {
		return fmt.Errorf("max_step_seconds (%v) must be >= sub_step_seconds (%v)", c.MaxStepSeconds, c.SubStepSeconds)
	}
	if c.MaxGapSeconds < c.MaxStepSeconds {
		return fmt.Errorf("max_gap_seconds (%v) must be >= max_step_seconds (%v)", c.MaxGapSeconds, c.MaxStepSeconds)
	}
	return nil
}

func (c Config) enabled(s SensorType) bool {
	switch s {
	case SensorLidar:
		return c.UseLaser
	case SensorRadar:
		return c.UseRadar
	default:
		return false
	}
}
