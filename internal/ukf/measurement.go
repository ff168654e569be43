package ukf

import (
	"fmt"
	"math"
	"strings"
)

// SensorType identifies which sensor produced a measurement.
type SensorType int

const (
	// SensorLidar reports Cartesian position [px, py].
	SensorLidar SensorType = iota
	// SensorRadar reports polar [range, bearing, range-rate].
	SensorRadar

	sensorCount
)

// String returns the single-letter tag used in measurement records.
func (s SensorType) String() string {
	switch s {
	case SensorLidar:
		return "L"
	case SensorRadar:
		return "R"
	default:
		return fmt.Sprintf("SensorType(%d)", int(s))
	}
}

// Dim returns the length of the raw measurement vector for the sensor,
// or 0 for an unknown sensor.
func (s SensorType) Dim() int {
	switch s {
	case SensorLidar:
		return 2
	case SensorRadar:
		return 3
	default:
		return 0
	}
}

// ParseSensorType converts a record tag ("L" or "R", any case) into a SensorType.
func ParseSensorType(tag string) (SensorType, error) {
	switch strings.ToUpper(strings.TrimSpace(tag)) {
	case "L", "LIDAR", "LASER":
		return SensorLidar, nil
	case "R", "RADAR":
		return SensorRadar, nil
	default:
		return 0, fmt.Errorf("%w: unknown sensor tag %q", ErrInvalidMeasurement, tag)
	}
}

// Measurement is a single timestamped sensor reading.
type Measurement struct {
	Sensor      SensorType
	Raw         []float64
	TimestampUS int64 // microseconds, monotonically non-decreasing
}

// Validate rejects measurements that must never enter the pipeline.
func (m Measurement) Validate() error {
	dim := m.Sensor.Dim()
	if dim == 0 {
		return fmt.Errorf("%w: unknown sensor %v", ErrInvalidMeasurement, m.Sensor)
	}
	if len(m.Raw) != dim {
		return fmt.Errorf("%w: %v measurement has %d values, want %d", ErrInvalidMeasurement, m.Sensor, len(m.Raw), dim)
	}
	for i, v := range m.Raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %v value %d is not finite", ErrInvalidMeasurement, m.Sensor, i)
		}
	}
	return nil
}
