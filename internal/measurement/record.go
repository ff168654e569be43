// Package measurement reads and writes the line-oriented sensor record
// format consumed by the filter driver, and provides stream sources for
// files and serial ports.
package measurement

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/sensorfusion/internal/ukf"
)

// GroundTruth is the reference [px, py, vx, vy] attached to a simulated record.
type GroundTruth struct {
	Px, Py, Vx, Vy float64
}

// Vector returns the ground truth in RMSE component order.
func (g GroundTruth) Vector() []float64 {
	return []float64{g.Px, g.Py, g.Vx, g.Vy}
}

// Record is one parsed input line.
//
//	L px py timestamp [gt_px gt_py gt_vx gt_vy]
//	R rho phi rho_dot timestamp [gt_px gt_py gt_vx gt_vy]
type Record struct {
	Measurement ukf.Measurement
	GroundTruth *GroundTruth // nil when the record carries none
}

// ParseRecord decodes a single whitespace-separated record.
func ParseRecord(line string) (Record, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Record{}, fmt.Errorf("%w: empty record", ukf.ErrInvalidMeasurement)
	}

	sensor, err := ukf.ParseSensorType(fields[0])
	if err != nil {
		return Record{}, err
	}

	dim := sensor.Dim()
	rest := fields[1:]
	switch len(rest) {
	case dim + 1, dim + 5:
	default:
		return Record{}, fmt.Errorf("%w: %v record has %d fields, want %d or %d",
			ukf.ErrInvalidMeasurement, sensor, len(rest), dim+1, dim+5)
	}

	raw := make([]float64, dim)
	for i := range raw {
		v, err := parseFloat(rest[i])
		if err != nil {
			return Record{}, fmt.Errorf("%w: %v field %d: %v", ukf.ErrInvalidMeasurement, sensor, i, err)
		}
		raw[i] = v
	}

	ts, err := strconv.ParseInt(rest[dim], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: timestamp %q: %v", ukf.ErrInvalidMeasurement, rest[dim], err)
	}

	rec := Record{Measurement: ukf.Measurement{Sensor: sensor, Raw: raw, TimestampUS: ts}}

	if len(rest) == dim+5 {
		var gt [4]float64
		for i := range gt {
			v, err := parseFloat(rest[dim+1+i])
			if err != nil {
				return Record{}, fmt.Errorf("%w: ground truth field %d: %v", ukf.ErrInvalidMeasurement, i, err)
			}
			gt[i] = v
		}
		rec.GroundTruth = &GroundTruth{Px: gt[0], Py: gt[1], Vx: gt[2], Vy: gt[3]}
	}

	if err := rec.Measurement.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

// String encodes the record in the tab-separated input format.
func (r Record) String() string {
	var b strings.Builder
	b.WriteString(r.Measurement.Sensor.String())
	for _, v := range r.Measurement.Raw {
		b.WriteByte('\t')
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	b.WriteByte('\t')
	b.WriteString(strconv.FormatInt(r.Measurement.TimestampUS, 10))
	if r.GroundTruth != nil {
		for _, v := range r.GroundTruth.Vector() {
			b.WriteByte('\t')
			b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
	}
	return b.String()
}

// Position returns the measured position in Cartesian coordinates. Radar
// range and bearing are converted from polar form.
func (r Record) Position() (px, py float64) {
	raw := r.Measurement.Raw
	switch r.Measurement.Sensor {
	case ukf.SensorRadar:
		return raw[0] * math.Cos(raw[1]), raw[0] * math.Sin(raw[1])
	default:
		return raw[0], raw[1]
	}
}
