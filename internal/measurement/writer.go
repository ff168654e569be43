package measurement

import (
	"bufio"
	"io"
	"math"
	"strconv"

	"github.com/banshee-data/sensorfusion/internal/ukf"
)

// Estimate is the filter output for one processed record.
type Estimate struct {
	TimestampUS int64
	Sensor      ukf.SensorType
	Px, Py      float64
	V           float64
	Yaw         float64
	YawRate     float64
	NIS         float64
	MeasPx      float64 // measured position, radar converted to Cartesian
	MeasPy      float64
	GroundTruth *GroundTruth

	Initialized bool // the record seeded the filter; NIS is not meaningful
	Skipped     bool // the sensor is disabled; only time advanced
}

// Updated reports whether a measurement update ran, so NIS is meaningful.
func (e Estimate) Updated() bool {
	return !e.Initialized && !e.Skipped
}

// NewEstimate pairs the state after processing rec with the record itself.
func NewEstimate(rec Record, res ukf.Result) Estimate {
	e := Estimate{
		TimestampUS: rec.Measurement.TimestampUS,
		Sensor:      rec.Measurement.Sensor,
		NIS:         res.NIS,
		GroundTruth: rec.GroundTruth,
		Initialized: res.Initialized,
		Skipped:     res.Skipped,
	}
	if x := res.State.X; x != nil {
		e.Px = x.AtVec(ukf.IdxPx)
		e.Py = x.AtVec(ukf.IdxPy)
		e.V = x.AtVec(ukf.IdxV)
		e.Yaw = x.AtVec(ukf.IdxYaw)
		e.YawRate = x.AtVec(ukf.IdxYawRate)
	}
	e.MeasPx, e.MeasPy = rec.Position()
	return e
}

// Velocity returns the Cartesian velocity implied by speed and heading.
func (e Estimate) Velocity() (vx, vy float64) {
	return e.V * math.Cos(e.Yaw), e.V * math.Sin(e.Yaw)
}

// Vector returns the estimate in RMSE component order [px, py, vx, vy].
func (e Estimate) Vector() []float64 {
	vx, vy := e.Velocity()
	return []float64{e.Px, e.Py, vx, vy}
}

// Header is the column line written before the first estimate.
const Header = "timestamp\tsensor\tpx\tpy\tv\tyaw\tyaw_rate\tnis\tmeas_px\tmeas_py\tgt_px\tgt_py\tgt_vx\tgt_vy"

// Writer encodes estimates as tab-separated lines.
type Writer struct {
	w         *bufio.Writer
	buf       []byte
	wroteHead bool
}

// NewWriter returns a Writer over w. Call Flush when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write encodes a single estimate, preceded by Header on the first call.
// Ground-truth columns are empty when the record carried none.
func (w *Writer) Write(e Estimate) error {
	if !w.wroteHead {
		if _, err := w.w.WriteString(Header + "\n"); err != nil {
			return err
		}
		w.wroteHead = true
	}

	b := w.buf[:0]
	b = strconv.AppendInt(b, e.TimestampUS, 10)
	b = append(b, '\t')
	b = append(b, e.Sensor.String()...)
	for _, v := range []float64{e.Px, e.Py, e.V, e.Yaw, e.YawRate, e.NIS, e.MeasPx, e.MeasPy} {
		b = append(b, '\t')
		b = strconv.AppendFloat(b, v, 'f', 6, 64)
	}
	if e.GroundTruth != nil {
		for _, v := range e.GroundTruth.Vector() {
			b = append(b, '\t')
			b = strconv.AppendFloat(b, v, 'f', 6, 64)
		}
	} else {
		b = append(b, "\t\t\t\t"...)
	}
	b = append(b, '\n')
	w.buf = b

	_, err := w.w.Write(b)
	return err
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}
