package ukf

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/sensorfusion/internal/monitoring"
	"gonum.org/v1/gonum/mat"
)

const microsPerSecond = 1e6

// Result describes how one measurement was handled.
type Result struct {
	Sensor      SensorType
	Initialized bool    // the measurement seeded the filter
	Skipped     bool    // the sensor is disabled; only time advanced
	Steps       int     // prediction steps run for this measurement
	NIS         float64 // NIS of this cycle; zero when no update ran
	State       State   // copy of the state after processing
}

// Filter is the Unscented Kalman Filter for a single tracked object.
type Filter struct {
	cfg     Config
	weights *mat.VecDense

	initialized bool
	state       State

	nis [sensorCount]float64
}

// NewFilter creates a filter with the given configuration.
func NewFilter(cfg Config) (*Filter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid filter config: %w", err)
	}
	f := &Filter{
		cfg:     cfg,
		weights: SigmaWeights(),
	}
	f.Reset()
	return f, nil
}

// Reset discards the estimate so the next measurement re-initialises the filter.
func (f *Filter) Reset() {
	f.initialized = false
	f.state = State{
		X: mat.NewVecDense(StateDim, nil),
		P: mat.NewSymDense(StateDim, nil),
	}
	f.nis = [sensorCount]float64{}
}

// Config returns the configuration the filter was built with.
func (f *Filter) Config() Config { return f.cfg }

// Initialized reports whether the filter has been seeded.
func (f *Filter) Initialized() bool { return f.initialized }

// State returns a copy of the current estimate.
func (f *Filter) State() State { return f.state.Clone() }

// NIS returns the most recent NIS computed for the sensor.
func (f *Filter) NIS(s SensorType) float64 {
	if s < 0 || s >= sensorCount {
		return 0
	}
	return f.nis[s]
}

// ProcessMeasurement runs one full cycle for m: initialisation on the first
// measurement, otherwise prediction up to m's timestamp followed by the
// sensor-specific update. A cycle that fails leaves the state unchanged.
func (f *Filter) ProcessMeasurement(m Measurement) (Result, error) {
	if err := m.Validate(); err != nil {
		return Result{}, err
	}
	res := Result{Sensor: m.Sensor}

	if !f.initialized {
		if err := f.initialize(m); err != nil {
			return res, err
		}
		res.Initialized = true
		res.State = f.State()
		return res, nil
	}

	if m.TimestampUS < f.state.TimestampUS {
		return res, fmt.Errorf("%w: timestamp %d precedes filter time %d", ErrInvalidMeasurement, m.TimestampUS, f.state.TimestampUS)
	}

	gap := float64(m.TimestampUS-f.state.TimestampUS) / microsPerSecond
	if gap > f.cfg.MaxGapSeconds {
		return res, f.fail(m, fmt.Errorf("%w: %.3fs gap exceeds max_gap_seconds %.3f", ErrInvalidMeasurement, gap, f.cfg.MaxGapSeconds))
	}

	if !f.cfg.enabled(m.Sensor) {
		f.state.TimestampUS = m.TimestampUS
		res.Skipped = true
		res.State = f.State()
		return res, nil
	}

	pred, err := f.predict(f.state, gap)
	if err != nil {
		return res, f.fail(m, err)
	}

	pm := PredictMeasurement(m.Sensor, f.cfg, pred.xsig, f.weights)
	x, p, nis, err := UpdateState(pred.state.X, pred.state.P, pred.xsig, f.weights, pm, mat.NewVecDense(len(m.Raw), append([]float64(nil), m.Raw...)))
	if err != nil {
		return res, f.fail(m, err)
	}

	next := State{X: x, P: p, TimestampUS: m.TimestampUS}
	if !next.IsFinite() {
		return res, f.fail(m, ErrNotPositiveDefinite)
	}

	f.state = next
	f.nis[m.Sensor] = nis

	res.Steps = pred.steps
	res.NIS = nis
	res.State = f.State()
	return res, nil
}

// initialize seeds the state from the first measurement.
func (f *Filter) initialize(m Measurement) error {
	if f.initialized {
		return ErrAlreadyInitialized
	}

	x := mat.NewVecDense(StateDim, nil)
	switch m.Sensor {
	case SensorLidar:
		x.SetVec(IdxPx, m.Raw[0])
		x.SetVec(IdxPy, m.Raw[1])
	case SensorRadar:
		rho, phi, rhoDot := m.Raw[0], m.Raw[1], m.Raw[2]
		vx := rhoDot * math.Cos(phi)
		vy := rhoDot * math.Sin(phi)
		x.SetVec(IdxPx, rho*math.Cos(phi))
		x.SetVec(IdxPy, rho*math.Sin(phi))
		x.SetVec(IdxV, math.Hypot(vx, vy))
		x.SetVec(IdxYaw, math.Atan2(vy, vx))
	}

	p := mat.NewSymDense(StateDim, nil)
	for i := 0; i < StateDim; i++ {
		p.SetSym(i, i, f.cfg.InitialCovScale)
	}

	f.state = State{X: x, P: p, TimestampUS: m.TimestampUS}
	f.initialized = true
	return nil
}

type prediction struct {
	state State
	xsig  *mat.Dense
	steps int
}

// predict propagates s forward by dt seconds. Intervals longer than
// MaxStepSeconds are consumed in SubStepSeconds increments first.
func (f *Filter) predict(s State, dt float64) (prediction, error) {
	out := prediction{state: s}
	for dt > f.cfg.MaxStepSeconds {
		next, err := f.predictStep(out.state, f.cfg.SubStepSeconds)
		if err != nil {
			return out, err
		}
		out = prediction{state: next.state, xsig: next.xsig, steps: out.steps + 1}
		dt -= f.cfg.SubStepSeconds
	}
	next, err := f.predictStep(out.state, dt)
	if err != nil {
		return out, err
	}
	next.steps = out.steps + 1
	return next, nil
}

// predictStep runs sigma-point generation, CTRV propagation and
// recombination once.
func (f *Filter) predictStep(s State, dt float64) (prediction, error) {
	xsigAug, err := AugmentedSigmaPoints(s.X, s.P, f.cfg.StdA, f.cfg.StdYawdd)
	if err != nil {
		return prediction{}, err
	}
	xsig := PredictSigmaPoints(xsigAug, dt)
	x, p := Recombine(xsig, f.weights, IdxYaw)
	return prediction{
		state: State{X: x, P: p, TimestampUS: s.TimestampUS},
		xsig:  xsig,
	}, nil
}

func (f *Filter) fail(m Measurement, err error) error {
	kind := "numerical failure"
	if errors.Is(err, ErrInvalidMeasurement) {
		kind = "rejected measurement"
	}
	monitoring.Logf("[ukf] %s for %v at t=%d: %v (state left at t=%d)", kind, m.Sensor, m.TimestampUS, err, f.state.TimestampUS)
	return fmt.Errorf("process %v measurement at %d: %w", m.Sensor, m.TimestampUS, err)
}
