package ukf

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func newTestFilter(t *testing.T, mutate ...func(*Config)) *Filter {
	t.Helper()
	cfg := DefaultConfig()
	for _, fn := range mutate {
		fn(&cfg)
	}
	f, err := NewFilter(cfg)
	require.NoError(t, err)
	return f
}

func lidar(px, py float64, ts int64) Measurement {
	return Measurement{Sensor: SensorLidar, Raw: []float64{px, py}, TimestampUS: ts}
}

func radar(rho, phi, rhoDot float64, ts int64) Measurement {
	return Measurement{Sensor: SensorRadar, Raw: []float64{rho, phi, rhoDot}, TimestampUS: ts}
}

func assertPSD(t *testing.T, p *mat.SymDense) {
	t.Helper()
	var eig mat.EigenSym
	require.True(t, eig.Factorize(p, false))
	for _, v := range eig.Values(nil) {
		assert.GreaterOrEqual(t, v, -1e-9)
	}
}

func TestNewFilter_InvalidConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.StdRadarPhi = 0
	_, err := NewFilter(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.MaxStepSeconds = 0.05
	_, err = NewFilter(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.MaxGapSeconds = 0.1
	_, err = NewFilter(cfg)
	assert.Error(t, err)
}

func TestFilter_InitializeFromLidar(t *testing.T) {
	t.Parallel()
	f := newTestFilter(t)

	res, err := f.ProcessMeasurement(lidar(1.0, 1.0, 0))
	require.NoError(t, err)
	assert.True(t, res.Initialized)
	assert.True(t, f.Initialized())
	assert.Equal(t, 0, res.Steps)

	s := f.State()
	if diff := cmp.Diff([]float64{1, 1, 0, 0, 0}, s.X.RawVector().Data); diff != "" {
		t.Errorf("initial mean mismatch (-want +got):\n%s", diff)
	}
	for i := 0; i < StateDim; i++ {
		for j := 0; j < StateDim; j++ {
			want := 0.0
			if i == j {
				want = DefaultConfig().InitialCovScale
			}
			assert.Equal(t, want, s.P.At(i, j))
		}
	}
	assert.Equal(t, int64(0), s.TimestampUS)
	assert.Equal(t, 0.0, f.NIS(SensorLidar))
	assert.Equal(t, 0.0, f.NIS(SensorRadar))
}

func TestFilter_InitializeFromRadar(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name             string
		rho, phi, rhoDot float64
		wantV, wantYaw   float64
	}{
		{"approaching", 2, 0.5, 1, 1, 0.5},
		{"receding", 2, 0.5, -1, 1, 0.5 - math.Pi},
		{"stationary", 2, 0.5, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFilter(t)
			_, err := f.ProcessMeasurement(radar(tt.rho, tt.phi, tt.rhoDot, 42))
			require.NoError(t, err)

			s := f.State()
			assert.InDelta(t, tt.rho*math.Cos(tt.phi), s.X.AtVec(IdxPx), 1e-12)
			assert.InDelta(t, tt.rho*math.Sin(tt.phi), s.X.AtVec(IdxPy), 1e-12)
			assert.InDelta(t, tt.wantV, s.X.AtVec(IdxV), 1e-12)
			assert.InDelta(t, tt.wantYaw, s.X.AtVec(IdxYaw), 1e-12)
			assert.Equal(t, 0.0, s.X.AtVec(IdxYawRate))
			assert.Equal(t, int64(42), s.TimestampUS)
		})
	}
}

func TestFilter_InitializeGuard(t *testing.T) {
	t.Parallel()
	f := newTestFilter(t)
	require.NoError(t, f.initialize(lidar(1, 1, 0)))
	assert.ErrorIs(t, f.initialize(lidar(5, 5, 10)), ErrAlreadyInitialized)
	assert.Equal(t, 1.0, f.State().X.AtVec(IdxPx))
}

func TestFilter_LidarThenRadar(t *testing.T) {
	t.Parallel()
	f := newTestFilter(t)
	_, err := f.ProcessMeasurement(lidar(1.0, 1.0, 0))
	require.NoError(t, err)
	initial := f.State()

	pred, err := f.predict(initial, 0.1)
	require.NoError(t, err)

	res, err := f.ProcessMeasurement(radar(1.4142, 0.7854, 0, 100000))
	require.NoError(t, err)
	assert.False(t, res.Initialized)
	assert.False(t, res.Skipped)
	assert.Equal(t, 1, res.Steps)

	s := f.State()
	assert.InDelta(t, 1.0, s.X.AtVec(IdxPx), 0.05)
	assert.InDelta(t, 1.0, s.X.AtVec(IdxPy), 0.05)
	assert.Less(t, s.Trace(), pred.state.Trace())
	assert.Less(t, s.Trace(), initial.Trace())
	assert.Equal(t, int64(100000), s.TimestampUS)
	assertPSD(t, s.P)

	assert.GreaterOrEqual(t, f.NIS(SensorRadar), 0.0)
	assert.Equal(t, res.NIS, f.NIS(SensorRadar))
	assert.Equal(t, 0.0, f.NIS(SensorLidar))
}

func TestFilter_NISSlotsPerSensor(t *testing.T) {
	t.Parallel()
	f := newTestFilter(t)
	_, err := f.ProcessMeasurement(lidar(1, 1, 0))
	require.NoError(t, err)

	res, err := f.ProcessMeasurement(lidar(1.5, 1.2, 50000))
	require.NoError(t, err)
	assert.Greater(t, res.NIS, 0.0)
	assert.Equal(t, res.NIS, f.NIS(SensorLidar))
	assert.Equal(t, 0.0, f.NIS(SensorRadar))
	assert.Equal(t, 0.0, f.NIS(SensorType(7)))
}

func TestFilter_DisabledSensor(t *testing.T) {
	t.Parallel()
	f := newTestFilter(t, func(c *Config) { c.UseRadar = false })
	_, err := f.ProcessMeasurement(lidar(1, 1, 0))
	require.NoError(t, err)
	before := f.State()

	res, err := f.ProcessMeasurement(radar(3, 0.2, 1, 250000))
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, 0, res.Steps)

	after := f.State()
	assert.True(t, mat.Equal(before.X, after.X))
	assert.True(t, mat.Equal(before.P, after.P))
	assert.Equal(t, int64(250000), after.TimestampUS)
	assert.Equal(t, 0.0, f.NIS(SensorRadar))

	// The next delta is measured from the skipped measurement's time.
	res, err = f.ProcessMeasurement(lidar(1, 1, 300000))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Steps)
}

func TestFilter_DisabledSensorStillInitializes(t *testing.T) {
	t.Parallel()
	f := newTestFilter(t, func(c *Config) { c.UseLaser = false })
	res, err := f.ProcessMeasurement(lidar(2, 3, 0))
	require.NoError(t, err)
	assert.True(t, res.Initialized)
	assert.Equal(t, 2.0, f.State().X.AtVec(IdxPx))
}

func TestFilter_RejectsMalformedMeasurements(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		m    Measurement
	}{
		{"lidar too long", Measurement{Sensor: SensorLidar, Raw: []float64{1, 2, 3}}},
		{"radar too short", Measurement{Sensor: SensorRadar, Raw: []float64{1, 2}}},
		{"unknown sensor", Measurement{Sensor: SensorType(9), Raw: []float64{1, 2}}},
		{"nan", Measurement{Sensor: SensorLidar, Raw: []float64{math.NaN(), 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFilter(t)
			_, err := f.ProcessMeasurement(tt.m)
			assert.ErrorIs(t, err, ErrInvalidMeasurement)
			assert.False(t, f.Initialized())
		})
	}
}

func TestFilter_RejectsOutOfOrder(t *testing.T) {
	t.Parallel()
	f := newTestFilter(t)
	_, err := f.ProcessMeasurement(lidar(1, 1, 1000))
	require.NoError(t, err)

	_, err = f.ProcessMeasurement(lidar(1, 1, 999))
	assert.ErrorIs(t, err, ErrInvalidMeasurement)
	assert.Equal(t, int64(1000), f.State().TimestampUS)
}

func TestFilter_RejectsExcessiveGap(t *testing.T) {
	t.Parallel()
	f := newTestFilter(t)
	_, err := f.ProcessMeasurement(lidar(1, 1, 0))
	require.NoError(t, err)
	before := f.State()

	// One day later, as from a corrupted or mis-scaled timestamp.
	res, err := f.ProcessMeasurement(lidar(1.1, 1.1, 86400*1e6))
	assert.ErrorIs(t, err, ErrInvalidMeasurement)
	assert.Zero(t, res.Steps)
	assert.Equal(t, before.TimestampUS, f.State().TimestampUS)
	assert.Equal(t, before.X.RawVector().Data, f.State().X.RawVector().Data)

	// A disabled sensor is held to the same bound.
	g := newTestFilter(t, func(c *Config) { c.UseRadar = false })
	_, err = g.ProcessMeasurement(lidar(1, 1, 0))
	require.NoError(t, err)
	_, err = g.ProcessMeasurement(radar(1, 0.5, 0, 86400*1e6))
	assert.ErrorIs(t, err, ErrInvalidMeasurement)
	assert.Equal(t, int64(0), g.State().TimestampUS)

	// Exactly at the bound is still processed.
	res, err = f.ProcessMeasurement(lidar(1.1, 1.1, int64(DefaultConfig().MaxGapSeconds*1e6)))
	require.NoError(t, err)
	assert.InDelta(t, 599, res.Steps, 1)
}

func TestFilter_NumericalFailureLeavesState(t *testing.T) {
	t.Parallel()
	f := newTestFilter(t)
	_, err := f.ProcessMeasurement(lidar(1, 1, 0))
	require.NoError(t, err)

	f.state.P.SetSym(IdxV, IdxV, -1)
	before := f.State()

	_, err = f.ProcessMeasurement(lidar(1.1, 1.1, 100000))
	assert.ErrorIs(t, err, ErrNotPositiveDefinite)

	after := f.State()
	assert.True(t, mat.Equal(before.X, after.X))
	assert.True(t, mat.Equal(before.P, after.P))
	assert.Equal(t, before.TimestampUS, after.TimestampUS)
}

func TestFilter_LongGapIsSubStepped(t *testing.T) {
	t.Parallel()
	f := newTestFilter(t)
	_, err := f.ProcessMeasurement(radar(10, 0.3, 4, 0))
	require.NoError(t, err)
	start := f.State()

	got, err := f.predict(start, 0.55)
	require.NoError(t, err)
	assert.Equal(t, 5, got.steps)

	// Manual chain: 0.1 sub-steps while more than 0.2 remains, then the rest.
	want := start
	dt := 0.55
	for dt > 0.2 {
		step, err := f.predictStep(want, 0.1)
		require.NoError(t, err)
		want = step.state
		dt -= 0.1
	}
	last, err := f.predictStep(want, dt)
	require.NoError(t, err)
	assert.InDelta(t, 0.15, dt, 1e-9)

	for i := 0; i < StateDim; i++ {
		assert.InDelta(t, last.state.X.AtVec(i), got.state.X.AtVec(i), 1e-12)
		for j := 0; j < StateDim; j++ {
			assert.InDelta(t, last.state.P.At(i, j), got.state.P.At(i, j), 1e-12)
		}
	}

	single, err := f.predictStep(start, 0.55)
	require.NoError(t, err)
	assert.Greater(t, single.state.P.At(IdxV, IdxV)-got.state.P.At(IdxV, IdxV), 0.5)
}

func TestFilter_ShortGapIsSingleStep(t *testing.T) {
	t.Parallel()
	f := newTestFilter(t)
	_, err := f.ProcessMeasurement(lidar(1, 1, 0))
	require.NoError(t, err)

	got, err := f.predict(f.State(), 0.2)
	require.NoError(t, err)
	assert.Equal(t, 1, got.steps)
}

func TestFilter_TracksConstantVelocity(t *testing.T) {
	t.Parallel()
	f := newTestFilter(t)

	const (
		v   = 3.0
		yaw = 0.4
	)
	px, py := 2.0, 1.0
	var ts int64
	for i := 0; i < 200; i++ {
		var m Measurement
		if i%2 == 0 {
			rho := math.Hypot(px, py)
			phi := math.Atan2(py, px)
			rhoDot := (px*v*math.Cos(yaw) + py*v*math.Sin(yaw)) / rho
			m = radar(rho, phi, rhoDot, ts)
		} else {
			m = lidar(px, py, ts)
		}
		_, err := f.ProcessMeasurement(m)
		require.NoError(t, err, "step %d", i)
		assertPSD(t, f.State().P)

		ts += 50000
		px += v * math.Cos(yaw) * 0.05
		py += v * math.Sin(yaw) * 0.05
	}

	s := f.State()
	lastPx := px - v*math.Cos(yaw)*0.05
	lastPy := py - v*math.Sin(yaw)*0.05
	assert.InDelta(t, lastPx, s.X.AtVec(IdxPx), 0.2)
	assert.InDelta(t, lastPy, s.X.AtVec(IdxPy), 0.2)
	assert.InDelta(t, v, s.X.AtVec(IdxV), 0.5)
	assert.InDelta(t, 0.0, NormalizeAngle(s.X.AtVec(IdxYaw)-yaw), 0.2)
}

func TestFilter_IndependentInstances(t *testing.T) {
	t.Parallel()
	a := newTestFilter(t)
	b := newTestFilter(t)
	_, err := a.ProcessMeasurement(lidar(1, 1, 0))
	require.NoError(t, err)
	_, err = b.ProcessMeasurement(lidar(-4, 2, 0))
	require.NoError(t, err)
	_, err = a.ProcessMeasurement(lidar(1.2, 1.1, 100000))
	require.NoError(t, err)

	assert.Equal(t, -4.0, b.State().X.AtVec(IdxPx))
	assert.Equal(t, int64(0), b.State().TimestampUS)
}

func TestFilter_Reset(t *testing.T) {
	t.Parallel()
	f := newTestFilter(t)
	_, err := f.ProcessMeasurement(lidar(1, 1, 0))
	require.NoError(t, err)
	f.Reset()
	assert.False(t, f.Initialized())

	res, err := f.ProcessMeasurement(lidar(7, 8, 5))
	require.NoError(t, err)
	assert.True(t, res.Initialized)
}

func TestFilter_StateIsACopy(t *testing.T) {
	t.Parallel()
	f := newTestFilter(t)
	_, err := f.ProcessMeasurement(lidar(1, 1, 0))
	require.NoError(t, err)

	s := f.State()
	s.X.SetVec(IdxPx, 100)
	s.P.SetSym(0, 0, 100)
	assert.Equal(t, 1.0, f.State().X.AtVec(IdxPx))
	assert.Equal(t, DefaultConfig().InitialCovScale, f.State().P.At(0, 0))
}
