package ukf

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// rangeEpsilon is the range below which radar range-rate is forced to zero.
const rangeEpsilon = 1e-4

// sensorModel maps predicted state sigma points into one sensor's
// measurement space. The set of implementations is closed: lidarModel and
// radarModel, selected once per cycle by modelFor.
type sensorModel interface {
	dim() int
	angleIndex() int
	project(xsig *mat.Dense) *mat.Dense
	noise() *mat.SymDense
}

func modelFor(s SensorType, cfg Config) sensorModel {
	switch s {
	case SensorLidar:
		return lidarModel{stdPx: cfg.StdLaserPx, stdPy: cfg.StdLaserPy}
	case SensorRadar:
		return radarModel{stdR: cfg.StdRadarR, stdPhi: cfg.StdRadarPhi, stdRd: cfg.StdRadarRd}
	default:
		return nil
	}
}

type lidarModel struct {
	stdPx, stdPy float64
}

func (lidarModel) dim() int        { return 2 }
func (lidarModel) angleIndex() int { return noAngle }

func (lidarModel) project(xsig *mat.Dense) *mat.Dense {
	_, cols := xsig.Dims()
	z := mat.NewDense(2, cols, nil)
	z.Copy(xsig.Slice(IdxPx, IdxPy+1, 0, cols))
	return z
}

func (m lidarModel) noise() *mat.SymDense {
	return mat.NewSymDense(2, []float64{
		m.stdPx * m.stdPx, 0,
		0, m.stdPy * m.stdPy,
	})
}

// Radar measurement layout: [range, bearing, range-rate].
const (
	idxRange = iota
	idxBearing
	idxRangeRate
)

type radarModel struct {
	stdR, stdPhi, stdRd float64
}

func (radarModel) dim() int        { return 3 }
func (radarModel) angleIndex() int { return idxBearing }

func (radarModel) project(xsig *mat.Dense) *mat.Dense {
	_, cols := xsig.Dims()
	z := mat.NewDense(3, cols, nil)
	for c := 0; c < cols; c++ {
		r, phi, rd := toPolar(
			xsig.At(IdxPx, c), xsig.At(IdxPy, c),
			xsig.At(IdxV, c), xsig.At(IdxYaw, c),
		)
		z.Set(idxRange, c, r)
		z.Set(idxBearing, c, phi)
		z.Set(idxRangeRate, c, rd)
	}
	return z
}

func (m radarModel) noise() *mat.SymDense {
	return mat.NewSymDense(3, []float64{
		m.stdR * m.stdR, 0, 0,
		0, m.stdPhi * m.stdPhi, 0,
		0, 0, m.stdRd * m.stdRd,
	})
}

// toPolar converts a CTRV position/speed/heading into radar space.
func toPolar(px, py, v, yaw float64) (r, phi, rd float64) {
	r = math.Hypot(px, py)
	phi = math.Atan2(py, px)
	if math.Abs(r) > rangeEpsilon {
		rd = (px*v*math.Cos(yaw) + py*v*math.Sin(yaw)) / r
	}
	return r, phi, rd
}

// PredictedMeasurement is the measurement-space distribution of one cycle.
type PredictedMeasurement struct {
	Zsig     *mat.Dense    // measurement-space sigma points
	Mean     *mat.VecDense // predicted measurement
	S        *mat.SymDense // innovation covariance, sensor noise included
	AngleIdx int           // angular row of Zsig, or -1
}

// PredictMeasurement projects the predicted state sigma points into the
// sensor's measurement space and recombines them, adding the sensor noise R.
func PredictMeasurement(s SensorType, cfg Config, xsigPred *mat.Dense, weights mat.Vector) PredictedMeasurement {
	model := modelFor(s, cfg)
	zsig := model.project(xsigPred)
	mean, cov := Recombine(zsig, weights, model.angleIndex())
	cov.AddSym(cov, model.noise())
	return PredictedMeasurement{
		Zsig:     zsig,
		Mean:     mean,
		S:        cov,
		AngleIdx: model.angleIndex(),
	}
}
