package ukf

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// yawRateEpsilon separates the turning-arc integral from the straight-line
// approximation. Below it the arc form divides by a near-zero turn rate.
const yawRateEpsilon = 0.001

// PropagateCTRV advances one augmented sigma point by dt seconds through
// the CTRV model and returns the StateDim-length result.
func PropagateCTRV(aug mat.Vector, dt float64) *mat.VecDense {
	px := aug.AtVec(IdxPx)
	py := aug.AtVec(IdxPy)
	v := aug.AtVec(IdxV)
	yaw := aug.AtVec(IdxYaw)
	yawd := aug.AtVec(IdxYawRate)
	nuA := aug.AtVec(IdxNoiseA)
	nuYawdd := aug.AtVec(IdxNoiseYawdd)

	var pxP, pyP float64
	if math.Abs(yawd) > yawRateEpsilon {
		pxP = px + v/yawd*(math.Sin(yaw+yawd*dt)-math.Sin(yaw))
		pyP = py + v/yawd*(math.Cos(yaw)-math.Cos(yaw+yawd*dt))
	} else {
		pxP = px + v*math.Cos(yaw)*dt
		pyP = py + v*math.Sin(yaw)*dt
	}

	half := 0.5 * dt * dt
	out := mat.NewVecDense(StateDim, nil)
	out.SetVec(IdxPx, pxP+half*math.Cos(yaw)*nuA)
	out.SetVec(IdxPy, pyP+half*math.Sin(yaw)*nuA)
	out.SetVec(IdxV, v+dt*nuA)
	out.SetVec(IdxYaw, yaw+yawd*dt+half*nuYawdd)
	out.SetVec(IdxYawRate, yawd+dt*nuYawdd)
	return out
}

// PredictSigmaPoints propagates every column of the augmented sigma-point
// matrix and returns the StateDim×SigmaCount predicted points.
func PredictSigmaPoints(xsigAug *mat.Dense, dt float64) *mat.Dense {
	_, cols := xsigAug.Dims()
	pred := mat.NewDense(StateDim, cols, nil)
	for c := 0; c < cols; c++ {
		pred.SetCol(c, PropagateCTRV(xsigAug.ColView(c), dt).RawVector().Data)
	}
	return pred
}
