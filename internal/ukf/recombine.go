package ukf

import (
	"gonum.org/v1/gonum/mat"
)

// noAngle marks a distribution without an angular component.
const noAngle = -1

// Recombine reconstructs the weighted mean and covariance of the sigma
// points stored in the columns of points. Row angleIdx (or noAngle) holds
// an angle: its mean is taken over residuals relative to the first point
// and its residuals are wrapped into (-π, π] before the outer products.
func Recombine(points *mat.Dense, weights mat.Vector, angleIdx int) (*mat.VecDense, *mat.SymDense) {
	rows, cols := points.Dims()

	mean := mat.NewVecDense(rows, nil)
	for c := 0; c < cols; c++ {
		mean.AddScaledVec(mean, weights.AtVec(c), points.ColView(c))
	}
	if angleIdx >= 0 {
		ref := points.At(angleIdx, 0)
		var sum float64
		for c := 0; c < cols; c++ {
			sum += weights.AtVec(c) * NormalizeAngle(points.At(angleIdx, c)-ref)
		}
		mean.SetVec(angleIdx, NormalizeAngle(ref+sum))
	}

	cov := mat.NewSymDense(rows, nil)
	diff := mat.NewVecDense(rows, nil)
	for c := 0; c < cols; c++ {
		residual(diff, points.ColView(c), mean, angleIdx)
		cov.SymRankOne(cov, weights.AtVec(c), diff)
	}
	return mean, cov
}

// residual writes a-b into dst, wrapping component angleIdx.
func residual(dst *mat.VecDense, a, b mat.Vector, angleIdx int) {
	dst.SubVec(a, b)
	if angleIdx >= 0 {
		dst.SetVec(angleIdx, NormalizeAngle(dst.AtVec(angleIdx)))
	}
}
