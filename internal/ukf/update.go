package ukf

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// UpdateState applies the Kalman correction for measurement z to the
// predicted state (x, p) whose sigma points are xsigPred. It returns the
// corrected mean and covariance together with the NIS of the innovation.
// The inputs are not modified.
func UpdateState(x *mat.VecDense, p *mat.SymDense, xsigPred *mat.Dense, weights mat.Vector, pm PredictedMeasurement, z mat.Vector) (*mat.VecDense, *mat.SymDense, float64, error) {
	nz := pm.Mean.Len()
	if z.Len() != nz {
		return nil, nil, 0, fmt.Errorf("%w: measurement has %d values, want %d", ErrInvalidMeasurement, z.Len(), nz)
	}

	// Cross-covariance Tc = Σ wᵢ (Xᵢ - x)(Zᵢ - z̄)ᵀ
	tc := mat.NewDense(StateDim, nz, nil)
	xDiff := mat.NewVecDense(StateDim, nil)
	zDiff := mat.NewVecDense(nz, nil)
	_, cols := xsigPred.Dims()
	for c := 0; c < cols; c++ {
		residual(xDiff, xsigPred.ColView(c), x, IdxYaw)
		residual(zDiff, pm.Zsig.ColView(c), pm.Mean, pm.AngleIdx)
		tc.RankOne(tc, weights.AtVec(c), xDiff, zDiff)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(pm.S); !ok {
		return nil, nil, 0, ErrSingularInnovation
	}
	var sInv mat.SymDense
	if err := chol.InverseTo(&sInv); err != nil {
		return nil, nil, 0, fmt.Errorf("%w: %v", ErrSingularInnovation, err)
	}

	var k mat.Dense
	k.Mul(tc, &sInv)

	y := mat.NewVecDense(nz, nil)
	residual(y, z, pm.Mean, pm.AngleIdx)

	xNew := mat.NewVecDense(StateDim, nil)
	xNew.MulVec(&k, y)
	xNew.AddVec(xNew, x)

	var ks, kskt mat.Dense
	ks.Mul(&k, pm.S)
	kskt.Mul(&ks, k.T())
	var pDense mat.Dense
	pDense.Sub(p, &kskt)

	nis, err := NIS(y, pm.S)
	if err != nil {
		return nil, nil, 0, err
	}
	return xNew, symmetrize(&pDense), nis, nil
}

// NIS returns the normalized innovation squared residualᵀ·S⁻¹·residual.
func NIS(residual mat.Vector, s mat.Symmetric) (float64, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(s); !ok {
		return 0, ErrSingularInnovation
	}
	var sol mat.VecDense
	if err := chol.SolveVecTo(&sol, residual); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSingularInnovation, err)
	}
	return mat.Dot(residual, &sol), nil
}
