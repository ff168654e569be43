package ukf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// SigmaWeights returns the SigmaCount weights shared by every
// recombination: λ/(λ+L) for the mean point and 1/(2(λ+L)) for the rest.
func SigmaWeights() *mat.VecDense {
	w := mat.NewVecDense(SigmaCount, nil)
	w.SetVec(0, Lambda/(Lambda+AugmentedDim))
	for i := 1; i < SigmaCount; i++ {
		w.SetVec(i, 1/(2*(Lambda+AugmentedDim)))
	}
	return w
}

// AugmentedSigmaPoints builds the augmented mean and covariance from the
// state (x, p) and the process noise σ values, and returns the
// AugmentedDim×SigmaCount matrix of sigma points in its columns.
func AugmentedSigmaPoints(x mat.Vector, p mat.Symmetric, stdA, stdYawdd float64) (*mat.Dense, error) {
	if x.Len() != StateDim || p.SymmetricDim() != StateDim {
		return nil, fmt.Errorf("ukf: state has dimension %d/%d, want %d", x.Len(), p.SymmetricDim(), StateDim)
	}

	xAug := mat.NewVecDense(AugmentedDim, nil)
	for i := 0; i < StateDim; i++ {
		xAug.SetVec(i, x.AtVec(i))
	}

	pAug := mat.NewSymDense(AugmentedDim, nil)
	for i := 0; i < StateDim; i++ {
		for j := i; j < StateDim; j++ {
			pAug.SetSym(i, j, p.At(i, j))
		}
	}
	pAug.SetSym(IdxNoiseA, IdxNoiseA, stdA*stdA)
	pAug.SetSym(IdxNoiseYawdd, IdxNoiseYawdd, stdYawdd*stdYawdd)

	var chol mat.Cholesky
	if ok := chol.Factorize(pAug); !ok {
		return nil, ErrNotPositiveDefinite
	}
	var l mat.TriDense
	chol.LTo(&l)

	scale := math.Sqrt(Lambda + AugmentedDim)
	sig := mat.NewDense(AugmentedDim, SigmaCount, nil)
	sig.SetCol(0, xAug.RawVector().Data)
	for i := 0; i < AugmentedDim; i++ {
		for r := 0; r < AugmentedDim; r++ {
			d := scale * l.At(r, i)
			sig.Set(r, i+1, xAug.AtVec(r)+d)
			sig.Set(r, i+1+AugmentedDim, xAug.AtVec(r)-d)
		}
	}
	return sig, nil
}
