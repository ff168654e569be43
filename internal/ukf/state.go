package ukf

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// State vector layout: [px, py, v, yaw, yawd].
const (
	IdxPx = iota
	IdxPy
	IdxV
	IdxYaw
	IdxYawRate

	StateDim = 5
)

// Augmented layout appends the two process-noise terms to the state.
const (
	IdxNoiseA = StateDim + iota
	IdxNoiseYawdd

	AugmentedDim = StateDim + 2
	SigmaCount   = 2*AugmentedDim + 1
)

// Lambda is the sigma-point spreading parameter.
const Lambda = 3.0 - AugmentedDim

// State is a Gaussian estimate of the object's kinematics.
type State struct {
	X           *mat.VecDense // mean, length StateDim
	P           *mat.SymDense // covariance, StateDim×StateDim
	TimestampUS int64         // time the estimate is valid at
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := State{TimestampUS: s.TimestampUS}
	if s.X != nil {
		out.X = mat.VecDenseCopyOf(s.X)
	}
	if s.P != nil {
		out.P = mat.NewSymDense(s.P.SymmetricDim(), nil)
		out.P.CopySym(s.P)
	}
	return out
}

// Trace returns the sum of the covariance diagonal.
func (s State) Trace() float64 {
	if s.P == nil {
		return 0
	}
	return mat.Trace(s.P)
}

// IsFinite reports whether every mean and covariance entry is finite.
func (s State) IsFinite() bool {
	for i := 0; i < s.X.Len(); i++ {
		if !finite(s.X.AtVec(i)) {
			return false
		}
	}
	n := s.P.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if !finite(s.P.At(i, j)) {
				return false
			}
		}
	}
	return true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// symmetrize folds a square matrix into a SymDense using (A + Aᵀ)/2.
func symmetrize(a mat.Matrix) *mat.SymDense {
	n, _ := a.Dims()
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, 0.5*(a.At(i, j)+a.At(j, i)))
		}
	}
	return s
}
