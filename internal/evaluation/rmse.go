// Package evaluation scores filter output against ground truth and checks
// the statistical consistency of the innovation sequence.
package evaluation

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Components is the number of RMSE components: px, py, vx, vy.
const Components = 4

var (
	// ErrNoSamples is returned when RMSE is requested over an empty set.
	ErrNoSamples = errors.New("evaluation: no samples")
	// ErrSizeMismatch is returned when estimates and ground truth disagree in
	// count or vector length.
	ErrSizeMismatch = errors.New("evaluation: estimate and ground truth sizes differ")
)

// RMSE returns the per-component root-mean-square error between estimates
// and ground truth. Each vector holds [px, py, vx, vy].
func RMSE(estimates, truth [][]float64) ([]float64, error) {
	if len(estimates) == 0 {
		return nil, ErrNoSamples
	}
	if len(estimates) != len(truth) {
		return nil, fmt.Errorf("%w: %d estimates, %d ground truth", ErrSizeMismatch, len(estimates), len(truth))
	}

	var acc Accumulator
	for i := range estimates {
		if err := acc.Add(estimates[i], truth[i]); err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
	}
	return acc.RMSE()
}

// Accumulator computes RMSE incrementally as samples arrive.
// The zero value is ready to use.
type Accumulator struct {
	sumSq [Components]float64
	n     int
}

// Add folds one estimate/ground-truth pair into the running sums.
func (a *Accumulator) Add(estimate, truth []float64) error {
	if len(estimate) != Components || len(truth) != Components {
		return fmt.Errorf("%w: got %d and %d values, want %d", ErrSizeMismatch, len(estimate), len(truth), Components)
	}
	var diff [Components]float64
	floats.SubTo(diff[:], estimate, truth)
	floats.Mul(diff[:], diff[:])
	floats.Add(a.sumSq[:], diff[:])
	a.n++
	return nil
}

// Count returns the number of samples added.
func (a *Accumulator) Count() int { return a.n }

// RMSE returns the current per-component error.
func (a *Accumulator) RMSE() ([]float64, error) {
	if a.n == 0 {
		return nil, ErrNoSamples
	}
	out := make([]float64, Components)
	copy(out, a.sumSq[:])
	floats.Scale(1/float64(a.n), out)
	for i, v := range out {
		out[i] = math.Sqrt(v)
	}
	return out, nil
}
