package ukf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// normalizeLoop is the iterative wrap the closed form must agree with.
func normalizeLoop(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

func TestNormalizeAngle_Range(t *testing.T) {
	t.Parallel()
	for theta := -50.0; theta <= 50.0; theta += 0.173 {
		got := NormalizeAngle(theta)
		assert.Greater(t, got, -math.Pi, "theta=%v", theta)
		assert.LessOrEqual(t, got, math.Pi, "theta=%v", theta)
	}
}

func TestNormalizeAngle_Boundaries(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0.0, NormalizeAngle(0))
	assert.InDelta(t, math.Pi, NormalizeAngle(math.Pi), 1e-12)
	assert.InDelta(t, math.Pi, NormalizeAngle(-math.Pi), 1e-12)
	assert.InDelta(t, 0.5, NormalizeAngle(0.5+2*math.Pi), 1e-12)
	assert.InDelta(t, -0.5, NormalizeAngle(-0.5-4*math.Pi), 1e-12)
	assert.InDelta(t, math.Pi/2, NormalizeAngle(-1.5*math.Pi), 1e-12)
	assert.True(t, math.IsNaN(NormalizeAngle(math.NaN())))
	assert.True(t, math.IsInf(NormalizeAngle(math.Inf(1)), 1))
}

func TestNormalizeAngle_Periodic(t *testing.T) {
	t.Parallel()
	for theta := -3.0; theta <= 3.0; theta += 0.25 {
		want := NormalizeAngle(theta)
		for k := -3; k <= 3; k++ {
			got := NormalizeAngle(theta + 2*math.Pi*float64(k))
			assert.InDelta(t, want, got, 1e-9, "theta=%v k=%d", theta, k)
		}
	}
}

func TestNormalizeAngle_Idempotent(t *testing.T) {
	t.Parallel()
	for theta := -20.0; theta <= 20.0; theta += 0.37 {
		once := NormalizeAngle(theta)
		assert.Equal(t, once, NormalizeAngle(once), "theta=%v", theta)
	}
}

func TestNormalizeAngle_MatchesLoop(t *testing.T) {
	t.Parallel()
	for theta := -20.0; theta <= 20.0; theta += 0.37 {
		assert.InDelta(t, normalizeLoop(theta), NormalizeAngle(theta), 1e-9, "theta=%v", theta)
	}
}
