package evaluation

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/sensorfusion/internal/ukf"
)

// Confidence is the chi-squared quantile NIS values are checked against.
const Confidence = 0.95

// NISThreshold returns the chi-squared quantile at Confidence for a
// measurement with dim degrees of freedom: 5.991 for dim 2, 7.815 for dim 3.
func NISThreshold(dim int) float64 {
	return distuv.ChiSquared{K: float64(dim)}.Quantile(Confidence)
}

// NISStats summarises the NIS sequence of one sensor.
type NISStats struct {
	Sensor    ukf.SensorType
	Threshold float64
	Count     int
	Above     int
	Sum       float64
}

// Mean returns the average NIS, which for a consistent filter approaches the
// measurement dimension.
func (s NISStats) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

// FractionAbove returns the share of NIS values beyond Threshold. A
// consistent filter lands near 1-Confidence.
func (s NISStats) FractionAbove() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Above) / float64(s.Count)
}

func (s NISStats) String() string {
	return fmt.Sprintf("%v: n=%d mean=%.3f above χ²(%.3f)=%.1f%%",
		s.Sensor, s.Count, s.Mean(), s.Threshold, 100*s.FractionAbove())
}

// NISTracker accumulates NIS values per sensor.
type NISTracker struct {
	stats map[ukf.SensorType]*NISStats
}

// NewNISTracker returns an empty tracker.
func NewNISTracker() *NISTracker {
	return &NISTracker{stats: make(map[ukf.SensorType]*NISStats)}
}

// Add records one NIS value for sensor s.
func (t *NISTracker) Add(s ukf.SensorType, nis float64) {
	st, ok := t.stats[s]
	if !ok {
		st = &NISStats{Sensor: s, Threshold: NISThreshold(s.Dim())}
		t.stats[s] = st
	}
	st.Count++
	st.Sum += nis
	if nis > st.Threshold {
		st.Above++
	}
}

// Stats returns the summary for sensor s and whether any value was recorded.
func (t *NISTracker) Stats(s ukf.SensorType) (NISStats, bool) {
	st, ok := t.stats[s]
	if !ok {
		return NISStats{Sensor: s, Threshold: NISThreshold(s.Dim())}, false
	}
	return *st, true
}

// All returns the summaries of every sensor seen, lidar first.
func (t *NISTracker) All() []NISStats {
	var out []NISStats
	for _, s := range []ukf.SensorType{ukf.SensorLidar, ukf.SensorRadar} {
		if st, ok := t.stats[s]; ok {
			out = append(out, *st)
		}
	}
	return out
}
