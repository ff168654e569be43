package measurement

import (
	"math"
	"testing"

	"github.com/banshee-data/sensorfusion/internal/ukf"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecord(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		want Record
	}{
		{
			name: "lidar without ground truth",
			line: "L\t0.312\t0.58\t1477010443000000",
			want: Record{Measurement: ukf.Measurement{
				Sensor: ukf.SensorLidar, Raw: []float64{0.312, 0.58}, TimestampUS: 1477010443000000,
			}},
		},
		{
			name: "radar with ground truth",
			line: "R 1.014 0.554 4.892 1477010443050000 0.86 0.6 5.19 0.01",
			want: Record{
				Measurement: ukf.Measurement{
					Sensor: ukf.SensorRadar, Raw: []float64{1.014, 0.554, 4.892}, TimestampUS: 1477010443050000,
				},
				GroundTruth: &GroundTruth{Px: 0.86, Py: 0.6, Vx: 5.19, Vy: 0.01},
			},
		},
		{
			name: "lowercase tag and extra whitespace",
			line: "  l   1  -2   10  ",
			want: Record{Measurement: ukf.Measurement{
				Sensor: ukf.SensorLidar, Raw: []float64{1, -2}, TimestampUS: 10,
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRecord(tt.line)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseRecord(%q) mismatch (-want +got):\n%s", tt.line, diff)
			}
		})
	}
}

func TestParseRecord_Errors(t *testing.T) {
	t.Parallel()

	for _, line := range []string{
		"",
		"X 1 2 3",
		"L 1 2",                 // missing timestamp
		"L 1 2 3 4",             // partial ground truth
		"R 1 2 100",             // radar short a value
		"L a 2 100",             // bad number
		"L 1 2 1.5",             // fractional timestamp
		"L NaN 2 100",           // non-finite
		"R 1 2 3 100 1 2 3 inf", // non-finite ground truth
	} {
		_, err := ParseRecord(line)
		assert.ErrorIs(t, err, ukf.ErrInvalidMeasurement, "line %q", line)
	}
}

func TestRecord_StringRoundTrip(t *testing.T) {
	t.Parallel()

	rec := Record{
		Measurement: ukf.Measurement{Sensor: ukf.SensorRadar, Raw: []float64{8.5, -0.25, 1.125}, TimestampUS: 1234},
		GroundTruth: &GroundTruth{Px: 8, Py: -2, Vx: 1, Vy: 0.5},
	}
	assert.Equal(t, "R\t8.5\t-0.25\t1.125\t1234\t8\t-2\t1\t0.5", rec.String())

	back, err := ParseRecord(rec.String())
	require.NoError(t, err)
	assert.Equal(t, rec, back)
}

func TestRecord_Position(t *testing.T) {
	t.Parallel()

	lidar := Record{Measurement: ukf.Measurement{Sensor: ukf.SensorLidar, Raw: []float64{3, 4}}}
	px, py := lidar.Position()
	assert.Equal(t, 3.0, px)
	assert.Equal(t, 4.0, py)

	radar := Record{Measurement: ukf.Measurement{Sensor: ukf.SensorRadar, Raw: []float64{2, math.Pi / 2, 0}}}
	px, py = radar.Position()
	assert.InDelta(t, 0, px, 1e-12)
	assert.InDelta(t, 2, py, 1e-12)
}
