// Package report renders filter runs as a PNG trajectory plot and an HTML
// NIS consistency chart.
package report

import (
	"errors"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/sensorfusion/internal/measurement"
	"github.com/banshee-data/sensorfusion/internal/ukf"
)

// ErrNoEstimates is returned when there is nothing to render.
var ErrNoEstimates = errors.New("report: no estimates")

var (
	estimateColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	truthColor    = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	lidarColor    = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	radarColor    = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// TrajectoryPlot builds the x/y plot of estimated positions against the
// measurements and, where present, ground truth.
func TrajectoryPlot(estimates []measurement.Estimate) (*plot.Plot, error) {
	if len(estimates) == 0 {
		return nil, ErrNoEstimates
	}

	est := make(plotter.XYs, 0, len(estimates))
	truth := make(plotter.XYs, 0, len(estimates))
	var lidarPts, radarPts plotter.XYs

	for _, e := range estimates {
		est = append(est, plotter.XY{X: e.Px, Y: e.Py})
		if e.GroundTruth != nil {
			truth = append(truth, plotter.XY{X: e.GroundTruth.Px, Y: e.GroundTruth.Py})
		}
		switch e.Sensor {
		case ukf.SensorLidar:
			lidarPts = append(lidarPts, plotter.XY{X: e.MeasPx, Y: e.MeasPy})
		case ukf.SensorRadar:
			radarPts = append(radarPts, plotter.XY{X: e.MeasPx, Y: e.MeasPy})
		}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Trajectory (%d measurements)", len(estimates))
	p.X.Label.Text = "px (m)"
	p.Y.Label.Text = "py (m)"
	p.Add(plotter.NewGrid())

	if err := addScatter(p, "lidar", lidarPts, lidarColor, draw.CrossGlyph{}); err != nil {
		return nil, err
	}
	if err := addScatter(p, "radar", radarPts, radarColor, draw.PlusGlyph{}); err != nil {
		return nil, err
	}

	if len(truth) > 0 {
		gtLine, err := plotter.NewLine(truth)
		if err != nil {
			return nil, fmt.Errorf("ground truth line: %w", err)
		}
		gtLine.Color = truthColor
		gtLine.Width = vg.Points(1)
		gtLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(gtLine)
		p.Legend.Add("ground truth", gtLine)
	}

	estLine, err := plotter.NewLine(est)
	if err != nil {
		return nil, fmt.Errorf("estimate line: %w", err)
	}
	estLine.Color = estimateColor
	estLine.Width = vg.Points(1.5)
	p.Add(estLine)
	p.Legend.Add("estimate", estLine)

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	return p, nil
}

func addScatter(p *plot.Plot, name string, pts plotter.XYs, c color.Color, shape draw.GlyphDrawer) error {
	if len(pts) == 0 {
		return nil
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("%s scatter: %w", name, err)
	}
	s.GlyphStyle.Color = c
	s.GlyphStyle.Radius = vg.Points(2)
	s.GlyphStyle.Shape = shape
	p.Add(s)
	p.Legend.Add(name, s)
	return nil
}

// SaveTrajectory renders the trajectory plot to a PNG (or any format
// gonum/plot infers from the file extension).
func SaveTrajectory(estimates []measurement.Estimate, path string) error {
	p, err := TrajectoryPlot(estimates)
	if err != nil {
		return err
	}
	if err := p.Save(10*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("save trajectory plot: %w", err)
	}
	return nil
}
