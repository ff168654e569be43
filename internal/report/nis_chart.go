package report

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/sensorfusion/internal/evaluation"
	"github.com/banshee-data/sensorfusion/internal/measurement"
	"github.com/banshee-data/sensorfusion/internal/ukf"
)

// NISChart builds a line chart of the NIS sequence of one sensor with its
// 95% chi-squared threshold. Estimates that did not run an update
// (initialisation or a disabled sensor) are left out. It returns nil when the
// sensor has no updates.
func NISChart(s ukf.SensorType, estimates []measurement.Estimate) *charts.Line {
	threshold := evaluation.NISThreshold(s.Dim())

	var (
		x     []int
		y     []opts.LineData
		above int
	)
	for i, e := range estimates {
		if e.Sensor != s || !e.Updated() {
			continue
		}
		x = append(x, i)
		y = append(y, opts.LineData{Value: e.NIS})
		if e.NIS > threshold {
			above++
		}
	}
	if len(y) == 0 {
		return nil
	}

	name := sensorName(s)
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "NIS", Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s NIS", name),
			Subtitle: fmt.Sprintf("n=%d above χ²₀.₉₅(%d)=%.3f: %.1f%%", len(y), s.Dim(), threshold, 100*float64(above)/float64(len(y))),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "measurement", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "NIS"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(x).
		AddSeries(name, y,
			charts.WithMarkLineNameYAxisItemOpts(opts.MarkLineNameYAxisItem{Name: "95%", YAxis: threshold}),
		)
	return line
}

// WriteNISReport renders an HTML page with one NIS chart per sensor.
func WriteNISReport(w io.Writer, estimates []measurement.Estimate) error {
	if len(estimates) == 0 {
		return ErrNoEstimates
	}

	page := components.NewPage()
	page.PageTitle = "NIS consistency"
	for _, s := range []ukf.SensorType{ukf.SensorLidar, ukf.SensorRadar} {
		if c := NISChart(s, estimates); c != nil {
			page.AddCharts(c)
		}
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("render NIS report: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// SaveNISReport writes the NIS report to path.
func SaveNISReport(estimates []measurement.Estimate, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteNISReport(f, estimates); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func sensorName(s ukf.SensorType) string {
	switch s {
	case ukf.SensorLidar:
		return "Lidar"
	case ukf.SensorRadar:
		return "Radar"
	default:
		return s.String()
	}
}
