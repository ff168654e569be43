package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/banshee-data/sensorfusion/internal/config"
	"github.com/banshee-data/sensorfusion/internal/db"
	"github.com/banshee-data/sensorfusion/internal/evaluation"
	"github.com/banshee-data/sensorfusion/internal/measurement"
	"github.com/banshee-data/sensorfusion/internal/monitoring"
	"github.com/banshee-data/sensorfusion/internal/report"
	"github.com/banshee-data/sensorfusion/internal/ukf"
	"github.com/banshee-data/sensorfusion/internal/version"
)

type options struct {
	InPath     string
	OutPath    string
	ConfigPath string
	DBPath     string
	PlotDir    string
	SerialPort string
	BaudRate   int
	BatchSize  int
	Quiet      bool
}

// summary is what a run reports once the source is exhausted.
type summary struct {
	RunID     string
	Processed int
	Skipped   int
	Failures  int
	RMSE      []float64 // nil when no record carried ground truth
	NIS       []evaluation.NISStats
}

func (s summary) log() {
	monitoring.Logf("%s", version.String())
	monitoring.Logf("processed=%d skipped=%d failures=%d", s.Processed, s.Skipped, s.Failures)
	if s.RunID != "" {
		monitoring.Logf("run_id=%s", s.RunID)
	}
	if s.RMSE != nil {
		monitoring.Logf("RMSE px=%.4f py=%.4f vx=%.4f vy=%.4f", s.RMSE[0], s.RMSE[1], s.RMSE[2], s.RMSE[3])
	}
	for _, st := range s.NIS {
		monitoring.Logf("NIS %s", st)
	}
}

func loadTuning(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.DefaultTuningConfig(), nil
	}
	return config.LoadTuningConfig(path)
}

func openSource(opts options) (io.ReadCloser, string, error) {
	switch {
	case opts.SerialPort != "":
		port, err := measurement.OpenSerial(opts.SerialPort, measurement.PortOptions{BaudRate: opts.BaudRate})
		return port, "serial:" + opts.SerialPort, err
	case opts.InPath == "-":
		return io.NopCloser(os.Stdin), "stdin", nil
	default:
		f, err := os.Open(opts.InPath)
		return f, opts.InPath, err
	}
}

// run drives the filter over the configured source one record at a time.
func run(ctx context.Context, opts options, stdout io.Writer) (summary, error) {
	var sum summary

	tuning, err := loadTuning(opts.ConfigPath)
	if err != nil {
		return sum, fmt.Errorf("load config: %w", err)
	}
	filter, err := ukf.NewFilter(ukf.ConfigFromTuning(tuning))
	if err != nil {
		return sum, err
	}
	if !opts.Quiet {
		monitoring.Logf("filter config: %+v", filter.Config())
	}

	src, srcName, err := openSource(opts)
	if err != nil {
		return sum, err
	}
	defer src.Close()

	out := stdout
	if opts.OutPath != "" {
		f, err := os.Create(opts.OutPath)
		if err != nil {
			return sum, err
		}
		defer f.Close()
		out = f
	}
	w := measurement.NewWriter(out)

	var rec *recorder
	if opts.DBPath != "" {
		params, err := json.Marshal(tuning)
		if err != nil {
			return sum, fmt.Errorf("encode config: %w", err)
		}
		rec, err = newRecorder(opts.DBPath, srcName, params, opts.BatchSize)
		if err != nil {
			return sum, err
		}
		defer rec.close()
		sum.RunID = rec.run.RunID
	}

	var (
		acc       evaluation.Accumulator
		nis       = evaluation.NewNISTracker()
		estimates []measurement.Estimate
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	records := make(chan measurement.Record)
	streamErr := make(chan error, 1)
	go func() { streamErr <- measurement.Stream(ctx, src, records) }()

	for r := range records {
		res, err := filter.ProcessMeasurement(r.Measurement)
		if err != nil {
			sum.Failures++
			if !opts.Quiet {
				monitoring.Logf("skipping %v record at t=%d: %v", r.Measurement.Sensor, r.Measurement.TimestampUS, err)
			}
			continue
		}
		sum.Processed++
		if res.Skipped {
			sum.Skipped++
		}
		e := measurement.NewEstimate(r, res)
		if e.Updated() {
			nis.Add(e.Sensor, e.NIS)
		}
		if err := w.Write(e); err != nil {
			return sum, fmt.Errorf("write estimate: %w", err)
		}
		if e.GroundTruth != nil {
			if err := acc.Add(e.Vector(), e.GroundTruth.Vector()); err != nil {
				return sum, err
			}
		}
		if rec != nil {
			if err := rec.add(e); err != nil {
				return sum, err
			}
		}
		if opts.PlotDir != "" {
			estimates = append(estimates, e)
		}
	}
	// Everything processed before a malformed record is kept.
	readErr := <-streamErr
	if errors.Is(readErr, context.Canceled) {
		readErr = nil
	}
	if err := w.Flush(); err != nil {
		return sum, err
	}

	if acc.Count() > 0 {
		sum.RMSE, _ = acc.RMSE()
	}
	sum.NIS = nis.All()

	if rec != nil {
		if err := rec.finish(sum); err != nil {
			return sum, err
		}
	}
	if readErr != nil {
		return sum, fmt.Errorf("read %s: %w", srcName, readErr)
	}

	if opts.PlotDir != "" && len(estimates) > 0 {
		if err := os.MkdirAll(opts.PlotDir, 0o755); err != nil {
			return sum, err
		}
		if err := report.SaveTrajectory(estimates, filepath.Join(opts.PlotDir, "trajectory.png")); err != nil {
			return sum, err
		}
		if err := report.SaveNISReport(estimates, filepath.Join(opts.PlotDir, "nis.html")); err != nil {
			return sum, err
		}
	}

	return sum, nil
}

// recorder batches estimates into the run store.
type recorder struct {
	db      *db.DB
	run     *db.Run
	pending []measurement.Estimate
	batch   int
}

func newRecorder(path, source string, params []byte, batch int) (*recorder, error) {
	store, err := db.NewDB(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	run := &db.Run{Source: source, ParamsJSON: params}
	if err := store.CreateRun(run); err != nil {
		store.Close()
		return nil, err
	}
	if batch <= 0 {
		batch = 1
	}
	return &recorder{db: store, run: run, batch: batch}, nil
}

func (r *recorder) add(e measurement.Estimate) error {
	r.pending = append(r.pending, e)
	if len(r.pending) < r.batch {
		return nil
	}
	return r.flush()
}

func (r *recorder) flush() error {
	if len(r.pending) == 0 {
		return nil
	}
	if err := r.db.RecordEstimates(r.run.RunID, r.pending); err != nil {
		return err
	}
	r.pending = r.pending[:0]
	return nil
}

func (r *recorder) finish(sum summary) error {
	if err := r.flush(); err != nil {
		return err
	}
	r.run.Records = sum.Processed
	r.run.Failures = sum.Failures
	r.run.RMSE = sum.RMSE
	return r.db.FinishRun(r.run)
}

func (r *recorder) close() {
	r.db.Close()
}
