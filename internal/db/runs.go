package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/sensorfusion/internal/measurement"
	"github.com/banshee-data/sensorfusion/internal/ukf"
)

// ErrRunNotFound is returned when a run ID has no stored row.
var ErrRunNotFound = errors.New("run not found")

// Run is one invocation of the filter over a measurement source.
type Run struct {
	RunID      string          `json:"run_id"`
	Source     string          `json:"source"`
	ParamsJSON json.RawMessage `json:"params_json,omitempty"`
	CreatedAt  int64           `json:"created_at"`
	FinishedAt int64           `json:"finished_at,omitempty"`
	Records    int             `json:"records"`
	Failures   int             `json:"failures"`
	RMSE       []float64       `json:"rmse,omitempty"` // [px, py, vx, vy]; nil without ground truth
}

// CreateRun inserts a new run. If RunID is empty, a UUID is generated.
func (db *DB) CreateRun(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = time.Now().UnixNano()
	}

	var params interface{}
	if len(run.ParamsJSON) > 0 {
		params = string(run.ParamsJSON)
	}

	_, err := db.Exec(`
		INSERT INTO runs (run_id, source, params_json, created_at)
		VALUES (?, ?, ?, ?)`,
		run.RunID, run.Source, params, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stores the totals of a completed run.
func (db *DB) FinishRun(run *Run) error {
	if run.FinishedAt == 0 {
		run.FinishedAt = time.Now().UnixNano()
	}

	rmse := make([]interface{}, 4)
	if run.RMSE != nil {
		if len(run.RMSE) != 4 {
			return fmt.Errorf("rmse has %d components, want 4", len(run.RMSE))
		}
		for i, v := range run.RMSE {
			rmse[i] = v
		}
	}

	res, err := db.Exec(`
		UPDATE runs
		SET finished_at = ?, records = ?, failures = ?,
		    rmse_px = ?, rmse_py = ?, rmse_vx = ?, rmse_vy = ?
		WHERE run_id = ?`,
		run.FinishedAt, run.Records, run.Failures,
		rmse[0], rmse[1], rmse[2], rmse[3],
		run.RunID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.RunID)
	}
	return nil
}

// GetRun returns the run with the given ID.
func (db *DB) GetRun(runID string) (*Run, error) {
	row := db.QueryRow(`
		SELECT run_id, source, params_json, created_at, finished_at, records, failures,
		       rmse_px, rmse_py, rmse_vx, rmse_vy
		FROM runs WHERE run_id = ?`, runID)
	return scanRun(row)
}

// ListRuns returns all runs, most recent first.
func (db *DB) ListRuns() ([]*Run, error) {
	rows, err := db.Query(`
		SELECT run_id, source, params_json, created_at, finished_at, records, failures,
		       rmse_px, rmse_py, rmse_vx, rmse_vy
		FROM runs
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		r          Run
		params     sql.NullString
		finishedAt sql.NullInt64
		rmse       [4]sql.NullFloat64
	)
	err := s.Scan(&r.RunID, &r.Source, &params, &r.CreatedAt, &finishedAt, &r.Records, &r.Failures,
		&rmse[0], &rmse[1], &rmse[2], &rmse[3])
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	if params.Valid {
		r.ParamsJSON = json.RawMessage(params.String)
	}
	r.FinishedAt = finishedAt.Int64
	if rmse[0].Valid {
		r.RMSE = []float64{rmse[0].Float64, rmse[1].Float64, rmse[2].Float64, rmse[3].Float64}
	}
	return &r, nil
}

// RecordEstimates appends estimates to a run in a single transaction.
// Sequence numbers continue from the run's existing rows.
func (db *DB) RecordEstimates(runID string, estimates []measurement.Estimate) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(seq) + 1, 0) FROM estimates WHERE run_id = ?`, runID).Scan(&next); err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO estimates (
			run_id, seq, timestamp_us, sensor, px, py, v, yaw, yaw_rate, nis,
			meas_px, meas_py, initialized, skipped, gt_px, gt_py, gt_vx, gt_vy
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range estimates {
		gt := make([]interface{}, 4)
		if e.GroundTruth != nil {
			for j, v := range e.GroundTruth.Vector() {
				gt[j] = v
			}
		}
		if _, err := stmt.Exec(
			runID, next+i, e.TimestampUS, e.Sensor.String(),
			e.Px, e.Py, e.V, e.Yaw, e.YawRate, e.NIS,
			e.MeasPx, e.MeasPy, e.Initialized, e.Skipped, gt[0], gt[1], gt[2], gt[3],
		); err != nil {
			return fmt.Errorf("insert estimate %d: %w", next+i, err)
		}
	}

	return tx.Commit()
}

// ListEstimates returns the estimates of a run in processing order.
func (db *DB) ListEstimates(runID string) ([]measurement.Estimate, error) {
	rows, err := db.Query(`
		SELECT timestamp_us, sensor, px, py, v, yaw, yaw_rate, nis,
		       meas_px, meas_py, initialized, skipped, gt_px, gt_py, gt_vx, gt_vy
		FROM estimates
		WHERE run_id = ?
		ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query estimates: %w", err)
	}
	defer rows.Close()

	var out []measurement.Estimate
	for rows.Next() {
		var (
			e      measurement.Estimate
			sensor string
			gt     [4]sql.NullFloat64
		)
		if err := rows.Scan(&e.TimestampUS, &sensor, &e.Px, &e.Py, &e.V, &e.Yaw, &e.YawRate, &e.NIS,
			&e.MeasPx, &e.MeasPy, &e.Initialized, &e.Skipped, &gt[0], &gt[1], &gt[2], &gt[3]); err != nil {
			return nil, fmt.Errorf("scan estimate: %w", err)
		}
		if e.Sensor, err = ukf.ParseSensorType(sensor); err != nil {
			return nil, err
		}
		if gt[0].Valid {
			e.GroundTruth = &measurement.GroundTruth{
				Px: gt[0].Float64, Py: gt[1].Float64, Vx: gt[2].Float64, Vy: gt[3].Float64,
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
