package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lox/sunspots/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// InsertForecastRun stores a run and its points in one transaction and
// returns the new run ID.
func (s *Store) InsertForecastRun(run models.ForecastRun, points []models.ForecastRunPoint) (int64, error) {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	if run.Phase == "" {
		run.Phase = "unknown"
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO forecast_runs (source, created_at, period, fourier_order, changepoint_prior_scale,
			horizon, history_rows, forecast_rows, residual_count,
			residual_mean, residual_std, residual_min, residual_q1, residual_median, residual_q3, residual_max,
			phase, snapshot_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.Source, run.CreatedAt.UTC(), run.Period, run.FourierOrder, run.ChangepointPriorScale,
		run.Horizon, run.HistoryRows, run.ForecastRows, run.ResidualCount,
		run.ResidualMean, run.ResidualStd, run.ResidualMin, run.ResidualQ1, run.ResidualMedian, run.ResidualQ3, run.ResidualMax,
		run.Phase, run.SnapshotID)
	if err != nil {
		return 0, fmt.Errorf("insert forecast run: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO forecast_points (run_id, date, yhat, yhat_lower, yhat_upper, actual)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare points: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.Exec(id, p.Date.Format("2006-01-02"), p.Yhat, p.Lower, p.Upper, p.Actual); err != nil {
			return 0, fmt.Errorf("insert point %s: %w", p.Date.Format("2006-01-02"), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit forecast run: %w", err)
	}
	return id, nil
}

const runColumns = `id, source, created_at, period, fourier_order, changepoint_prior_scale,
	horizon, history_rows, forecast_rows, residual_count,
	residual_mean, residual_std, residual_min, residual_q1, residual_median, residual_q3, residual_max,
	phase, snapshot_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (models.ForecastRun, error) {
	var r models.ForecastRun
	err := row.Scan(&r.ID, &r.Source, &r.CreatedAt, &r.Period, &r.FourierOrder, &r.ChangepointPriorScale,
		&r.Horizon, &r.HistoryRows, &r.ForecastRows, &r.ResidualCount,
		&r.ResidualMean, &r.ResidualStd, &r.ResidualMin, &r.ResidualQ1, &r.ResidualMedian, &r.ResidualQ3, &r.ResidualMax,
		&r.Phase, &r.SnapshotID)
	return r, err
}

// ListForecastRuns returns the most recent runs first.
func (s *Store) ListForecastRuns(limit int) ([]models.ForecastRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM forecast_runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.ForecastRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetForecastRun returns nil when no run has the given ID.
func (s *Store) GetForecastRun(id int64) (*models.ForecastRun, error) {
	r, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM forecast_runs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetLatestForecastRun returns the newest run, or nil when none exist.
func (s *Store) GetLatestForecastRun() (*models.ForecastRun, error) {
	r, err := scanRun(s.db.QueryRow(`SELECT ` + runColumns + ` FROM forecast_runs ORDER BY created_at DESC, id DESC LIMIT 1`))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetForecastRunPoints returns a run's points ordered by date.
func (s *Store) GetForecastRunPoints(runID int64) ([]models.ForecastRunPoint, error) {
	rows, err := s.db.Query(`
		SELECT run_id, date, yhat, yhat_lower, yhat_upper, actual
		FROM forecast_points
		WHERE run_id = ?
		ORDER BY date
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []models.ForecastRunPoint
	for rows.Next() {
		var p models.ForecastRunPoint
		var date string
		if err := rows.Scan(&p.RunID, &date, &p.Yhat, &p.Lower, &p.Upper, &p.Actual); err != nil {
			return nil, err
		}
		p.Date, err = parseDate(date)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// DeleteForecastRun removes a run and its points. Returns false when the
// run did not exist.
func (s *Store) DeleteForecastRun(id int64) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM forecast_points WHERE run_id = ?`, id); err != nil {
		return false, fmt.Errorf("delete points: %w", err)
	}
	result, err := tx.Exec(`DELETE FROM forecast_runs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, tx.Commit()
}

// parseDate accepts the plain date we write and the timestamp form the
// driver returns for DATE columns.
func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05-07:00", "2006-01-02T15:04:05Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse date %q", s)
}
