package store

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/lox/sunspots/internal/models"
)

// Snapshot is a stored copy of the dataset a run was fitted on.
type Snapshot struct {
	ID                int64
	Source            string
	CapturedAt        time.Time
	Rows              int
	PayloadCompressed []byte
	PayloadHash       string
}

// StoreSnapshot stores a compressed dataset payload. Identical payloads are
// stored once; the existing ID is returned for a duplicate.
func (s *Store) StoreSnapshot(source string, rows int, payload []byte) (int64, error) {
	hash := sha256.Sum256(payload)
	hashHex := hex.EncodeToString(hash[:])

	if existing, err := s.GetSnapshotByHash(hashHex); err != nil {
		return 0, fmt.Errorf("lookup snapshot: %w", err)
	} else if existing != nil {
		return existing.ID, nil
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return 0, fmt.Errorf("compress payload: %w", err)
	}
	if err := gz.Close(); err != nil {
		return 0, fmt.Errorf("close gzip: %w", err)
	}

	result, err := s.db.Exec(`
		INSERT INTO dataset_snapshots (source, captured_at, rows, payload_compressed, payload_hash)
		VALUES (?, ?, ?, ?, ?)
	`, source, time.Now().UTC(), rows, buf.Bytes(), hashHex)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	return result.LastInsertId()
}

// GetSnapshot retrieves and decompresses a stored payload by ID.
func (s *Store) GetSnapshot(id int64) ([]byte, error) {
	var compressed []byte
	err := s.db.QueryRow(`SELECT payload_compressed FROM dataset_snapshots WHERE id = ?`, id).
		Scan(&compressed)
	if err != nil {
		return nil, err
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("create gzip reader: %w", err)
	}
	defer gz.Close()

	return io.ReadAll(gz)
}

// GetSnapshotByHash returns nil when no snapshot has the hash.
func (s *Store) GetSnapshotByHash(hash string) (*Snapshot, error) {
	row := s.db.QueryRow(`
		SELECT id, source, captured_at, rows, payload_compressed, payload_hash
		FROM dataset_snapshots WHERE payload_hash = ?
	`, hash)

	var snap Snapshot
	err := row.Scan(&snap.ID, &snap.Source, &snap.CapturedAt, &snap.Rows, &snap.PayloadCompressed, &snap.PayloadHash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// CleanupUnreferencedSnapshots deletes snapshots no run points at.
func (s *Store) CleanupUnreferencedSnapshots() (int64, error) {
	result, err := s.db.Exec(`
		DELETE FROM dataset_snapshots
		WHERE id NOT IN (SELECT snapshot_id FROM forecast_runs WHERE snapshot_id IS NOT NULL)
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// RecordForecastRun stores the dataset snapshot, when given, and then the
// run linked to it.
func (s *Store) RecordForecastRun(run models.ForecastRun, points []models.ForecastRunPoint, snapshot []byte, rows int) (int64, error) {
	if len(snapshot) > 0 {
		id, err := s.StoreSnapshot(run.Source, rows, snapshot)
		if err != nil {
			return 0, err
		}
		run.SnapshotID = sql.NullInt64{Int64: id, Valid: true}
	}
	return s.InsertForecastRun(run, points)
}
