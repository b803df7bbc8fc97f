package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dataspine/metrics-monitoring/common"
	_ "github.com/mattn/go-sqlite3"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("storage")

// ErrSeriesNotFound signals that the requested series has never been stored
var ErrSeriesNotFound = errors.New("series not found")

// sqliteStorage is the sqlite implementation for datapoint history storage
type sqliteStorage struct {
	db               *sql.DB
	retentionSeconds int
	cancelFunc       context.CancelFunc
	wg               sync.WaitGroup
}

// NewSQLiteStorage creates the database, schema, and starts the retention cleaner
func NewSQLiteStorage(dbPath string, retentionSeconds int) (*sqliteStorage, error) {
	err := prepareDirectories(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create initial empty DB file: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = createSchema(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &sqliteStorage{
		db:               db,
		retentionSeconds: retentionSeconds,
		cancelFunc:       cancel,
	}

	s.startRetentionCleaner(ctx)

	return s, nil
}

func prepareDirectories(dbPath string) error {
	if dbPath == ":memory:" {
		return nil
	}

	return os.MkdirAll(filepath.Dir(dbPath), os.ModePerm)
}

func createSchema(db *sql.DB) error {

	schema := `
	CREATE TABLE IF NOT EXISTS series (
		key       TEXT NOT NULL PRIMARY KEY,
		namespace TEXT NOT NULL,
		name      TEXT NOT NULL,
		tags      TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS datapoints (
		series_key  TEXT NOT NULL REFERENCES series(key) ON DELETE CASCADE,
		value       REAL NOT NULL,
		recorded_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_datapoints_key ON datapoints(series_key);
	CREATE INDEX IF NOT EXISTS idx_datapoints_recorded_at ON datapoints(recorded_at);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	// Make sure ON DELETE CASCADE works if enabled globally
	_, _ = db.Exec("PRAGMA foreign_keys = ON;")

	return nil
}

// SaveDatapoint upserts the series identity and appends the reconciled value
func (s *sqliteStorage) SaveDatapoint(
	ctx context.Context,
	key string,
	namespace string,
	name string,
	tags string,
	value float64,
	recordedAt int64,
) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO series (key, namespace, name, tags)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			namespace=excluded.namespace,
			name=excluded.name,
			tags=excluded.tags
	`, key, namespace, name, tags)
	if err != nil {
		return fmt.Errorf("failed to upsert series: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO datapoints (series_key, value, recorded_at)
		VALUES (?, ?, ?)
	`, key, value, recordedAt)
	if err != nil {
		return fmt.Errorf("failed to insert datapoint: %w", err)
	}

	return tx.Commit()
}

// GetLatestDatapoints fetches the most recent value for each stored series
func (s *sqliteStorage) GetLatestDatapoints(ctx context.Context) ([]common.DatapointHistory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sr.key, sr.namespace, sr.name, sr.tags, d.value, d.recorded_at
		FROM series sr
		LEFT JOIN (
			SELECT series_key, value, recorded_at,
				ROW_NUMBER() OVER(PARTITION BY series_key ORDER BY recorded_at DESC) as rn
			FROM datapoints
		) d ON sr.key = d.series_key AND d.rn = 1
	`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var results []common.DatapointHistory

	for rows.Next() {
		var h common.DatapointHistory
		var val sql.NullFloat64
		var recAt sql.NullInt64

		err = rows.Scan(&h.Key, &h.Namespace, &h.Name, &h.Tags, &val, &recAt)
		if err != nil {
			return nil, err
		}

		if val.Valid {
			h.History = []common.DatapointValue{
				{
					Value:      val.Float64,
					RecordedAt: recAt.Int64,
				},
			}
		}
		results = append(results, h)
	}

	return results, rows.Err()
}

// GetSeriesHistory returns the series identity and all retained values in ascending timestamp order
func (s *sqliteStorage) GetSeriesHistory(ctx context.Context, key string) (*common.DatapointHistory, error) {
	var h common.DatapointHistory

	err := s.db.QueryRowContext(ctx,
		"SELECT key, namespace, name, tags FROM series WHERE key = ?", key,
	).Scan(&h.Key, &h.Namespace, &h.Name, &h.Tags)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSeriesNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT value, recorded_at
		FROM datapoints
		WHERE series_key = ?
		ORDER BY recorded_at
	`, key)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var val float64
		var recAt int64

		err = rows.Scan(&val, &recAt)
		if err != nil {
			return nil, err
		}

		h.History = append(h.History, common.DatapointValue{Value: val, RecordedAt: recAt})
	}

	return &h, rows.Err()
}

// DeleteSeries forcefully deletes a series and all its datapoints from the database
func (s *sqliteStorage) DeleteSeries(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM series WHERE key = ?", key)
	return err
}

// cleanRetainedDatapoints executes the retention cleanup query synchronously
func (s *sqliteStorage) cleanRetainedDatapoints(ctx context.Context) error {
	nowSec := time.Now().Unix()
	cutoff := nowSec - int64(s.retentionSeconds)
	_, err := s.db.ExecContext(ctx, "DELETE FROM datapoints WHERE recorded_at < ?", cutoff)
	return err
}

func (s *sqliteStorage) startRetentionCleaner(ctx context.Context) {
	s.wg.Add(1)

	// max(RetentionSeconds/10, 60)
	intervalSec := s.retentionSeconds / 10
	if intervalSec < 60 {
		intervalSec = 60
	}

	ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)

	go func() {
		defer s.wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				log.Debug("running retention cleanup")

				err := s.cleanRetainedDatapoints(ctx)
				if err != nil {
					log.Warn("failed to cleanup retained datapoints", "error", err)
				}
			}
		}
	}()
}

// Close closes the database and stops background routines
func (s *sqliteStorage) Close() error {
	s.cancelFunc()
	s.wg.Wait()
	return s.db.Close()
}

// IsInterfaceNil returns true if the value under the interface is nil
func (s *sqliteStorage) IsInterfaceNil() bool {
	return s == nil
}
