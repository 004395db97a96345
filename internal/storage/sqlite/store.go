// Package sqlite stores import history in a local SQLite file. It backs the
// hours CLI and single-user server deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/flighthours/internal/core"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Store implements core.ImportHistoryStore on SQLite.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at path and migrates it.
// Use ":memory:" for a throwaway database.
func New(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer at a time; also keeps ":memory:" on a single connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func dsn(path string) string {
	pragmas := "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	if path == ":memory:" {
		return "file::memory:?" + pragmas
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + pragmas + "&_pragma=journal_mode(WAL)"
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS import_history (
			id TEXT PRIMARY KEY,
			import_type TEXT NOT NULL,
			file_name TEXT NOT NULL DEFAULT '',
			flights_imported INTEGER NOT NULL,
			actual_flights INTEGER NOT NULL,
			simulator_flights INTEGER NOT NULL,
			hours_imported TEXT NOT NULL,
			import_date TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create import_history table: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_import_history_date ON import_history(import_date)`)
	if err != nil {
		return fmt.Errorf("failed to create import_history index: %w", err)
	}
	return nil
}

// timeLayout sorts lexically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const selectColumns = `SELECT id, import_type, file_name, flights_imported, actual_flights,
	simulator_flights, hours_imported, import_date, notes FROM import_history`

// Save inserts a snapshot.
func (s *Store) Save(ctx context.Context, snap core.ImportSnapshot) error {
	hours, err := json.Marshal(snap.Hours)
	if err != nil {
		return fmt.Errorf("failed to encode hours: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO import_history
		(id, import_type, file_name, flights_imported, actual_flights, simulator_flights, hours_imported, import_date, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID.String(),
		snap.ImportType,
		snap.FileName,
		snap.FlightCount,
		snap.ActualFlightCount,
		snap.SimulatorFlightCount,
		string(hours),
		snap.Timestamp.UTC().Format(timeLayout),
		snap.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// Latest returns the newest snapshot, or nil when the table is empty.
func (s *Store) Latest(ctx context.Context) (*core.ImportSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY import_date DESC, rowid DESC LIMIT 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest snapshot: %w", err)
	}
	defer rows.Close()

	snaps, err := scanSnapshots(rows)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	return &snaps[0], nil
}

// List returns snapshots newest first.
func (s *Store) List(ctx context.Context, limit, offset int) ([]core.ImportSnapshot, error) {
	limit, offset = core.NormalizePage(limit, offset)

	rows, err := s.db.QueryContext(ctx,
		selectColumns+` ORDER BY import_date DESC, rowid DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// Prune deletes snapshots beyond the newest keep and those imported before
// olderThan, never touching the newest snapshot.
func (s *Store) Prune(ctx context.Context, keep int, olderThan time.Time) (int64, error) {
	var conds []string
	var args []any

	if keep > 0 {
		conds = append(conds, `id NOT IN (SELECT id FROM import_history ORDER BY import_date DESC, rowid DESC LIMIT ?)`)
		args = append(args, keep)
	}
	if !olderThan.IsZero() {
		conds = append(conds, `import_date < ?`)
		args = append(args, olderThan.UTC().Format(timeLayout))
	}
	if len(conds) == 0 {
		return 0, nil
	}

	query := `DELETE FROM import_history
		WHERE id <> (SELECT id FROM import_history ORDER BY import_date DESC, rowid DESC LIMIT 1)
		AND (` + strings.Join(conds, " OR ") + `)`

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	return result.RowsAffected()
}

func scanSnapshots(rows *sql.Rows) ([]core.ImportSnapshot, error) {
	var out []core.ImportSnapshot
	for rows.Next() {
		var (
			id, hours, importDate string
			snap                  core.ImportSnapshot
		)
		err := rows.Scan(
			&id, &snap.ImportType, &snap.FileName,
			&snap.FlightCount, &snap.ActualFlightCount, &snap.SimulatorFlightCount,
			&hours, &importDate, &snap.Notes,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}

		if snap.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid snapshot id %q: %w", id, err)
		}
		if err := json.Unmarshal([]byte(hours), &snap.Hours); err != nil {
			return nil, fmt.Errorf("failed to decode hours for %s: %w", id, err)
		}
		if snap.Timestamp, err = time.Parse(time.RFC3339Nano, importDate); err != nil {
			return nil, fmt.Errorf("invalid import date %q: %w", importDate, err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}
