// Package postgres stores import history in PostgreSQL through pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/flighthours/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

const schema = `
CREATE TABLE IF NOT EXISTS import_history (
	id UUID PRIMARY KEY,
	import_type TEXT NOT NULL,
	file_name TEXT NOT NULL DEFAULT '',
	flights_imported INTEGER NOT NULL,
	actual_flights INTEGER NOT NULL,
	simulator_flights INTEGER NOT NULL,
	hours_imported JSONB NOT NULL,
	import_date TIMESTAMPTZ NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	seq BIGSERIAL
);
ALTER TABLE import_history ADD COLUMN IF NOT EXISTS seq BIGSERIAL;
DROP INDEX IF EXISTS idx_import_history_date;
CREATE INDEX IF NOT EXISTS idx_import_history_order ON import_history (import_date DESC, seq DESC);
`

// newestFirst orders snapshots by import time, then by insertion order for
// snapshots saved within the same instant.
const newestFirst = ` ORDER BY import_date DESC, seq DESC`

const selectColumns = `SELECT id, import_type, file_name, flights_imported, actual_flights,
	simulator_flights, hours_imported, import_date, notes FROM import_history`

// Store implements core.ImportHistoryStore on PostgreSQL.
type Store struct {
	db DBTX
}

// New wraps a pool or transaction.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the import_history table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create import_history: %w", err)
	}
	return nil
}

// Save inserts a snapshot.
func (s *Store) Save(ctx context.Context, snap core.ImportSnapshot) error {
	hours, err := json.Marshal(snap.Hours)
	if err != nil {
		return fmt.Errorf("encode hours: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO import_history
		(id, import_type, file_name, flights_imported, actual_flights, simulator_flights, hours_imported, import_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		pgtype.UUID{Bytes: snap.ID, Valid: true},
		snap.ImportType,
		snap.FileName,
		int32(snap.FlightCount),
		int32(snap.ActualFlightCount),
		int32(snap.SimulatorFlightCount),
		hours,
		pgtype.Timestamptz{Time: snap.Timestamp.UTC(), Valid: true},
		snap.Notes,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// Latest returns the newest snapshot, or nil when there is none.
func (s *Store) Latest(ctx context.Context) (*core.ImportSnapshot, error) {
	row := s.db.QueryRow(ctx, selectColumns+newestFirst+` LIMIT 1`)

	snap, err := scanSnapshot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	return snap, nil
}

// List returns snapshots newest first.
func (s *Store) List(ctx context.Context, limit, offset int) ([]core.ImportSnapshot, error) {
	limit, offset = core.NormalizePage(limit, offset)

	rows, err := s.db.Query(ctx,
		selectColumns+newestFirst+` LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	out := make([]core.ImportSnapshot, 0, limit)
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, *snap)
	}
	return out, rows.Err()
}

// Prune deletes snapshots beyond the newest keep and those imported before
// olderThan, never touching the newest snapshot.
func (s *Store) Prune(ctx context.Context, keep int, olderThan time.Time) (int64, error) {
	query, args := pruneQuery(keep, olderThan)
	if query == "" {
		return 0, nil
	}

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}

func pruneQuery(keep int, olderThan time.Time) (string, []any) {
	var conds []string
	var args []any

	if keep > 0 {
		args = append(args, keep)
		conds = append(conds, fmt.Sprintf(
			"id NOT IN (SELECT id FROM import_history"+newestFirst+" LIMIT $%d)", len(args)))
	}
	if !olderThan.IsZero() {
		args = append(args, pgtype.Timestamptz{Time: olderThan.UTC(), Valid: true})
		conds = append(conds, fmt.Sprintf("import_date < $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}

	query := `DELETE FROM import_history
		WHERE id <> (SELECT id FROM import_history` + newestFirst + ` LIMIT 1)
		AND (` + strings.Join(conds, " OR ") + `)`
	return query, args
}

// Ping verifies the connection when the underlying DBTX supports it.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.db.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	var one int
	return s.db.QueryRow(ctx, "SELECT 1").Scan(&one)
}

func scanSnapshot(row pgx.Row) (*core.ImportSnapshot, error) {
	var (
		id         pgtype.UUID
		importType string
		fileName   string
		flights    int32
		actual     int32
		simulator  int32
		hours      []byte
		importDate pgtype.Timestamptz
		notes      string
	)

	err := row.Scan(&id, &importType, &fileName, &flights, &actual, &simulator, &hours, &importDate, &notes)
	if err != nil {
		return nil, err
	}

	snap := &core.ImportSnapshot{
		ID:                   uuid.UUID(id.Bytes),
		ImportType:           importType,
		FileName:             fileName,
		FlightCount:          int(flights),
		ActualFlightCount:    int(actual),
		SimulatorFlightCount: int(simulator),
		Notes:                notes,
		Timestamp:            importDate.Time.UTC(),
	}
	if err := json.Unmarshal(hours, &snap.Hours); err != nil {
		return nil, fmt.Errorf("decode hours: %w", err)
	}
	return snap, nil
}
