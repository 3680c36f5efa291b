package subscribers

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/vulntor/sslprint/pkg/output"
)

// SQLite stores observations in a SQLite database via modernc.org/sqlite
// (pure Go).
type SQLite struct {
	db     *sql.DB
	insert *sql.Stmt
	logger zerolog.Logger
}

// NewSQLite opens (or creates) the database at dbPath and prepares the
// observations table. Use ":memory:" for testing.
func NewSQLite(dbPath string, logger zerolog.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	// a single connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping database: %w", err)
	}

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS observations (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT NOT NULL DEFAULT '',
			observed   TEXT NOT NULL,
			client     TEXT NOT NULL,
			server     TEXT NOT NULL,
			module     TEXT NOT NULL,
			kind       TEXT NOT NULL DEFAULT '',
			label      TEXT NOT NULL DEFAULT '',
			generic    INTEGER NOT NULL DEFAULT 0,
			match_sig  TEXT NOT NULL DEFAULT '',
			drift      INTEGER,
			raw_sig    TEXT NOT NULL
		);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: create table: %w", err)
	}

	createIndexSQL := `
		CREATE INDEX IF NOT EXISTS idx_observations_raw_sig ON observations(raw_sig);
	`
	if _, err := db.Exec(createIndexSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: create index: %w", err)
	}

	insert, err := db.Prepare(`
		INSERT INTO observations (run_id, observed, client, server, module, kind, label, generic, match_sig, drift, raw_sig)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: prepare insert: %w", err)
	}

	return &SQLite{
		db:     db,
		insert: insert,
		logger: logger.With().Str("component", "output.sqlite").Logger(),
	}, nil
}

// Name returns the subscriber identifier.
func (s *SQLite) Name() string { return "sqlite-subscriber" }

// ShouldHandle accepts every observation.
func (s *SQLite) ShouldHandle(output.Observation) bool { return true }

// Handle inserts obs. Failures are logged; capture keeps going.
func (s *SQLite) Handle(obs output.Observation) {
	if err := s.Save(context.Background(), obs); err != nil {
		s.logger.Error().Err(err).Str("raw_sig", obs.RawSig).Msg("failed to store observation")
	}
}

// Save inserts one observation.
func (s *SQLite) Save(ctx context.Context, obs output.Observation) error {
	var drift sql.NullInt64
	if obs.Drift != nil {
		drift = sql.NullInt64{Int64: *obs.Drift, Valid: true}
	}

	_, err := s.insert.ExecContext(ctx,
		obs.RunID,
		obs.Time.UTC().Format(time.RFC3339Nano),
		obs.Client,
		obs.Server,
		obs.Module,
		obs.Kind,
		obs.Label,
		obs.Generic,
		obs.MatchSig,
		drift,
		obs.RawSig,
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert observation: %w", err)
	}
	return nil
}

// List returns observations for runID (all runs when empty), oldest first.
func (s *SQLite) List(ctx context.Context, runID string) ([]output.Observation, error) {
	query := `
		SELECT run_id, observed, client, server, module, kind, label, generic, match_sig, drift, raw_sig
		FROM observations
		WHERE ? = '' OR run_id = ?
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, runID, runID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query observations: %w", err)
	}
	defer rows.Close()

	var out []output.Observation
	for rows.Next() {
		var (
			obs      output.Observation
			observed string
			drift    sql.NullInt64
		)
		if err := rows.Scan(&obs.RunID, &observed, &obs.Client, &obs.Server, &obs.Module,
			&obs.Kind, &obs.Label, &obs.Generic, &obs.MatchSig, &drift, &obs.RawSig); err != nil {
			return nil, fmt.Errorf("sqlite: scan row: %w", err)
		}
		if obs.Time, err = time.Parse(time.RFC3339Nano, observed); err != nil {
			return nil, fmt.Errorf("sqlite: parse time: %w", err)
		}
		if drift.Valid {
			d := drift.Int64
			obs.Drift = &d
		}
		out = append(out, obs)
	}
	return out, rows.Err()
}

// Close releases the database.
func (s *SQLite) Close() error {
	_ = s.insert.Close()
	return s.db.Close()
}
