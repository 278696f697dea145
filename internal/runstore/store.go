// Package runstore archives finished runs in a local SQLite database so
// past transcripts and spend can be inspected after the process exits.
package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nogbrian/agentloop/internal/agentic"

	_ "modernc.org/sqlite"
)

// RunMeta is the listing view of an archived run, without the transcript.
type RunMeta struct {
	RunID      string
	Goal       string
	Reason     agentic.TerminationReason
	Turns      int
	CostUSD    float64
	StartedAt  time.Time
	FinishedAt time.Time
}

// Store persists run results.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the archive database and initializes the
// schema.
func NewStore(ctx context.Context, dbPath string) (*Store, error) {
	// WAL mode allows a reader while a run is being archived.
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't support multiple writers well.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id        TEXT PRIMARY KEY,
		goal          TEXT NOT NULL,
		reason        TEXT NOT NULL,
		final_text    TEXT,
		error         TEXT,
		turns         INTEGER NOT NULL,
		input_tokens  INTEGER NOT NULL,
		output_tokens INTEGER NOT NULL,
		total_tokens  INTEGER NOT NULL,
		cost_usd      REAL NOT NULL,
		transcript    TEXT NOT NULL,
		started_at    INTEGER NOT NULL,
		finished_at   INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_reason ON runs(reason);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Save archives one finished run. Saving the same run twice overwrites the
// previous record.
func (s *Store) Save(ctx context.Context, res *agentic.Result) error {
	transcriptJSON, err := json.Marshal(res.Transcript)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	errText := ""
	if res.Err != nil {
		errText = res.Err.Error()
	}

	query := `
		INSERT INTO runs (run_id, goal, reason, final_text, error, turns, input_tokens, output_tokens, total_tokens, cost_usd, transcript, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			reason = excluded.reason,
			final_text = excluded.final_text,
			error = excluded.error,
			turns = excluded.turns,
			input_tokens = excluded.input_tokens,
			output_tokens = excluded.output_tokens,
			total_tokens = excluded.total_tokens,
			cost_usd = excluded.cost_usd,
			transcript = excluded.transcript,
			finished_at = excluded.finished_at
	`

	_, err = s.db.ExecContext(ctx, query,
		res.RunID, res.Goal, string(res.Reason), res.FinalText, errText,
		res.Turns, res.Totals.InputTokens, res.Totals.OutputTokens, res.Totals.TotalTokens, res.Totals.CostUSD,
		string(transcriptJSON), res.StartedAt.Unix(), res.FinishedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Load retrieves one archived run by ID, including its transcript.
func (s *Store) Load(ctx context.Context, runID string) (*agentic.Result, error) {
	query := `
		SELECT run_id, goal, reason, final_text, error, turns, input_tokens, output_tokens, total_tokens, cost_usd, transcript, started_at, finished_at
		FROM runs WHERE run_id = ?
	`

	var (
		res            agentic.Result
		reason         string
		errText        sql.NullString
		finalText      sql.NullString
		transcriptJSON string
		startedAt      int64
		finishedAt     int64
	)
	err := s.db.QueryRowContext(ctx, query, runID).Scan(
		&res.RunID, &res.Goal, &reason, &finalText, &errText,
		&res.Turns, &res.Totals.InputTokens, &res.Totals.OutputTokens, &res.Totals.TotalTokens, &res.Totals.CostUSD,
		&transcriptJSON, &startedAt, &finishedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}

	res.Reason = agentic.TerminationReason(reason)
	if finalText.Valid {
		res.FinalText = finalText.String
	}
	if errText.Valid && errText.String != "" {
		res.Err = fmt.Errorf("%s", errText.String)
	}
	if err := json.Unmarshal([]byte(transcriptJSON), &res.Transcript); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}
	res.StartedAt = time.Unix(startedAt, 0)
	res.FinishedAt = time.Unix(finishedAt, 0)

	return &res, nil
}

// List returns archived run metadata, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]RunMeta, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT run_id, goal, reason, turns, cost_usd, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunMeta
	for rows.Next() {
		var (
			m          RunMeta
			reason     string
			startedAt  int64
			finishedAt int64
		)
		if err := rows.Scan(&m.RunID, &m.Goal, &reason, &m.Turns, &m.CostUSD, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		m.Reason = agentic.TerminationReason(reason)
		m.StartedAt = time.Unix(startedAt, 0)
		m.FinishedAt = time.Unix(finishedAt, 0)
		runs = append(runs, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}
