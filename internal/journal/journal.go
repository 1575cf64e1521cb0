// Package journal provides an optional SQLite-backed record of runs and
// per-record resubmission outcomes.
//
// The journal never participates in resume decisions — that is the JSON
// ledger's job. It exists so an operator can ask, across many runs, which
// invocations were resubmitted when, and with what outcome, using plain SQL.
//
// Database configuration follows the usual single-writer SQLite discipline:
// WAL mode, synchronous=NORMAL, busy_timeout, foreign keys on, one pooled
// connection.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/resub/internal/api"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema (runs, resubmissions)
const currentSchemaVersion = 1

// Journal records runs and their per-record outcomes.
type Journal struct {
	db *sql.DB

	// now is overridable for tests.
	now func() time.Time
}

// Open creates or opens the journal database at path. Idempotent: pragmas
// and schema are applied on every open.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect journal: %w", err)
	}

	// Single writer avoids SQLITE_BUSY; the run is sequential anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Journal{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// BeginRun inserts a run row and returns its UUIDv7 identifier.
func (j *Journal) BeginRun(ctx context.Context, criteria api.SearchCriteria, planned int) (string, error) {
	runID := uuid.Must(uuid.NewV7()).String()

	criteriaJSON, err := json.Marshal(criteriaRecord(criteria))
	if err != nil {
		return "", fmt.Errorf("begin run: marshal criteria: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO runs (id, company_uuid, partner_uuid, criteria, planned, status, started_at)
		VALUES (?, ?, ?, ?, ?, 'running', ?)
	`,
		runID,
		criteria.CompanyUUID,
		criteria.PartnerUUID,
		string(criteriaJSON),
		planned,
		j.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return runID, nil
}

// RecordOutcome inserts one resubmission outcome. ON CONFLICT DO NOTHING
// keeps the write idempotent should the same invocation ever be reported
// twice within a run.
func (j *Journal) RecordOutcome(ctx context.Context, runID string, seq int, invocationUUID string, outcome api.Outcome) error {
	resubmitted := 0
	if outcome.Resubmitted {
		resubmitted = 1
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO resubmissions (run_id, seq, invocation_uuid, resubmitted, message, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, invocation_uuid) DO NOTHING
	`,
		runID,
		seq,
		invocationUUID,
		resubmitted,
		outcome.Message,
		j.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

// FinishRun stamps the run row with its final status and counts.
func (j *Journal) FinishRun(ctx context.Context, runID string, status string, resubmitted, rejected int) error {
	_, err := j.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, resubmitted = ?, rejected = ?, finished_at = ?
		WHERE id = ?
	`,
		status,
		resubmitted,
		rejected,
		j.now().UTC().Format(time.RFC3339Nano),
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RunSummary is one row of the runs table.
type RunSummary struct {
	ID          string
	CompanyUUID string
	PartnerUUID string
	Planned     int
	Resubmitted int
	Rejected    int
	Status      string
	StartedAt   string
	FinishedAt  string
}

// GetRun returns the run row for id.
func (j *Journal) GetRun(ctx context.Context, id string) (*RunSummary, error) {
	var (
		run      RunSummary
		finished sql.NullString
	)
	err := j.db.QueryRowContext(ctx, `
		SELECT id, company_uuid, partner_uuid, planned, resubmitted, rejected, status, started_at, finished_at
		FROM runs WHERE id = ?
	`, id).Scan(
		&run.ID, &run.CompanyUUID, &run.PartnerUUID,
		&run.Planned, &run.Resubmitted, &run.Rejected,
		&run.Status, &run.StartedAt, &finished,
	)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	run.FinishedAt = finished.String
	return &run, nil
}

// OutcomeRow is one row of the resubmissions table.
type OutcomeRow struct {
	Seq            int
	InvocationUUID string
	Resubmitted    bool
	Message        string
}

// Outcomes returns the outcomes of a run in sequence order.
func (j *Journal) Outcomes(ctx context.Context, runID string) ([]OutcomeRow, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, invocation_uuid, resubmitted, message
		FROM resubmissions
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []OutcomeRow
	for rows.Next() {
		var (
			row         OutcomeRow
			resubmitted int
		)
		if err := rows.Scan(&row.Seq, &row.InvocationUUID, &resubmitted, &row.Message); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		row.Resubmitted = resubmitted == 1
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return out, nil
}

// criteriaRecord flattens SearchCriteria into plain JSON-friendly fields.
func criteriaRecord(c api.SearchCriteria) map[string]any {
	m := map[string]any{
		"company_uuid": c.CompanyUUID,
		"partner_uuid": c.PartnerUUID,
	}
	if c.FlowUUID != "" {
		m["flow_uuid"] = c.FlowUUID
	}
	if c.Statuses != "" {
		m["statuses"] = c.Statuses
	}
	if c.DataTag != "" {
		m["data_tag"] = c.DataTag
	}
	if !c.StartDateAfter.IsZero() {
		m["start_date_after"] = c.StartDateAfter.UTC().Format(time.RFC3339Nano)
	}
	if !c.StartDateBefore.IsZero() {
		m["start_date_before"] = c.StartDateBefore.UTC().Format(time.RFC3339Nano)
	}
	return m
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	// No migrations yet; stamp the current version so future ones have a base.
	if version < currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}
