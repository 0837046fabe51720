// Copyright 2025 The Looper Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/looperhq/looper/pkg/action"
	"github.com/looperhq/looper/pkg/sensor"

	// Database drivers
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DefaultListLimit applies when a listing omits the limit.
	DefaultListLimit = 50
	// MaxListLimit caps a single listing.
	MaxListLimit = 500
	// HistoryWindowLimit caps how many previous iterations feed the
	// local reasoner.
	HistoryWindowLimit = 10
)

// Store is the SQL-backed journal.
type Store struct {
	db      *sql.DB
	dialect string // "postgres", "mysql", or "sqlite"
}

// iterationRow mirrors the table schema; list fields are JSON-encoded.
type iterationRow struct {
	ID                 int64
	CreatedAtUnix      int64
	SensedPercepts     string
	SurprisingPercepts string
	PlannedActions     string
	ActionResults      string
}

// NewStore wraps an open connection and initialises the schema.
func NewStore(db *sql.DB, dialect string) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	switch dialect {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported dialect: %s (supported: postgres, mysql, sqlite)", dialect)
	}

	s := &Store{db: db, dialect: dialect}
	if err := s.initSchema(); err != nil {
		return nil, &JournalError{Op: "init", Message: "failed to initialize schema", Err: err}
	}
	return s, nil
}

func (s *Store) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// The id column must autoincrement densely; each dialect spells
	// that differently.
	var idColumn string
	switch s.dialect {
	case "postgres":
		idColumn = "id BIGSERIAL PRIMARY KEY"
	case "mysql":
		idColumn = "id BIGINT PRIMARY KEY AUTO_INCREMENT"
	default:
		idColumn = "id INTEGER PRIMARY KEY AUTOINCREMENT"
	}

	schema := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS iterations (
    %s,
    created_at_unix BIGINT NOT NULL,
    sensed_percepts TEXT,
    surprising_percepts TEXT,
    planned_actions TEXT,
    action_results TEXT
);
`, idColumn)

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Append persists the iteration and returns its assigned id.
func (s *Store) Append(ctx context.Context, it *Iteration) (int64, error) {
	if it == nil {
		return 0, &JournalError{Op: "append", Message: "iteration is required"}
	}

	row, err := s.toRow(it)
	if err != nil {
		return 0, &JournalError{Op: "append", Message: "failed to serialize iteration", Err: err}
	}
	if row.CreatedAtUnix == 0 {
		row.CreatedAtUnix = time.Now().Unix()
	}

	if s.dialect == "postgres" {
		query := `
INSERT INTO iterations (created_at_unix, sensed_percepts, surprising_percepts, planned_actions, action_results)
VALUES ($1, $2, $3, $4, $5)
RETURNING id
`
		var id int64
		err := s.db.QueryRowContext(ctx, query,
			row.CreatedAtUnix, row.SensedPercepts, row.SurprisingPercepts,
			row.PlannedActions, row.ActionResults,
		).Scan(&id)
		if err != nil {
			return 0, &JournalError{Op: "append", Message: "failed to insert iteration", Err: err}
		}
		return id, nil
	}

	query := `
INSERT INTO iterations (created_at_unix, sensed_percepts, surprising_percepts, planned_actions, action_results)
VALUES (?, ?, ?, ?, ?)
`
	res, err := s.db.ExecContext(ctx, query,
		row.CreatedAtUnix, row.SensedPercepts, row.SurprisingPercepts,
		row.PlannedActions, row.ActionResults,
	)
	if err != nil {
		return 0, &JournalError{Op: "append", Message: "failed to insert iteration", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, &JournalError{Op: "append", Message: "failed to read assigned id", Err: err}
	}
	return id, nil
}

// Get fetches one iteration; ErrNotFound when the id was never assigned.
func (s *Store) Get(ctx context.Context, id int64) (*Iteration, error) {
	query := `
SELECT id, created_at_unix, sensed_percepts, surprising_percepts, planned_actions, action_results
FROM iterations
WHERE id = ?
`
	if s.dialect == "postgres" {
		query = `
SELECT id, created_at_unix, sensed_percepts, surprising_percepts, planned_actions, action_results
FROM iterations
WHERE id = $1
`
	}

	var row iterationRow
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&row.ID, &row.CreatedAtUnix, &row.SensedPercepts,
		&row.SurprisingPercepts, &row.PlannedActions, &row.ActionResults,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &JournalError{Op: "get", Message: "failed to query iteration", Err: err}
	}
	return s.rowToIteration(&row)
}

// ListAfter returns iterations with id > afterID ordered ascending.
// The limit is clamped to [1, 500]; zero or negative selects the
// default of 50.
func (s *Store) ListAfter(ctx context.Context, afterID int64, limit int) ([]*Iteration, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := `
SELECT id, created_at_unix, sensed_percepts, surprising_percepts, planned_actions, action_results
FROM iterations
WHERE id > ?
ORDER BY id ASC
LIMIT ?
`
	if s.dialect == "postgres" {
		query = `
SELECT id, created_at_unix, sensed_percepts, surprising_percepts, planned_actions, action_results
FROM iterations
WHERE id > $1
ORDER BY id ASC
LIMIT $2
`
	}

	rows, err := s.db.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, &JournalError{Op: "list", Message: "failed to query iterations", Err: err}
	}
	defer rows.Close()

	var out []*Iteration
	for rows.Next() {
		var row iterationRow
		if err := rows.Scan(
			&row.ID, &row.CreatedAtUnix, &row.SensedPercepts,
			&row.SurprisingPercepts, &row.PlannedActions, &row.ActionResults,
		); err != nil {
			return nil, &JournalError{Op: "list", Message: "failed to scan iteration", Err: err}
		}
		it, err := s.rowToIteration(&row)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, &JournalError{Op: "list", Message: "failed to iterate rows", Err: err}
	}
	return out, nil
}

// LatestID returns the newest assigned id, zero when the journal is
// empty.
func (s *Store) LatestID(ctx context.Context) (int64, error) {
	var latest sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(id) FROM iterations`).Scan(&latest)
	if err != nil {
		return 0, &JournalError{Op: "latest_id", Message: "failed to query max id", Err: err}
	}
	if !latest.Valid {
		return 0, nil
	}
	return latest.Int64, nil
}

// LatestPerceptWindows returns the sensed percept contents of the last
// n iterations, one window per iteration, oldest first. n is capped at
// the history window limit.
func (s *Store) LatestPerceptWindows(ctx context.Context, n int) ([][]string, error) {
	if n <= 0 {
		return nil, nil
	}
	if n > HistoryWindowLimit {
		n = HistoryWindowLimit
	}

	query := `
SELECT sensed_percepts
FROM iterations
ORDER BY id DESC
LIMIT ?
`
	if s.dialect == "postgres" {
		query = `
SELECT sensed_percepts
FROM iterations
ORDER BY id DESC
LIMIT $1
`
	}

	rows, err := s.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, &JournalError{Op: "windows", Message: "failed to query percept windows", Err: err}
	}
	defer rows.Close()

	var newestFirst [][]string
	for rows.Next() {
		var sensedJSON string
		if err := rows.Scan(&sensedJSON); err != nil {
			return nil, &JournalError{Op: "windows", Message: "failed to scan window", Err: err}
		}
		var sensed []sensor.Percept
		if err := json.Unmarshal([]byte(sensedJSON), &sensed); err != nil {
			return nil, &JournalError{Op: "windows", Message: "failed to decode window", Err: err}
		}
		window := make([]string, 0, len(sensed))
		for _, p := range sensed {
			window = append(window, p.Content)
		}
		newestFirst = append(newestFirst, window)
	}
	if err := rows.Err(); err != nil {
		return nil, &JournalError{Op: "windows", Message: "failed to iterate rows", Err: err}
	}

	// Reverse to oldest first.
	out := make([][]string, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		out = append(out, newestFirst[i])
	}
	return out, nil
}

func (s *Store) toRow(it *Iteration) (*iterationRow, error) {
	sensed, err := json.Marshal(orEmptyPercepts(it.Sensed))
	if err != nil {
		return nil, err
	}
	surprising, err := json.Marshal(orEmptyPercepts(it.Surprising))
	if err != nil {
		return nil, err
	}
	planned, err := json.Marshal(orEmptyRecommended(it.Planned))
	if err != nil {
		return nil, err
	}
	results, err := json.Marshal(orEmptyResults(it.Results))
	if err != nil {
		return nil, err
	}
	return &iterationRow{
		ID:                 it.ID,
		CreatedAtUnix:      it.CreatedAtUnix,
		SensedPercepts:     string(sensed),
		SurprisingPercepts: string(surprising),
		PlannedActions:     string(planned),
		ActionResults:      string(results),
	}, nil
}

func (s *Store) rowToIteration(row *iterationRow) (*Iteration, error) {
	it := &Iteration{ID: row.ID, CreatedAtUnix: row.CreatedAtUnix}
	if err := json.Unmarshal([]byte(row.SensedPercepts), &it.Sensed); err != nil {
		return nil, &JournalError{Op: "decode", Message: "failed to decode sensed percepts", Err: err}
	}
	if err := json.Unmarshal([]byte(row.SurprisingPercepts), &it.Surprising); err != nil {
		return nil, &JournalError{Op: "decode", Message: "failed to decode surprising percepts", Err: err}
	}
	if err := json.Unmarshal([]byte(row.PlannedActions), &it.Planned); err != nil {
		return nil, &JournalError{Op: "decode", Message: "failed to decode planned actions", Err: err}
	}
	if err := json.Unmarshal([]byte(row.ActionResults), &it.Results); err != nil {
		return nil, &JournalError{Op: "decode", Message: "failed to decode action results", Err: err}
	}
	return it, nil
}

func orEmptyPercepts(in []sensor.Percept) []sensor.Percept {
	if in == nil {
		return []sensor.Percept{}
	}
	return in
}

func orEmptyRecommended(in []action.Recommended) []action.Recommended {
	if in == nil {
		return []action.Recommended{}
	}
	return in
}

func orEmptyResults(in []action.ExecutionResult) []action.ExecutionResult {
	if in == nil {
		return []action.ExecutionResult{}
	}
	return in
}
