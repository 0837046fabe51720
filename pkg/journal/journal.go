// Package journal persists completed loop iterations in an append-only
// SQL store. PostgreSQL, MySQL, and SQLite are supported via
// database/sql.
package journal

import (
	"errors"
	"fmt"

	"github.com/looperhq/looper/pkg/action"
	"github.com/looperhq/looper/pkg/sensor"
)

// ErrNotFound reports a lookup for an id the journal never assigned.
var ErrNotFound = errors.New("iteration not found")

// JournalError wraps a storage failure.
type JournalError struct {
	Op      string
	Message string
	Err     error
}

func (e *JournalError) Error() string {
	msg := fmt.Sprintf("journal %s: %s", e.Op, e.Message)
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *JournalError) Unwrap() error {
	return e.Err
}

// Iteration is one completed loop pass. The id is assigned on append;
// ids are monotonic and dense within a process lifetime.
type Iteration struct {
	ID            int64                    `json:"id"`
	CreatedAtUnix int64                    `json:"created_at_unix"`
	Sensed        []sensor.Percept         `json:"sensed"`
	Surprising    []sensor.Percept         `json:"surprising"`
	Planned       []action.Recommended     `json:"planned"`
	Results       []action.ExecutionResult `json:"results"`
}
