package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/danielpatrickdp/spa-engine/internal/action"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS selection_log (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	step_id        TEXT NOT NULL,
	block          TEXT NOT NULL,
	winner         TEXT,
	winner_index   INTEGER NOT NULL,
	utilities_json TEXT,
	applied        TEXT,
	reason         TEXT,
	created_at     TEXT NOT NULL
);
`

// EnsureSchema creates the selection_log table if it does not exist.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate selection log: %w", err)
	}
	return nil
}
// #endregion schema

// #region from-decision
// FromDecision converts a block decision into a log entry.
func FromDecision(d action.Decision, reason string) (SelectionEntry, error) {
	utilities, err := json.Marshal(d.Utilities)
	if err != nil {
		return SelectionEntry{}, fmt.Errorf("marshal utilities: %w", err)
	}
	return SelectionEntry{
		StepID:        d.StepID.String(),
		Block:         d.Block,
		Winner:        d.Action,
		WinnerIndex:   d.Winner,
		UtilitiesJSON: string(utilities),
		Applied:       strings.Join(d.Applied, ","),
		Reason:        reason,
		CreatedAt:     d.CreatedAt,
	}, nil
}
// #endregion from-decision

// #region log-selection
// LogSelection writes an entry to the selection_log table.
func LogSelection(db *sql.DB, entry SelectionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO selection_log (step_id, block, winner, winner_index, utilities_json, applied, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.StepID,
		entry.Block,
		nullIfEmpty(entry.Winner),
		entry.WinnerIndex,
		nullIfEmpty(entry.UtilitiesJSON),
		nullIfEmpty(entry.Applied),
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log selection: %w", err)
	}
	return nil
}
// #endregion log-selection

// #region list-selections
// ListSelections returns the most recent entries, newest first.
func ListSelections(db *sql.DB, limit int) ([]SelectionEntry, error) {
	rows, err := db.Query(
		`SELECT step_id, block, winner, winner_index, utilities_json, applied, reason, created_at
		 FROM selection_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list selections: %w", err)
	}
	defer rows.Close()

	var entries []SelectionEntry
	for rows.Next() {
		var e SelectionEntry
		var winner, utilities, applied, reason sql.NullString
		var created string
		if err := rows.Scan(&e.StepID, &e.Block, &winner, &e.WinnerIndex, &utilities, &applied, &reason, &created); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.Winner = winner.String
		e.UtilitiesJSON = utilities.String
		e.Applied = applied.String
		e.Reason = reason.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
// #endregion list-selections

// #region helpers
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
