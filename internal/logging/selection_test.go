package logging

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/spa-engine/internal/action"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := EnsureSchema(db); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
// #endregion helpers

// #region log-selection-tests
func TestLogSelection_RoundTrip(t *testing.T) {
	db := setupDB(t)
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	entry := SelectionEntry{
		StepID:        "s1",
		Block:         "bg",
		Winner:        "action0",
		WinnerIndex:   0,
		UtilitiesJSON: "[0.8,0.3]",
		Applied:       "motor",
		Reason:        "replay step 1",
		CreatedAt:     at,
	}
	if err := LogSelection(db, entry); err != nil {
		t.Fatalf("LogSelection: %v", err)
	}

	got, err := ListSelections(db, 10)
	if err != nil {
		t.Fatalf("ListSelections: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if got[0] != entry {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got[0], entry)
	}
}

func TestLogSelection_NullableFields(t *testing.T) {
	db := setupDB(t)

	if err := LogSelection(db, SelectionEntry{StepID: "s1", Block: "bg", WinnerIndex: -1}); err != nil {
		t.Fatalf("LogSelection: %v", err)
	}

	var winner, reason sql.NullString
	var created string
	if err := db.QueryRow(`SELECT winner, reason, created_at FROM selection_log`).Scan(&winner, &reason, &created); err != nil {
		t.Fatalf("query: %v", err)
	}
	if winner.Valid || reason.Valid {
		t.Error("expected empty strings stored as NULL")
	}
	if _, err := time.Parse(time.RFC3339Nano, created); err != nil {
		t.Errorf("expected default RFC3339Nano timestamp, got %q", created)
	}
}

func TestListSelections_NewestFirstAndLimit(t *testing.T) {
	db := setupDB(t)
	for _, id := range []string{"s1", "s2", "s3"} {
		if err := LogSelection(db, SelectionEntry{StepID: id, Block: "bg", WinnerIndex: -1}); err != nil {
			t.Fatalf("LogSelection: %v", err)
		}
	}
	got, err := ListSelections(db, 2)
	if err != nil {
		t.Fatalf("ListSelections: %v", err)
	}
	if len(got) != 2 || got[0].StepID != "s3" || got[1].StepID != "s2" {
		t.Fatalf("unexpected entries %+v", got)
	}
}

func TestLogSelection_ClosedDB(t *testing.T) {
	db := setupDB(t)
	db.Close()
	if err := LogSelection(db, SelectionEntry{StepID: "s1", Block: "bg"}); err == nil {
		t.Fatal("expected error on closed db")
	}
	if _, err := ListSelections(db, 1); err == nil {
		t.Fatal("expected error on closed db")
	}
}
// #endregion log-selection-tests

// #region from-decision-tests
func TestFromDecision(t *testing.T) {
	id := uuid.New()
	d := action.Decision{
		StepID:    id,
		Block:     "bg",
		Utilities: []float64{0.8, 0.3},
		Winner:    0,
		Action:    "action0",
		Applied:   []string{"motor", "memory"},
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	e, err := FromDecision(d, "test")
	if err != nil {
		t.Fatalf("FromDecision: %v", err)
	}
	if e.StepID != id.String() || e.Winner != "action0" || !e.Fired() {
		t.Fatalf("unexpected entry %+v", e)
	}
	if e.UtilitiesJSON != "[0.8,0.3]" {
		t.Errorf("utilities: got %s", e.UtilitiesJSON)
	}
	if e.Applied != "motor,memory" {
		t.Errorf("applied: got %s", e.Applied)
	}

	idle, _ := FromDecision(action.Decision{StepID: id, Block: "bg", Winner: -1}, "")
	if idle.Fired() || idle.Winner != "" {
		t.Fatalf("expected idle entry, got %+v", idle)
	}
}
// #endregion from-decision-tests
