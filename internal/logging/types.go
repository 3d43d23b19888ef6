package logging

import "time"

// #region selection-entry
// SelectionEntry is a single row in the selection_log table.
type SelectionEntry struct {
	StepID        string
	Block         string
	Winner        string // action name, empty when nothing fired
	WinnerIndex   int    // -1 when nothing fired
	UtilitiesJSON string
	Applied       string // comma-separated destinations written by the step
	Reason        string
	CreatedAt     time.Time
}

// Fired reports whether the logged step selected an action.
func (e SelectionEntry) Fired() bool { return e.WinnerIndex >= 0 }
// #endregion selection-entry
