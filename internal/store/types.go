package store

import (
	"errors"
	"time"

	"github.com/danielpatrickdp/spa-engine/internal/vocab"
)

// ErrNotFound is returned when no saved vocabulary matches a name or version.
var ErrNotFound = errors.New("vocabulary not found")

// #region vocab-record
// VocabRecord describes one saved version of a vocabulary.
type VocabRecord struct {
	VersionID  string
	ParentID   string // previous version with the same name, empty for the first
	Name       string
	Dimensions int
	Config     vocab.Config
	Pointers   int
	CreatedAt  time.Time
}
// #endregion vocab-record
