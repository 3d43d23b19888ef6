package store

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/spa-engine/internal/algebra"
	"github.com/danielpatrickdp/spa-engine/internal/vocab"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS vocabularies (
	version_id     TEXT PRIMARY KEY,
	parent_id      TEXT,
	name           TEXT NOT NULL,
	dimensions     INTEGER NOT NULL,
	strict         INTEGER NOT NULL,
	max_similarity REAL NOT NULL,
	max_tries      INTEGER NOT NULL,
	algebra        TEXT NOT NULL DEFAULT 'hrr',
	seed           TEXT NOT NULL,
	rng_state      BLOB,
	created_at     TEXT NOT NULL,
	FOREIGN KEY (parent_id) REFERENCES vocabularies(version_id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_vocabularies_name ON vocabularies(name);

CREATE TABLE IF NOT EXISTS pointers (
	version_id TEXT NOT NULL,
	position   INTEGER NOT NULL,
	name       TEXT NOT NULL,
	vector     BLOB NOT NULL,
	generated  INTEGER NOT NULL,
	PRIMARY KEY (version_id, position),
	FOREIGN KEY (version_id) REFERENCES vocabularies(version_id) ON DELETE CASCADE
);
`
// #endregion schema

// #region store-struct
// Store persists vocabulary versions in SQLite.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// :memory: databases are per connection.
	db.SetMaxOpenConns(1)
	s, err := NewStoreWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStoreWithDB runs migrations on an already opened database.
func NewStoreWithDB(db *sql.DB) (*Store, error) {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion db-accessor

// #region save
// SaveVocabulary writes v as a new version under name and returns its
// version ID. Earlier versions are kept.
func (s *Store) SaveVocabulary(name string, v *vocab.Vocabulary) (string, error) {
	if name == "" {
		return "", fmt.Errorf("save vocabulary: empty name")
	}
	entries := v.Entries()
	randState, err := v.RandState()
	if err != nil {
		return "", fmt.Errorf("rng state: %w", err)
	}
	cfg := v.Config()
	id := uuid.New().String()
	now := time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parent sql.NullString
	err = tx.QueryRow(
		`SELECT version_id FROM vocabularies WHERE name = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, name,
	).Scan(&parent)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("find parent: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO vocabularies (version_id, parent_id, name, dimensions, strict, max_similarity, max_tries, algebra, seed, rng_state, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, parent, name, v.Dimensions(), boolInt(cfg.Strict), cfg.MaxSimilarity, cfg.MaxTries,
		v.Algebra().Name(), strconv.FormatUint(cfg.Seed, 10), randState, now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("insert vocabulary: %w", err)
	}

	for i, e := range entries {
		_, err = tx.Exec(
			`INSERT INTO pointers (version_id, position, name, vector, generated) VALUES (?, ?, ?, ?, ?)`,
			id, i, e.Name, encodeVector(e.Vector), boolInt(e.Generated),
		)
		if err != nil {
			return "", fmt.Errorf("insert pointer %s: %w", e.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}
// #endregion save

// #region load
// LoadVocabulary restores the latest version saved under name.
func (s *Store) LoadVocabulary(name string) (*vocab.Vocabulary, VocabRecord, error) {
	var id string
	err := s.db.QueryRow(
		`SELECT version_id FROM vocabularies WHERE name = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, name,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, VocabRecord{}, fmt.Errorf("load %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, VocabRecord{}, fmt.Errorf("load %s: %w", name, err)
	}
	return s.LoadVersion(id)
}

// LoadVersion restores one specific version. Pointer order, vector data and
// generation flags match what was saved, and generation continues from the
// saved random state.
func (s *Store) LoadVersion(id string) (*vocab.Vocabulary, VocabRecord, error) {
	var rec VocabRecord
	var parent sql.NullString
	var strict int
	var alg, seed, created string
	var randState []byte
	err := s.db.QueryRow(
		`SELECT version_id, parent_id, name, dimensions, strict, max_similarity, max_tries, algebra, seed, rng_state, created_at
		 FROM vocabularies WHERE version_id = ?`, id,
	).Scan(&rec.VersionID, &parent, &rec.Name, &rec.Dimensions, &strict,
		&rec.Config.MaxSimilarity, &rec.Config.MaxTries, &alg, &seed, &randState, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, VocabRecord{}, fmt.Errorf("get version %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, VocabRecord{}, fmt.Errorf("get version %s: %w", id, err)
	}
	rec.ParentID = parent.String
	rec.Config.Name = rec.Name
	rec.Config.Strict = strict != 0
	rec.Config.Seed, err = strconv.ParseUint(seed, 10, 64)
	if err != nil {
		return nil, VocabRecord{}, fmt.Errorf("parse seed: %w", err)
	}
	rec.Config.Algebra, err = algebra.ByName(alg)
	if err != nil {
		return nil, VocabRecord{}, fmt.Errorf("version %s: %w", id, err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)

	entries, err := s.pointers(id)
	if err != nil {
		return nil, VocabRecord{}, err
	}
	rec.Pointers = len(entries)

	cfg := rec.Config
	v, err := vocab.New(rec.Dimensions, func(c *vocab.Config) { *c = cfg })
	if err != nil {
		return nil, VocabRecord{}, fmt.Errorf("new vocabulary: %w", err)
	}
	if err := v.Restore(entries, randState); err != nil {
		return nil, VocabRecord{}, err
	}
	return v, rec, nil
}

func (s *Store) pointers(id string) ([]vocab.Entry, error) {
	rows, err := s.db.Query(
		`SELECT name, vector, generated FROM pointers WHERE version_id = ? ORDER BY position`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("list pointers: %w", err)
	}
	defer rows.Close()

	var entries []vocab.Entry
	for rows.Next() {
		var e vocab.Entry
		var blob []byte
		var generated int
		if err := rows.Scan(&e.Name, &blob, &generated); err != nil {
			return nil, fmt.Errorf("scan pointer: %w", err)
		}
		e.Vector = decodeVector(blob)
		e.Generated = generated != 0
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
// #endregion load

// #region list
// ListVocabularies returns the latest version of every saved name, ordered
// by name.
func (s *Store) ListVocabularies() ([]VocabRecord, error) {
	rows, err := s.db.Query(
		`SELECT v.version_id, v.parent_id, v.name, v.dimensions, v.strict, v.max_similarity, v.max_tries, v.algebra, v.seed, v.created_at,
		        (SELECT COUNT(*) FROM pointers p WHERE p.version_id = v.version_id)
		 FROM vocabularies v
		 WHERE v.rowid = (SELECT w.rowid FROM vocabularies w WHERE w.name = v.name ORDER BY w.created_at DESC, w.rowid DESC LIMIT 1)
		 ORDER BY v.name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list vocabularies: %w", err)
	}
	defer rows.Close()

	var records []VocabRecord
	for rows.Next() {
		var rec VocabRecord
		var parent sql.NullString
		var strict int
		var alg, seed, created string
		if err := rows.Scan(&rec.VersionID, &parent, &rec.Name, &rec.Dimensions, &strict,
			&rec.Config.MaxSimilarity, &rec.Config.MaxTries, &alg, &seed, &created, &rec.Pointers); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec.ParentID = parent.String
		rec.Config.Name = rec.Name
		rec.Config.Strict = strict != 0
		rec.Config.Seed, _ = strconv.ParseUint(seed, 10, 64)
		rec.Config.Algebra, _ = algebra.ByName(alg)
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Versions returns every saved version of name, newest first.
func (s *Store) Versions(name string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT version_id FROM vocabularies WHERE name = ? ORDER BY created_at DESC, rowid DESC`, name,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
// #endregion list

// #region delete
// DeleteVocabulary removes every version saved under name.
func (s *Store) DeleteVocabulary(name string) error {
	res, err := s.db.Exec(`DELETE FROM vocabularies WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s: %w", name, ErrNotFound)
	}
	return nil
}
// #endregion delete

// #region vector-encoding
func encodeVector(v []float64) []byte {
	buf := make([]byte, len(v)*8)
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float64 {
	v := make([]float64, len(b)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
// #endregion vector-encoding
