package state

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	source        TEXT NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS belief_versions (
	version_id    TEXT PRIMARY KEY,
	parent_id     TEXT,
	run_id        TEXT NOT NULL,
	t             INTEGER NOT NULL,
	dim           INTEGER NOT NULL,
	belief        BLOB NOT NULL,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (parent_id) REFERENCES belief_versions(version_id),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS provenance_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	version_id    TEXT NOT NULL,
	run_id        TEXT NOT NULL,
	t             INTEGER NOT NULL,
	action_source TEXT NOT NULL,
	reason        TEXT NOT NULL,
	ignited       INTEGER NOT NULL,
	d_g_broadcast REAL NOT NULL,
	signals_json  TEXT,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES belief_versions(version_id)
);
`

// #endregion schema

// #region store-struct
// Store is an append-only SQLite log of belief versions and their provenance.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	s, err := NewStoreWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStoreWithDB migrates an already opened database.
func NewStoreWithDB(db *sql.DB) (*Store, error) {
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region begin-run
// BeginRun registers a new run and returns it.
func (s *Store) BeginRun(source string) (Run, error) {
	run := Run{RunID: uuid.New().String(), Source: source, CreatedAt: s.now()}
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, source, created_at) VALUES (?, ?, ?)`,
		run.RunID, run.Source, run.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// #endregion begin-run

// #region append
// Append writes a belief version and its provenance row atomically. Empty
// IDs and zero timestamps are filled in; the stored version is returned.
func (s *Store) Append(v BeliefVersion, p ProvenanceEntry) (BeliefVersion, error) {
	if v.VersionID == "" {
		v.VersionID = uuid.New().String()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = s.now()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = v.CreatedAt
	}

	tx, err := s.db.Begin()
	if err != nil {
		return BeliefVersion{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO belief_versions (version_id, parent_id, run_id, t, dim, belief, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.VersionID, nullIfEmpty(v.ParentID), v.RunID, v.T, len(v.Belief),
		encodeVector(v.Belief), v.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return BeliefVersion{}, fmt.Errorf("insert version: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO provenance_log (version_id, run_id, t, action_source, reason, ignited, d_g_broadcast, signals_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.VersionID, v.RunID, v.T, p.ActionSource, p.Reason, boolToInt(p.Ignited), p.DeltaG,
		nullIfEmpty(p.SignalsJSON), p.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return BeliefVersion{}, fmt.Errorf("insert provenance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return BeliefVersion{}, fmt.Errorf("commit: %w", err)
	}
	return v, nil
}

// #endregion append

// #region get-version
// GetVersion retrieves a specific belief version by ID.
func (s *Store) GetVersion(id string) (BeliefVersion, error) {
	row := s.db.QueryRow(
		`SELECT version_id, parent_id, run_id, t, belief, created_at
		 FROM belief_versions WHERE version_id = ?`, id,
	)
	v, err := scanVersion(row)
	if err != nil {
		return BeliefVersion{}, fmt.Errorf("get version %s: %w", id, err)
	}
	return v, nil
}

// Latest returns the most recently appended version of a run.
func (s *Store) Latest(runID string) (BeliefVersion, error) {
	row := s.db.QueryRow(
		`SELECT version_id, parent_id, run_id, t, belief, created_at
		 FROM belief_versions WHERE run_id = ? ORDER BY rowid DESC LIMIT 1`, runID,
	)
	v, err := scanVersion(row)
	if err != nil {
		return BeliefVersion{}, fmt.Errorf("latest version of %s: %w", runID, err)
	}
	return v, nil
}

// #endregion get-version

// #region list-versions
// ListVersions returns the most recent versions of a run with their
// provenance, newest first.
func (s *Store) ListVersions(runID string, limit int) ([]VersionWithProvenance, error) {
	rows, err := s.db.Query(
		`SELECT v.version_id, v.parent_id, v.run_id, v.t, v.belief, v.created_at,
		        p.action_source, p.reason, p.ignited, p.d_g_broadcast
		 FROM belief_versions v JOIN provenance_log p ON p.version_id = v.version_id
		 WHERE v.run_id = ? ORDER BY v.rowid DESC LIMIT ?`, runID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []VersionWithProvenance
	for rows.Next() {
		var rec VersionWithProvenance
		var parentID sql.NullString
		var blob []byte
		var createdStr string
		var ignited int
		if err := rows.Scan(&rec.VersionID, &parentID, &rec.RunID, &rec.T, &blob, &createdStr,
			&rec.ActionSource, &rec.Reason, &ignited, &rec.DeltaG); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec.ParentID = parentID.String
		rec.Belief = decodeVector(blob)
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		rec.Ignited = ignited != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}

// #endregion list-versions

// #region provenance
// Provenance returns the provenance rows of a run in append order.
func (s *Store) Provenance(runID string) ([]ProvenanceEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, version_id, run_id, t, action_source, reason, ignited, d_g_broadcast, signals_json, created_at
		 FROM provenance_log WHERE run_id = ? ORDER BY id ASC`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query provenance: %w", err)
	}
	defer rows.Close()

	var out []ProvenanceEntry
	for rows.Next() {
		var e ProvenanceEntry
		var ignited int
		var signals sql.NullString
		var createdStr string
		if err := rows.Scan(&e.ID, &e.VersionID, &e.RunID, &e.T, &e.ActionSource, &e.Reason,
			&ignited, &e.DeltaG, &signals, &createdStr); err != nil {
			return nil, fmt.Errorf("scan provenance: %w", err)
		}
		e.Ignited = ignited != 0
		e.SignalsJSON = signals.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion provenance

// #region runs
// Runs lists the most recent runs with their version counts, newest first.
func (s *Store) Runs(limit int) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT r.run_id, r.source, r.created_at,
		        (SELECT COUNT(*) FROM belief_versions v WHERE v.run_id = r.run_id)
		 FROM runs r ORDER BY r.rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var createdStr string
		if err := rows.Scan(&r.RunID, &r.Source, &createdStr, &r.Versions); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, r)
	}
	return out, rows.Err()
}

// #endregion runs

// #region helpers
type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (BeliefVersion, error) {
	var v BeliefVersion
	var parentID sql.NullString
	var blob []byte
	var createdStr string
	if err := row.Scan(&v.VersionID, &parentID, &v.RunID, &v.T, &blob, &createdStr); err != nil {
		return BeliefVersion{}, err
	}
	v.ParentID = parentID.String
	v.Belief = decodeVector(blob)
	v.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return v, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers

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

// #endregion vector-encoding
