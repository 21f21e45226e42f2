package persist

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dshills/slidevault/internal/engine/checkpoint"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS checkpoints (
    id TEXT PRIMARY KEY,
    seq INTEGER NOT NULL,              -- position in the collection
    name TEXT NOT NULL,
    created_at INTEGER NOT NULL,       -- UnixNano
    is_auto_save INTEGER NOT NULL DEFAULT 0,
    document_title TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS snapshot_entries (
    checkpoint_id TEXT NOT NULL REFERENCES checkpoints(id) ON DELETE CASCADE,
    unit_id TEXT NOT NULL,
    content TEXT NOT NULL,
    PRIMARY KEY (checkpoint_id, unit_id)
);

CREATE TABLE IF NOT EXISTS meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

const metaLastAutoSave = "last_auto_save"

// SQLite stores the checkpoint state in a SQLite database.
type SQLite struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	dsn := path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Save replaces the stored collection in a single transaction.
func (s *SQLite) Save(state checkpoint.State) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec("DELETE FROM snapshot_entries"); err != nil {
		return fmt.Errorf("failed to clear snapshots: %w", err)
	}
	if _, err = tx.Exec("DELETE FROM checkpoints"); err != nil {
		return fmt.Errorf("failed to clear checkpoints: %w", err)
	}

	cpStmt, err := tx.Prepare("INSERT INTO checkpoints (id, seq, name, created_at, is_auto_save, document_title) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer cpStmt.Close()

	entryStmt, err := tx.Prepare("INSERT INTO snapshot_entries (checkpoint_id, unit_id, content) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer entryStmt.Close()

	for i, cp := range state.Checkpoints {
		isAuto := 0
		if cp.IsAutoSave {
			isAuto = 1
		}
		if _, err = cpStmt.Exec(cp.ID, i, cp.Name, cp.Timestamp.UnixNano(), isAuto, cp.DocumentTitle); err != nil {
			return fmt.Errorf("failed to insert checkpoint %s: %w", cp.ID, err)
		}
		for unitID, content := range cp.Snapshot {
			if _, err = entryStmt.Exec(cp.ID, unitID, content); err != nil {
				return fmt.Errorf("failed to insert snapshot entry %s/%s: %w", cp.ID, unitID, err)
			}
		}
	}

	if state.LastAutoSave.IsZero() {
		_, err = tx.Exec("DELETE FROM meta WHERE key = ?", metaLastAutoSave)
	} else {
		_, err = tx.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
			metaLastAutoSave, state.LastAutoSave.UTC().Format(time.RFC3339Nano))
	}
	if err != nil {
		return fmt.Errorf("failed to write last auto-save: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Load reads the stored collection. An empty database yields a nil state.
func (s *SQLite) Load() (*checkpoint.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := &checkpoint.State{}
	found := false

	var last string
	switch err := s.db.QueryRow("SELECT value FROM meta WHERE key = ?", metaLastAutoSave).Scan(&last); err {
	case nil:
		t, perr := time.Parse(time.RFC3339Nano, last)
		if perr != nil {
			return nil, fmt.Errorf("failed to parse last auto-save %q: %w", last, perr)
		}
		state.LastAutoSave = t
		found = true
	case sql.ErrNoRows:
	default:
		return nil, fmt.Errorf("failed to read last auto-save: %w", err)
	}

	rows, err := s.db.Query("SELECT id, name, created_at, is_auto_save, document_title FROM checkpoints ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("failed to query checkpoints: %w", err)
	}
	index := make(map[string]int)
	for rows.Next() {
		var (
			cp     checkpoint.Checkpoint
			nanos  int64
			isAuto int
		)
		if err := rows.Scan(&cp.ID, &cp.Name, &nanos, &isAuto, &cp.DocumentTitle); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
		}
		cp.Timestamp = time.Unix(0, nanos).UTC()
		cp.IsAutoSave = isAuto != 0
		cp.Snapshot = checkpoint.Snapshot{}
		index[cp.ID] = len(state.Checkpoints)
		state.Checkpoints = append(state.Checkpoints, cp)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate checkpoints: %w", err)
	}
	rows.Close()

	entries, err := s.db.Query("SELECT checkpoint_id, unit_id, content FROM snapshot_entries")
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer entries.Close()
	for entries.Next() {
		var cpID, unitID, content string
		if err := entries.Scan(&cpID, &unitID, &content); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot entry: %w", err)
		}
		if i, ok := index[cpID]; ok {
			state.Checkpoints[i].Snapshot[unitID] = content
		}
	}
	if err := entries.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", err)
	}

	if !found && len(state.Checkpoints) == 0 {
		return nil, nil
	}
	return state, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
