// Package logstore persists rotation.OperationRecord logs to SQLite so a
// run can be replayed or compared after the process that drove it exits.
// It is a consumer of the rotation package, never the other way around.
package logstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/kaelbyte/rotation-kernel/rotation"
)

// Store wraps a SQLite connection holding one or more recorded runs.
type Store struct {
	db *sql.DB
}

// Open creates (or reuses) the database file at path, creating its
// schema on first use, and returns a Store bound to it.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %v", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %v", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema setup failed: %v", err)
	}

	log.Printf("✅ logstore: connected to %s", path)
	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_uuid TEXT NOT NULL,
			character_name TEXT NOT NULL,
			started_at REAL NOT NULL
		);
		CREATE TABLE IF NOT EXISTS operation_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL REFERENCES runs(id),
			operation_id TEXT NOT NULL,
			counter INTEGER NOT NULL,
			time REAL NOT NULL,
			consumed_json TEXT NOT NULL,
			resources_json TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_operation_log_run_id ON operation_log(run_id);
	`)
	return err
}

// StartRun inserts a new run row for characterName, tagged with runID (a
// rotation.Character's RunID distinguishes two runs started from the same
// config), and returns the row's ID.
func (s *Store) StartRun(characterName string, runID uuid.UUID, startedAt float64) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO runs (run_uuid, character_name, started_at) VALUES (?, ?, ?)`,
		runID.String(), characterName, startedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to start run: %v", err)
	}
	return res.LastInsertId()
}

// AppendRecords persists every record produced by a driver step against
// runID, in order.
func (s *Store) AppendRecords(runID int64, records []*rotation.OperationRecord) error {
	for _, rec := range records {
		consumedJSON, err := json.Marshal(rec.Consumed)
		if err != nil {
			return fmt.Errorf("failed to encode consumed map for %s: %v", rec.OperationID, err)
		}
		_, err = s.db.Exec(
			`INSERT INTO operation_log (run_id, operation_id, counter, time, consumed_json) VALUES (?, ?, ?, ?, ?)`,
			runID, rec.OperationID, rec.Counter, rec.Time, string(consumedJSON),
		)
		if err != nil {
			return fmt.Errorf("failed to append record for %s: %v", rec.OperationID, err)
		}
	}
	return nil
}

// AppendFullRecords is AppendRecords for rotation.FullRecord values,
// additionally persisting each record's resource snapshot.
func (s *Store) AppendFullRecords(runID int64, records []*rotation.FullRecord) error {
	for _, rec := range records {
		consumedJSON, err := json.Marshal(rec.Consumed)
		if err != nil {
			return fmt.Errorf("failed to encode consumed map for %s: %v", rec.OperationID, err)
		}
		resourcesJSON, err := json.Marshal(rec.Resources)
		if err != nil {
			return fmt.Errorf("failed to encode resource snapshot for %s: %v", rec.OperationID, err)
		}
		_, err = s.db.Exec(
			`INSERT INTO operation_log (run_id, operation_id, counter, time, consumed_json, resources_json) VALUES (?, ?, ?, ?, ?, ?)`,
			runID, rec.OperationID, rec.Counter, rec.Time, string(consumedJSON), string(resourcesJSON),
		)
		if err != nil {
			return fmt.Errorf("failed to append record for %s: %v", rec.OperationID, err)
		}
	}
	return nil
}

// RunRecords replays every operation_log row for runID back into
// rotation.OperationRecord values, ordered by insertion (i.e. execution
// order).
func (s *Store) RunRecords(runID int64) ([]*rotation.OperationRecord, error) {
	rows, err := s.db.Query(
		`SELECT operation_id, counter, time, consumed_json FROM operation_log WHERE run_id = ? ORDER BY id ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query run %d: %v", runID, err)
	}
	defer rows.Close()

	var records []*rotation.OperationRecord
	for rows.Next() {
		var rec rotation.OperationRecord
		var consumedJSON string
		if err := rows.Scan(&rec.OperationID, &rec.Counter, &rec.Time, &consumedJSON); err != nil {
			return nil, fmt.Errorf("failed to scan record: %v", err)
		}
		if err := json.Unmarshal([]byte(consumedJSON), &rec.Consumed); err != nil {
			return nil, fmt.Errorf("failed to decode consumed map: %v", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// RunFullRecords is RunRecords for rows stored via AppendFullRecords,
// additionally decoding each row's resource snapshot. Rows stored via the
// plain AppendRecords have a NULL resources_json and decode with a nil
// Resources map.
func (s *Store) RunFullRecords(runID int64) ([]*rotation.FullRecord, error) {
	rows, err := s.db.Query(
		`SELECT operation_id, counter, time, consumed_json, resources_json FROM operation_log WHERE run_id = ? ORDER BY id ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query run %d: %v", runID, err)
	}
	defer rows.Close()

	var records []*rotation.FullRecord
	for rows.Next() {
		var rec rotation.OperationRecord
		var consumedJSON string
		var resourcesJSON sql.NullString
		if err := rows.Scan(&rec.OperationID, &rec.Counter, &rec.Time, &consumedJSON, &resourcesJSON); err != nil {
			return nil, fmt.Errorf("failed to scan record: %v", err)
		}
		if err := json.Unmarshal([]byte(consumedJSON), &rec.Consumed); err != nil {
			return nil, fmt.Errorf("failed to decode consumed map: %v", err)
		}
		full := &rotation.FullRecord{OperationRecord: &rec}
		if resourcesJSON.Valid {
			if err := json.Unmarshal([]byte(resourcesJSON.String), &full.Resources); err != nil {
				return nil, fmt.Errorf("failed to decode resource snapshot: %v", err)
			}
		}
		records = append(records, full)
	}
	return records, rows.Err()
}

// Run describes one stored run header, for listing.
type Run struct {
	ID            int64
	RunID         uuid.UUID
	CharacterName string
	StartedAt     float64
}

// ListRuns returns every stored run, most recent first.
func (s *Store) ListRuns() ([]Run, error) {
	rows, err := s.db.Query(`SELECT id, run_uuid, character_name, started_at FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %v", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var runUUID string
		if err := rows.Scan(&r.ID, &runUUID, &r.CharacterName, &r.StartedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %v", err)
		}
		parsed, err := uuid.Parse(runUUID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse run_uuid for run %d: %v", r.ID, err)
		}
		r.RunID = parsed
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
