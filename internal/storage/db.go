package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"mitcircs/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  inputPath TEXT NOT NULL,
  inputHash TEXT NOT NULL,
  outputPath TEXT NOT NULL,
  students INTEGER NOT NULL,
  assessments INTEGER NOT NULL,
  timingsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_runs_inputHash ON runs(inputHash);

CREATE TABLE IF NOT EXISTS records (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId INTEGER NOT NULL,
  rowNo INTEGER NOT NULL,
  studentId TEXT NOT NULL,
  recordJson TEXT NOT NULL,
  UNIQUE(runId, rowNo),
  FOREIGN KEY(runId) REFERENCES runs(id)
);
CREATE INDEX IF NOT EXISTS idx_records_studentId ON records(studentId);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) InsertRun(run internal.RunRow) (int64, error) {
	timingsJSON, _ := json.Marshal(run.Timings)
	result, err := d.conn.Exec(`
INSERT INTO runs (traceId, inputPath, inputHash, outputPath, students, assessments, timingsJson)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, run.TraceID, run.InputPath, run.InputHash, run.OutputPath, run.Students, run.Assessments, string(timingsJSON))
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (d *DB) InsertRecords(runID int64, records []internal.StudentRecord) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT INTO records (runId, rowNo, studentId, recordJson) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		recordJSON, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(runID, rec.RowNo, rec.StudentID, string(recordJSON)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

const runColumns = `id, traceId, inputPath, inputHash, outputPath, students, assessments, timingsJson, createdAt`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (internal.RunRow, error) {
	var run internal.RunRow
	var timingsJSON string
	if err := s.Scan(
		&run.ID, &run.TraceID, &run.InputPath, &run.InputHash, &run.OutputPath,
		&run.Students, &run.Assessments, &timingsJSON, &run.CreatedAt,
	); err != nil {
		return internal.RunRow{}, err
	}
	_ = json.Unmarshal([]byte(timingsJSON), &run.Timings)
	return run, nil
}

func (d *DB) ListRuns(limit int) ([]internal.RunRow, error) {
	rows, err := d.conn.Query(`SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RunRow
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (d *DB) GetRun(id int64) (*internal.RunRow, error) {
	run, err := scanRun(d.conn.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRunByInputHash returns the latest run of an input file with this content.
func (d *DB) GetRunByInputHash(hash string) (*internal.RunRow, error) {
	run, err := scanRun(d.conn.QueryRow(`SELECT `+runColumns+` FROM runs WHERE inputHash = ? ORDER BY id DESC LIMIT 1`, hash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (d *DB) GetRunRecords(runID int64) ([]internal.StudentRecord, error) {
	rows, err := d.conn.Query(`SELECT recordJson FROM records WHERE runId = ? ORDER BY rowNo ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.StudentRecord
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, err
		}
		var rec internal.StudentRecord
		if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
