package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"PriceLakehouse/internal/logger"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so history can be read while a scheduled run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Infof("sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id         TEXT NOT NULL UNIQUE,
			mode           TEXT,
			run_window     TEXT,
			partition_key  TEXT,
			state          TEXT,
			failed_at      TEXT,
			uri            TEXT,
			error          TEXT,
			row_count      INTEGER,
			symbols        INTEGER,
			failed_symbols INTEGER,
			loaded_symbols INTEGER,
			started_at     INTEGER NOT NULL,
			finished_at    INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS run_symbols (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id    TEXT NOT NULL,
			symbol    TEXT NOT NULL,
			row_count INTEGER,
			error     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_symbols_run ON run_symbols(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	// databases created before per-run loaded counts were kept
	return r.addColumn("runs", "loaded_symbols", "INTEGER")
}

func (r *SQLiteRecorder) addColumn(table, column, typ string) error {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n); err != nil {
		return fmt.Errorf("inspect %s: %w", table, err)
	}
	if n > 0 {
		return nil
	}
	if _, err := r.db.Exec(fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, typ)); err != nil {
		return fmt.Errorf("add %s.%s: %w", table, column, err)
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(evt *RunEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO runs
		(run_id, mode, run_window, partition_key, state, failed_at, uri, error,
		 row_count, symbols, failed_symbols, loaded_symbols, started_at, finished_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		evt.RunID, evt.Mode, evt.Window, evt.Partition, evt.State, evt.FailedAt, evt.URI, evt.Error,
		evt.Rows, evt.Symbols, evt.FailedSymbols, evt.LoadedSymbols,
		evt.StartedAt.UnixMilli(), evt.FinishedAt.UnixMilli(),
	)
	return err
}

func (r *SQLiteRecorder) RecordSymbols(evts []SymbolEvent) error {
	if len(evts) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, e := range evts {
		if _, err := tx.Exec(`INSERT INTO run_symbols (run_id, symbol, row_count, error) VALUES (?,?,?,?)`,
			e.RunID, e.Symbol, e.Rows, e.Error); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecentRuns returns the latest runs, newest first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT run_id, mode, run_window, partition_key, state, failed_at, uri, error,
		row_count, symbols, failed_symbols, COALESCE(loaded_symbols, 0), started_at, finished_at
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunEvent
	for rows.Next() {
		var (
			e                 RunEvent
			started, finished int64
		)
		if err := rows.Scan(&e.RunID, &e.Mode, &e.Window, &e.Partition, &e.State, &e.FailedAt, &e.URI, &e.Error,
			&e.Rows, &e.Symbols, &e.FailedSymbols, &e.LoadedSymbols, &started, &finished); err != nil {
			return nil, err
		}
		e.StartedAt = time.UnixMilli(started).UTC()
		e.FinishedAt = time.UnixMilli(finished).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	logger.Infof("closing sqlite recorder")
	return r.db.Close()
}
