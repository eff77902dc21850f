package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"PriceLakehouse/internal/logger"
	"PriceLakehouse/internal/model"
	"PriceLakehouse/internal/snapshot"
)

// SQLite appends snapshot rows into a local SQLite table. Dates are stored
// as YYYY-MM-DD text.
type SQLite struct {
	db     *sql.DB
	source snapshot.Reader
	table  string
}

func NewSQLite(dbPath, table string, source snapshot.Reader) (*SQLite, error) {
	if err := checkIdent("table", table); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	logger.Infof("sqlite warehouse opened: %s", dbPath)
	return &SQLite{db: db, source: source, table: table}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func sqliteType(t model.ColumnType) string {
	switch t {
	case model.TypeDate, model.TypeString:
		return "TEXT"
	case model.TypeInt:
		return "INTEGER"
	default:
		return "REAL"
	}
}

func (s *SQLite) createStatement() string {
	cols := make([]string, len(model.Schema))
	for i, f := range model.Schema {
		cols[i] = f.String() + " " + sqliteType(f.Type())
		if f == model.FieldDate || f == model.FieldSymbol {
			cols[i] += " NOT NULL"
		}
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", s.table, strings.Join(cols, ",\n\t"))
}

func (s *SQLite) Load(ctx context.Context, uri string) error {
	rows, err := s.source.Fetch(ctx, uri)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.createStatement()); err != nil {
		return fmt.Errorf("create staging table: %w", err)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(model.Schema)), ",")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.table, strings.Join(model.ColumnNames(), ", "), placeholders))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.Date.String(), r.Symbol, r.Open, r.High, r.Low, r.Close, r.AdjClose, r.Volume); err != nil {
			return fmt.Errorf("insert %s %s: %w", r.Symbol, r.Date, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	logger.Infof("loaded %s into %s (%d rows)", uri, s.table, len(rows))
	return nil
}

// Count returns the number of rows in the staging table.
func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.table).Scan(&n)
	return n, err
}
