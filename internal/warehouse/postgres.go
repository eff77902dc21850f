package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"PriceLakehouse/internal/logger"
	"PriceLakehouse/internal/model"
	"PriceLakehouse/internal/snapshot"
)

// Postgres appends snapshot rows into a Postgres table with COPY.
type Postgres struct {
	pool   *pgxpool.Pool
	source snapshot.Reader
	schema string
	table  string
}

func NewPostgres(ctx context.Context, dsn, schema, table string, source snapshot.Reader) (*Postgres, error) {
	if err := checkIdent("schema", schema); err != nil {
		return nil, err
	}
	if err := checkIdent("table", table); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	return &Postgres{pool: pool, source: source, schema: schema, table: table}, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func postgresType(t model.ColumnType) string {
	switch t {
	case model.TypeDate:
		return "DATE"
	case model.TypeString:
		return "TEXT"
	case model.TypeInt:
		return "BIGINT"
	default:
		return "DOUBLE PRECISION"
	}
}

func (p *Postgres) ident() pgx.Identifier { return pgx.Identifier{p.schema, p.table} }

// createStatements returns the DDL for the staging schema and table.
func (p *Postgres) createStatements() []string {
	cols := ""
	for i, f := range model.Schema {
		if i > 0 {
			cols += ",\n\t"
		}
		cols += pgx.Identifier{f.String()}.Sanitize() + " " + postgresType(f.Type())
		if f == model.FieldDate || f == model.FieldSymbol {
			cols += " NOT NULL"
		}
	}
	return []string{
		"CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{p.schema}.Sanitize(),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", p.ident().Sanitize(), cols),
	}
}

func (p *Postgres) Load(ctx context.Context, uri string) error {
	rows, err := p.source.Fetch(ctx, uri)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	err = pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		for _, stmt := range p.createStatements() {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("create staging table: %w", err)
			}
		}
		n, err := tx.CopyFrom(ctx, p.ident(), model.ColumnNames(), pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.Date.In(time.UTC), r.Symbol, r.Open, r.High, r.Low, r.Close, r.AdjClose, r.Volume}, nil
		}))
		if err != nil {
			return fmt.Errorf("copy rows: %w", err)
		}
		if int(n) != len(rows) {
			return fmt.Errorf("copied %d of %d rows", n, len(rows))
		}
		return nil
	})
	if err != nil {
		return err
	}
	logger.Infof("loaded %s into %s (%d rows)", uri, p.ident().Sanitize(), len(rows))
	return nil
}
