package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"gamestats/internal/logger"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ParseDSN picks the dialect from the connection string. "sqlite:<path>" and
// "file:<path>" select SQLite; everything else is handed to the Postgres driver.
func ParseDSN(dsn string) (Dialect, string) {
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		return DialectSQLite, strings.TrimPrefix(dsn, "sqlite://")
	case strings.HasPrefix(dsn, "sqlite:"):
		return DialectSQLite, strings.TrimPrefix(dsn, "sqlite:")
	case strings.HasPrefix(dsn, "file:"):
		return DialectSQLite, dsn
	default:
		return DialectPostgres, dsn
	}
}

type runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries holds the statement helpers shared by DB and Tx. Statements are
// written with $N placeholders and rebound for SQLite.
type queries struct {
	r       runner
	dialect Dialect
}

func (q queries) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.r.ExecContext(ctx, rebind(q.dialect, query), args...)
}

func (q queries) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.r.QueryContext(ctx, rebind(q.dialect, query), args...)
}

func (q queries) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.r.QueryRowContext(ctx, rebind(q.dialect, query), args...)
}

type DB struct {
	queries
	conn *sql.DB
}

type Tx struct {
	queries
}

func Connect(ctx context.Context, dsn string) (*DB, error) {
	dialect, source := ParseDSN(dsn)

	driver := "postgres"
	if dialect == DialectSQLite {
		driver = "sqlite"
		if !strings.Contains(source, "?") {
			source += "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
		}
	}

	conn, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if dialect == DialectSQLite {
		// One writer at a time; SQLite serializes anyway.
		conn.SetMaxOpenConns(1)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	logger.Component(ctx, "db").Info("connected", "dialect", dialect)
	return &DB{queries: queries{r: conn, dialect: dialect}, conn: conn}, nil
}

func (d *DB) Dialect() Dialect {
	return d.dialect
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) Ping(ctx context.Context) error {
	return d.conn.PingContext(ctx)
}

// InTx runs fn in a transaction, committing when fn returns nil.
func (d *DB) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&Tx{queries: queries{r: sqlTx, dialect: d.dialect}}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// rebind turns $1..$N into ? for SQLite. Every statement in this package uses
// each placeholder once and in ascending order.
func rebind(dialect Dialect, query string) string {
	if dialect != DialectSQLite || !strings.Contains(query, "$") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); i++ {
		j := i + 1
		for query[i] == '$' && j < len(query) && query[j] >= '0' && query[j] <= '9' {
			j++
		}
		if j > i+1 {
			b.WriteByte('?')
			i = j - 1
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
