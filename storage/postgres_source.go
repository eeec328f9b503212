package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"madrid-dashboard/models"
	"madrid-dashboard/services"
	"madrid-dashboard/utils"
)

const undefinedColumn = "42703"

// PostgresSource reads listings from a PostgreSQL table. It never writes.
type PostgresSource struct {
	db    *sql.DB
	table string
}

// NewPostgresSource opens a connection and pings it under retry.
func NewPostgresSource(ctx context.Context, dsn, table string, retry *utils.RetryConfig) (*PostgresSource, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	err = retry.DoContext(ctx, "postgres ping", func() error {
		return db.PingContext(ctx)
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	return &PostgresSource{db: db, table: table}, nil
}

// Read selects the required columns of every row, ordered as stored.
func (ps *PostgresSource) Read(ctx context.Context) ([]services.RawRow, error) {
	cols := make([]string, len(models.RequiredColumns))
	for i, c := range models.RequiredColumns {
		cols[i] = pq.QuoteIdentifier(c)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), quoteTable(ps.table))

	rows, err := ps.db.QueryContext(ctx, query)
	if err != nil {
		return nil, ps.mapError(err)
	}
	defer rows.Close()

	var out []services.RawRow
	cells := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range cells {
		dest[i] = &cells[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		r := make(services.RawRow, len(cols))
		for i, c := range models.RequiredColumns {
			if cells[i].Valid {
				r[c] = cells[i].String
			}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, ps.mapError(err)
	}
	return out, nil
}

func (ps *PostgresSource) Close() error {
	return ps.db.Close()
}

func (ps *PostgresSource) mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == undefinedColumn {
		return &MissingColumnError{Column: columnFromMessage(pqErr.Message), Source: ps.table}
	}
	return fmt.Errorf("postgres: query %s: %w", ps.table, err)
}

// columnFromMessage extracts the name from `column "x" does not exist`.
func columnFromMessage(msg string) string {
	start := strings.IndexByte(msg, '"')
	if start < 0 {
		return msg
	}
	end := strings.IndexByte(msg[start+1:], '"')
	if end < 0 {
		return msg
	}
	return msg[start+1 : start+1+end]
}

func quoteTable(table string) string {
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

func isPostgresURL(path string) bool {
	return strings.HasPrefix(path, "postgres://") || strings.HasPrefix(path, "postgresql://")
}
