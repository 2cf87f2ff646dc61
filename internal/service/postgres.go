package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"apiquery/helper"
	"apiquery/internal/model"

	"github.com/lib/pq"
)

type PostgresClient struct {
	db *sql.DB
}

func NewPostgresClient() *PostgresClient {
	return &PostgresClient{}
}

func (p *PostgresClient) Connect(dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}
	p.db = db
	return nil
}

func (p *PostgresClient) Disconnect() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

func (p *PostgresClient) ListRows(ctx context.Context, table string, filters []Filter) ([]model.Record, error) {
	query, args, err := BuildSelect(table, filters)
	if err != nil {
		return nil, err
	}
	return p.query(ctx, query, args...)
}

func (p *PostgresClient) GetRow(ctx context.Context, table, idColumn string, id int64) (model.Record, error) {
	if !helper.IsValidIdentifier(table) || !helper.IsValidIdentifier(idColumn) {
		return model.Record{}, fmt.Errorf("invalid identifier %q.%q", table, idColumn)
	}
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = $1", pq.QuoteIdentifier(table), pq.QuoteIdentifier(idColumn))

	records, err := p.query(ctx, query, id)
	if err != nil {
		return model.Record{}, err
	}
	if len(records) == 0 {
		return model.Record{}, ErrNotFound
	}
	return records[0], nil
}

// RunQuery executes a caller-supplied read-only statement inside a read-only
// transaction.
func (p *PostgresClient) RunQuery(ctx context.Context, query string) ([]model.Record, error) {
	if !helper.IsReadOnlyQuery(query) {
		return nil, errors.New("only a single SELECT statement is allowed")
	}
	if p.db == nil {
		return nil, errors.New("not connected")
	}

	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (p *PostgresClient) query(ctx context.Context, query string, args ...any) ([]model.Record, error) {
	if p.db == nil {
		return nil, errors.New("not connected")
	}
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// BuildSelect renders SELECT * FROM table with one equality placeholder per filter.
func BuildSelect(table string, filters []Filter) (string, []any, error) {
	if !helper.IsValidIdentifier(table) {
		return "", nil, fmt.Errorf("invalid table name %q", table)
	}

	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(pq.QuoteIdentifier(table))

	args := make([]any, 0, len(filters))
	for i, f := range filters {
		if !helper.IsValidIdentifier(f.Column) {
			return "", nil, fmt.Errorf("invalid column name %q", f.Column)
		}
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		fmt.Fprintf(&b, "%s = $%d", pq.QuoteIdentifier(f.Column), i+1)
		args = append(args, f.Value)
	}
	return b.String(), args, nil
}

func scanRecords(rows *sql.Rows) ([]model.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	results := []model.Record{}
	for rows.Next() {
		columns := make([]any, len(cols))
		columnPointers := make([]any, len(cols))
		for i := range columns {
			columnPointers[i] = &columns[i]
		}

		if err := rows.Scan(columnPointers...); err != nil {
			return nil, err
		}

		values := make([]any, len(cols))
		for i := range columns {
			values[i] = displayValue(columns[i])
		}
		results = append(results, model.Record{Columns: cols, Values: values})
	}
	return results, rows.Err()
}

// displayValue turns driver byte slices (numeric, json, uuid, ...) into text
// so they are not base64-encoded on the way out.
func displayValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
