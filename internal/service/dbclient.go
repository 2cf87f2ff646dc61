package service

import (
	"context"
	"errors"

	"apiquery/internal/model"
)

var ErrNotFound = errors.New("record not found")

// Filter is one equality condition on a column.
type Filter struct {
	Column string
	Value  string
}

type DBClient interface {
	Connect(dsn string) error
	Disconnect() error
	ListRows(ctx context.Context, table string, filters []Filter) ([]model.Record, error)
	GetRow(ctx context.Context, table, idColumn string, id int64) (model.Record, error)
	RunQuery(ctx context.Context, query string) ([]model.Record, error)
}
