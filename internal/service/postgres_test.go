package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSelect(t *testing.T) {
	tests := []struct {
		name         string
		table        string
		filters      []Filter
		expectedSQL  string
		expectedArgs []any
		expectErr    bool
	}{
		{
			name:         "no filters",
			table:        "users",
			expectedSQL:  `SELECT * FROM "users"`,
			expectedArgs: []any{},
		},
		{
			name:         "one filter",
			table:        "users",
			filters:      []Filter{{Column: "firstname", Value: "Clara"}},
			expectedSQL:  `SELECT * FROM "users" WHERE "firstname" = $1`,
			expectedArgs: []any{"Clara"},
		},
		{
			name:  "several filters",
			table: "course_assignment",
			filters: []Filter{
				{Column: "course", Value: "3"},
				{Column: "student", Value: "5"},
			},
			expectedSQL:  `SELECT * FROM "course_assignment" WHERE "course" = $1 AND "student" = $2`,
			expectedArgs: []any{"3", "5"},
		},
		{
			name:      "bad table",
			table:     `users"; DROP TABLE users; --`,
			expectErr: true,
		},
		{
			name:      "bad column",
			table:     "users",
			filters:   []Filter{{Column: "1=1 OR id", Value: "x"}},
			expectErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sql, args, err := BuildSelect(tc.table, tc.filters)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedSQL, sql)
			assert.Equal(t, tc.expectedArgs, args)
		})
	}
}

func TestDisplayValue(t *testing.T) {
	assert.Equal(t, "12.50", displayValue([]byte("12.50")))
	assert.Equal(t, int64(3), displayValue(int64(3)))
	assert.Nil(t, displayValue(nil))
}

func TestPostgresClientNotConnected(t *testing.T) {
	p := NewPostgresClient()
	ctx := context.Background()

	_, err := p.ListRows(ctx, "users", nil)
	assert.EqualError(t, err, "not connected")

	_, err = p.RunQuery(ctx, "DELETE FROM users")
	assert.EqualError(t, err, "only a single SELECT statement is allowed")

	_, err = p.RunQuery(ctx, "SELECT 1")
	assert.EqualError(t, err, "not connected")

	_, err = p.GetRow(ctx, "users", "id; --", 1)
	assert.Error(t, err)

	assert.NoError(t, p.Disconnect())
}
