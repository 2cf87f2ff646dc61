package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is a database row that keeps its column order when encoded to JSON.
type Record struct {
	Columns []string
	Values  []any
}

func (r Record) MarshalJSON() ([]byte, error) {
	if len(r.Columns) != len(r.Values) {
		return nil, fmt.Errorf("record has %d columns but %d values", len(r.Columns), len(r.Values))
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.Values[i])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get returns the value of the named column.
func (r Record) Get(column string) (any, bool) {
	for i, col := range r.Columns {
		if col == column && i < len(r.Values) {
			return r.Values[i], true
		}
	}
	return nil, false
}
