package model

// Row holds the display cells of one result row, in the row's own key order.
type Row []string

// Table is the canonical tabular form of a response. Columns come from the
// first row; later rows are not re-aligned against them.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// Cell returns the cell at the given position, or "" when the row is
// shorter than the column set.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}
