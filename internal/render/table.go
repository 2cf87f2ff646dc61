// Package render prints a session state to a terminal.
package render

import (
	"fmt"
	"io"

	"apiquery/internal/model"
	"apiquery/internal/session"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

type Options struct {
	NoColor bool
	// MaxCellWidth truncates long cells; 0 disables truncation.
	MaxCellWidth int
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")).Padding(0, 1)
	evenRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Padding(0, 1)
	oddRowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	plainCell    = lipgloss.NewStyle().Padding(0, 1)
)

// Table renders t as a bordered grid. Every row is cut or padded to the
// column count so short and long rows still line up in the grid.
func Table(t *model.Table, opts Options) string {
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(t.Columns...)

	for i := range t.Rows {
		cells := make([]string, len(t.Columns))
		for j := range cells {
			cells[j] = truncate(t.Cell(i, j), opts.MaxCellWidth)
		}
		tbl.Row(cells...)
	}

	tbl.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case opts.NoColor:
			return plainCell
		case row == table.HeaderRow:
			return headerStyle
		case row%2 == 0:
			return evenRowStyle
		default:
			return oddRowStyle
		}
	})
	return tbl.String()
}

// State writes the table, the no-data message or the error message.
func State(w io.Writer, st session.State, opts Options) error {
	var out string
	switch st.Phase {
	case session.Success:
		out = Table(st.Table, opts)
		out += "\n" + style(mutedStyle, opts).Render(fmt.Sprintf("%d row(s)", len(st.Table.Rows)))
	case session.Empty:
		out = style(mutedStyle, opts).Render(st.Message())
	case session.Error:
		out = style(errorStyle, opts).Render(st.Message())
	case session.Loading:
		out = style(mutedStyle, opts).Render("Loading...")
	default:
		return nil
	}
	_, err := fmt.Fprintln(w, out)
	return err
}

func style(s lipgloss.Style, opts Options) lipgloss.Style {
	if opts.NoColor {
		return lipgloss.NewStyle()
	}
	return s
}

func truncate(s string, limit int) string {
	if limit <= 0 || lipgloss.Width(s) <= limit {
		return s
	}
	runes := []rune(s)
	if limit <= 1 || len(runes) <= limit {
		return string(runes[:min(limit, len(runes))])
	}
	return string(runes[:limit-1]) + "…"
}
