// Package tui is the terminal front end of the query client. It subscribes to
// a session.Controller and renders whatever state it publishes.
package tui

import (
	"context"
	"fmt"
	"strings"

	"apiquery/internal/model"
	"apiquery/internal/session"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxColumnWidth = 32

var (
	accent = lipgloss.Color("#818CF8")
	muted  = lipgloss.Color("#9CA3AF")
	danger = lipgloss.Color("#F87171")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(accent).MarginBottom(1)
	labelStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#D1D5DB"))
	selectorStyle = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(muted)
	errorStyle    = lipgloss.NewStyle().Foreground(danger).Bold(true)
	helpStyle     = lipgloss.NewStyle().Foreground(muted).MarginTop(1)
	tableBox      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#4B5563"))
)

type stateMsg session.State

type Model struct {
	ctrl   *session.Controller
	ctx    context.Context
	states chan session.State
	unsub  func()

	resourceIdx int
	rawMode     bool
	input       textinput.Model
	spinner     spinner.Model
	table       table.Model
	state       session.State

	width  int
	height int
}

// New builds a model bound to ctrl. ctx carries the logger and bounds requests.
func New(ctx context.Context, ctrl *session.Controller) Model {
	input := textinput.New()
	input.Placeholder = "?filter=value"
	input.Prompt = "> "
	input.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(accent)

	tbl := table.New(table.WithFocused(true), table.WithHeight(10))
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#4B5563")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("#F9FAFB")).Background(lipgloss.Color("#4F46E5"))
	tbl.SetStyles(styles)

	states := make(chan session.State, 8)
	unsub := ctrl.Subscribe(func(s session.State) {
		// keep only the newest states when the UI falls behind
		for {
			select {
			case states <- s:
				return
			default:
				select {
				case <-states:
				default:
				}
			}
		}
	})

	return Model{
		ctrl:    ctrl,
		ctx:     ctx,
		states:  states,
		unsub:   unsub,
		input:   input,
		spinner: sp,
		table:   tbl,
		state:   ctrl.State(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForState(m.states))
}

func waitForState(ch <-chan session.State) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ch)
	}
}

// Resource is the currently selected resource.
func (m Model) Resource() model.Resource {
	return model.ResourceOrder[m.resourceIdx]
}

// State is the last state received from the controller.
func (m Model) State() session.State {
	return m.state
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetHeight(max(3, msg.Height-14))
		return m, nil

	case stateMsg:
		m.state = session.State(msg)
		cmds := []tea.Cmd{waitForState(m.states)}
		switch m.state.Phase {
		case session.Loading:
			cmds = append(cmds, m.spinner.Tick)
		case session.Success:
			m.setTable(m.state.Table)
		}
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		if m.state.Phase != session.Loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		if m.unsub != nil {
			m.unsub()
		}
		return m, tea.Quit

	case "enter":
		// the trigger is disabled while a request is in flight
		if m.state.Phase == session.Loading {
			return m, nil
		}
		return m, m.submit()

	case "tab":
		if !m.rawMode {
			m.resourceIdx = (m.resourceIdx + 1) % len(model.ResourceOrder)
		}
		return m, nil

	case "shift+tab":
		if !m.rawMode {
			m.resourceIdx = (m.resourceIdx + len(model.ResourceOrder) - 1) % len(model.ResourceOrder)
		}
		return m, nil

	case "ctrl+r":
		m.rawMode = !m.rawMode
		if m.rawMode {
			m.input.Placeholder = "SELECT * FROM users"
		} else {
			m.input.Placeholder = "?filter=value"
		}
		m.input.SetValue("")
		return m, nil

	case "up", "down", "pgup", "pgdown", "home", "end":
		if m.state.Phase == session.Success {
			var cmd tea.Cmd
			m.table, cmd = m.table.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit runs the query off the event loop; the outcome arrives as a stateMsg.
func (m Model) submit() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	resource, text, raw := m.Resource(), m.input.Value(), m.rawMode
	return func() tea.Msg {
		if raw {
			ctrl.SubmitRaw(ctx, text)
		} else {
			ctrl.Submit(ctx, resource, text)
		}
		return nil
	}
}

func (m *Model) setTable(t *model.Table) {
	cols := make([]table.Column, len(t.Columns))
	for i, name := range t.Columns {
		w := lipgloss.Width(name)
		for r := range t.Rows {
			w = max(w, lipgloss.Width(t.Cell(r, i)))
		}
		cols[i] = table.Column{Title: name, Width: min(w, maxColumnWidth)}
	}

	// bubbles/table indexes columns by cell position, so rows must match the column count
	rows := make([]table.Row, len(t.Rows))
	for r := range t.Rows {
		row := make(table.Row, len(cols))
		for c := range cols {
			row[c] = t.Cell(r, c)
		}
		rows[r] = row
	}

	m.table.SetRows(nil)
	m.table.SetColumns(cols)
	m.table.SetRows(rows)
	m.table.SetCursor(0)
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("API Query"))
	b.WriteString("\n")

	if m.rawMode {
		b.WriteString(labelStyle.Render("Raw query:"))
	} else {
		b.WriteString(labelStyle.Render("Table: "))
		b.WriteString(selectorStyle.Render("< " + m.Resource().Label() + " >"))
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("Optional query string:"))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	switch m.state.Phase {
	case session.Loading:
		b.WriteString(m.spinner.View() + " Loading data")
	case session.Success:
		b.WriteString(tableBox.Render(m.table.View()))
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(fmt.Sprintf("%d row(s) from %s", len(m.state.Table.Rows), m.state.Request.URL)))
	case session.Empty:
		b.WriteString(mutedStyle.Render(m.state.Message()))
	case session.Error:
		b.WriteString(errorStyle.Render(m.state.Message()))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter: fetch • tab: next table • ctrl+r: raw mode • ↑/↓: scroll • esc: quit"))
	return b.String()
}

// Run starts the program and blocks until the user quits.
func Run(ctx context.Context, ctrl *session.Controller) error {
	m := New(ctx, ctrl)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if m.unsub != nil {
		m.unsub()
	}
	return err
}
