package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/qdash/pkg/reconcile"
)

// Minimum and preferred widths per column: id, status, backend, qubits,
// shots, submitted.
var (
	columnMin  = []int{8, 11, 10, 6, 6, 10}
	columnPref = []int{36, 13, 24, 6, 7, 19}
)

// TableView is the TUI job table. It implements reconcile.TableSink.
type TableView struct {
	theme   Theme
	table   table.Model
	rows    []reconcile.TableRow
	message string
	isError bool
	width   int
	height  int
	renders int
}

// NewTableView creates an empty, focused table.
func NewTableView(theme Theme) *TableView {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.Border).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(ColorText).
		Background(theme.Highlight).
		Bold(true)

	t := table.New(
		table.WithColumns(columnsFor(80)),
		table.WithFocused(true),
		table.WithHeight(10),
		table.WithStyles(styles),
	)
	return &TableView{theme: theme, table: t, width: 80, height: 12}
}

// RenderRows replaces the table contents. A single message row (the empty
// placeholder) is shown as a spanning line instead of table cells.
func (v *TableView) RenderRows(rows []reconcile.TableRow) {
	v.renders++
	v.rows = rows
	v.isError = false
	if len(rows) == 1 && rows[0].IsMessage() {
		v.message = rows[0].Message
		v.table.SetRows(nil)
		return
	}
	v.message = ""

	out := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		cells := r.Cells()
		if !r.IsMessage() {
			cells[1] = StatusGlyph(r.Class) + " " + cells[1]
		}
		out = append(out, table.Row(cells))
	}
	cursor := v.table.Cursor()
	v.table.SetRows(out)
	if cursor >= len(out) {
		cursor = len(out) - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	v.table.SetCursor(cursor)
}

// ShowNotice replaces the table with one explanatory row.
func (v *TableView) ShowNotice(n reconcile.Notice) {
	v.renders++
	v.rows = nil
	v.message = n.Text
	v.isError = true
	v.table.SetRows(nil)
}

// SetSize fits the table into width x height cells.
func (v *TableView) SetSize(width, height int) {
	if width < 20 {
		width = 20
	}
	if height < 4 {
		height = 4
	}
	v.width = width
	v.height = height
	v.table.SetColumns(columnsFor(width))
	v.table.SetWidth(width)
	v.table.SetHeight(height - 2)
}

// Update forwards navigation keys to the table.
func (v *TableView) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	v.table, cmd = v.table.Update(msg)
	return cmd
}

// SelectedJobID returns the id under the cursor, or "" when no job row is
// shown.
func (v *TableView) SelectedJobID() string {
	if v.message != "" || len(v.rows) == 0 {
		return ""
	}
	i := v.table.Cursor()
	if i < 0 || i >= len(v.rows) {
		return ""
	}
	return v.rows[i].JobID
}

// Message returns the spanning message currently shown, if any.
func (v *TableView) Message() string {
	return v.message
}

// Rows returns the last rendered rows.
func (v *TableView) Rows() []reconcile.TableRow {
	return v.rows
}

// Renders counts RenderRows and ShowNotice calls.
func (v *TableView) Renders() int {
	return v.renders
}

func (v *TableView) View() string {
	if v.message == "" {
		return v.table.View()
	}

	cols := v.table.Columns()
	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = fit(c.Title, c.Width)
	}
	header := v.theme.Renderer.NewStyle().
		Bold(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(v.theme.Border).
		Render(" " + strings.Join(headers, "  "))

	style := v.theme.MutedText
	if v.isError {
		style = v.theme.Notice
	}
	line := style.Width(v.width).Align(lipgloss.Center).Render(truncate(v.message, v.width))
	return lipgloss.JoinVertical(lipgloss.Left, header, "", line)
}

// columnsFor distributes width across the six columns, starting from the
// minimums and growing toward the preferred widths left to right.
func columnsFor(width int) []table.Column {
	gaps := 2 * len(reconcile.Columns)
	avail := width - gaps
	widths := make([]int, len(columnMin))
	used := 0
	for i, w := range columnMin {
		widths[i] = w
		used += w
	}
	for i := range widths {
		if used >= avail {
			break
		}
		grow := columnPref[i] - widths[i]
		if grow > avail-used {
			grow = avail - used
		}
		widths[i] += grow
		used += grow
	}
	if used < avail {
		widths[0] += avail - used
	}

	cols := make([]table.Column, len(widths))
	for i, w := range widths {
		cols[i] = table.Column{Title: reconcile.Columns[i], Width: w}
	}
	return cols
}
