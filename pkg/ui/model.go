// Package ui implements the interactive qdash dashboard: a bubbletea program
// showing the job table next to a status donut, plus plain-text sinks for
// non-interactive output.
//
// The Update goroutine owns the reconcile.Engine and both view sinks. Fetches
// run as tea.Cmds and come back as SnapshotFetchedMsg, so rendering never
// races with a fetch.
package ui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/qdash/internal/datasource"
	"github.com/vanderheijden86/qdash/pkg/export"
	"github.com/vanderheijden86/qdash/pkg/model"
	"github.com/vanderheijden86/qdash/pkg/reconcile"
	"github.com/vanderheijden86/qdash/pkg/submit"
)

// Submitter is the part of submit.Trigger the model uses.
type Submitter interface {
	Submit(ctx context.Context, kind model.JobKind) error
}

// Options configures a Model.
type Options struct {
	Fetcher datasource.Fetcher
	// Submitter is nil for sources that cannot accept submissions.
	Submitter Submitter
	// Source is shown in the header.
	Source string
	// PollInterval enables continuous polling when > 0.
	PollInterval time.Duration
	// Changes triggers a refresh per receive (file source watcher).
	Changes   <-chan struct{}
	Legend    bool
	ExportDir string
	Theme     Theme
	Engine    reconcile.Config
	Context   context.Context
	// Clipboard overrides clipboard.WriteAll, for tests.
	Clipboard func(string) error
	Now       func() time.Time
}

const sideBySideMinWidth = 100

func freshnessWarnThreshold() time.Duration {
	return envDurationSeconds("QDASH_FRESHNESS_WARN_S", 30*time.Second)
}

func freshnessStaleThreshold() time.Duration {
	return envDurationSeconds("QDASH_FRESHNESS_STALE_S", 2*time.Minute)
}

// Model is the bubbletea model for the dashboard.
type Model struct {
	ctx       context.Context
	engine    *reconcile.Engine
	fetcher   datasource.Fetcher
	submitter Submitter
	table     *TableView
	chart     *ChartView
	theme     Theme

	source       string
	pollInterval time.Duration
	changes      <-chan struct{}
	exportDir    string
	copyFn       func(string) error
	now          func() time.Time

	keys       keyMap
	help       help.Model
	spinner    spinner.Model
	showHelp   bool
	helpCache  string
	helpWidth  int
	submitting bool

	// notice is the blocking submission failure; keys other than dismiss
	// and quit are ignored while it is set.
	notice    string
	noticeErr error
	statusMsg string

	width  int
	height int
}

// NewModel builds the dashboard model and its engine.
func NewModel(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	theme := opts.Theme
	if theme.Renderer == nil {
		theme = TestTheme()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if opts.Engine.Now == nil {
		opts.Engine.Now = now
	}
	copyFn := opts.Clipboard
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}

	table := NewTableView(theme)
	chart := NewChartView(theme, opts.Legend)

	sp := spinner.New(
		spinner.WithSpinner(spinner.MiniDot),
		spinner.WithStyle(theme.Spinner),
	)

	return Model{
		ctx:          ctx,
		engine:       reconcile.New(opts.Fetcher, table, chart, opts.Engine),
		fetcher:      opts.Fetcher,
		submitter:    opts.Submitter,
		table:        table,
		chart:        chart,
		theme:        theme,
		source:       opts.Source,
		pollInterval: opts.PollInterval,
		changes:      opts.Changes,
		exportDir:    opts.ExportDir,
		copyFn:       copyFn,
		now:          now,
		keys:         defaultKeyMap(),
		help:         help.New(),
		spinner:      sp,
		width:        80,
		height:       24,
	}
}

// Engine exposes the reconciliation engine, e.g. for health reporting.
func (m Model) Engine() *reconcile.Engine {
	return m.engine
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.startTick(), m.spinner.Tick, clockTickCmd()}
	if m.pollInterval > 0 {
		cmds = append(cmds, pollTickCmd(m.pollInterval))
	}
	if m.changes != nil {
		cmds = append(cmds, WatchChangesCmd(m.changes))
	}
	return tea.Batch(cmds...)
}

// startTick begins an engine tick and returns the fetch command, or nil when
// a tick is already in flight (the engine then schedules a follow-up).
func (m Model) startTick() tea.Cmd {
	if m.fetcher == nil {
		return nil
	}
	seq, ok := m.engine.Begin()
	if !ok {
		return nil
	}
	return fetchCmd(m.ctx, m.fetcher, seq)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case SnapshotFetchedMsg:
		res := m.engine.Complete(msg.Seq, msg.Snapshot, msg.Err)
		if res.FollowUp {
			return m, m.startTick()
		}
		return m, nil

	case RefreshMsg:
		return m, m.startTick()

	case SourceChangedMsg:
		return m, tea.Batch(m.startTick(), WatchChangesCmd(m.changes))

	case pollTickMsg:
		return m, tea.Batch(m.startTick(), pollTickCmd(m.pollInterval))

	case clockTickMsg:
		return m, clockTickCmd()

	case SubmitBusyMsg:
		m.submitting = msg.Busy
		return m, nil

	case SubmitFailedMsg:
		m.raiseNotice(msg.Err)
		return m, nil

	case submitDoneMsg:
		m.submitting = false
		switch {
		case errors.Is(msg.Err, submit.ErrInFlight):
			m.statusMsg = "A submission is already in progress"
		case msg.Err != nil:
			m.raiseNotice(msg.Err)
		default:
			m.statusMsg = fmt.Sprintf("Submitted %s job", msg.Kind)
		}
		return m, nil

	case exportDoneMsg:
		if msg.Err != nil {
			m.statusMsg = "Export failed: " + msg.Err.Error()
		} else {
			m.statusMsg = "Chart saved to " + msg.Path
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) raiseNotice(err error) {
	m.notice = submit.FailureText
	m.noticeErr = err
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.notice != "" {
		if key.Matches(msg, m.keys.Dismiss) {
			m.notice = ""
			m.noticeErr = nil
		}
		return m, nil
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	m.statusMsg = ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		if m.helpCache == "" || m.helpWidth != m.width {
			m.helpCache = renderHelp(m.width)
			m.helpWidth = m.width
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.startTick()

	case key.Matches(msg, m.keys.SubmitDone):
		return m.submit(model.KindCompleted)
	case key.Matches(msg, m.keys.SubmitQueued):
		return m.submit(model.KindQueued)
	case key.Matches(msg, m.keys.SubmitReject):
		return m.submit(model.KindRejected)

	case key.Matches(msg, m.keys.Copy):
		id := m.table.SelectedJobID()
		if id == "" {
			m.statusMsg = "No job selected"
			return m, nil
		}
		if err := m.copyFn(id); err != nil {
			m.statusMsg = "Clipboard error: " + err.Error()
		} else {
			m.statusMsg = "📋 Copied " + id + " to clipboard"
		}
		return m, nil

	case key.Matches(msg, m.keys.Export):
		cmd := m.exportCmd()
		return m, cmd

	case key.Matches(msg, m.keys.Legend):
		if m.chart.ToggleLegend() {
			m.statusMsg = "Legend on"
		} else {
			m.statusMsg = "Legend off"
		}
		return m, nil
	}
	return m, m.table.Update(msg)
}

func (m Model) submit(kind model.JobKind) (tea.Model, tea.Cmd) {
	if m.submitter == nil {
		m.statusMsg = "This source does not accept submissions"
		return m, nil
	}
	if m.submitting {
		m.statusMsg = "A submission is already in progress"
		return m, nil
	}
	m.submitting = true
	sub, ctx := m.submitter, m.ctx
	return m, func() tea.Msg {
		return submitDoneMsg{Kind: kind, Err: sub.Submit(ctx, kind)}
	}
}

func (m *Model) exportCmd() tea.Cmd {
	c := m.chart.Chart()
	if c == nil {
		m.statusMsg = "Nothing to export yet"
		return nil
	}
	opts := export.ChartSnapshotOptions{
		Path:        filepath.Join(m.exportDir, "qdash-chart-"+m.now().Format("20060102-150405")+".svg"),
		Source:      m.source,
		Data:        c.Data(),
		Legend:      m.chart.Legend(),
		GeneratedAt: m.now(),
	}
	return func() tea.Msg {
		path, err := export.SaveChartSnapshot(opts)
		return exportDoneMsg{Path: path, Err: err}
	}
}

func (m *Model) layout() {
	bodyH := m.height - 4
	if bodyH < 6 {
		bodyH = 6
	}
	if m.width >= sideBySideMinWidth {
		chartW := 40
		m.table.SetSize(m.width-chartW-4, bodyH-2)
		m.chart.SetSize(chartW-4, bodyH-2)
		return
	}
	chartH := bodyH / 2
	m.table.SetSize(m.width-2, bodyH-chartH)
	m.chart.SetSize(m.width-2, chartH)
}

// Freshness returns the footer staleness text.
func (m Model) Freshness() string {
	applied := m.engine.AppliedAt()
	_, err := m.engine.LastFailure()
	age := m.now().Sub(applied)

	switch {
	case err != nil && applied.IsZero():
		return m.theme.ErrorText.Render("stale · no data loaded")
	case err != nil:
		return m.theme.ErrorText.Render("stale · updated " + FormatAge(age) + " ago")
	case applied.IsZero():
		return m.theme.MutedText.Render("loading…")
	case m.pollInterval > 0 && age > freshnessStaleThreshold():
		return m.theme.WarnText.Render("stale · updated " + FormatAge(age) + " ago")
	case m.pollInterval > 0 && age > freshnessWarnThreshold():
		return m.theme.WarnText.Render("updated " + FormatAge(age) + " ago")
	default:
		return m.theme.OKText.Render("updated " + FormatAge(age) + " ago")
	}
}

func (m Model) View() string {
	header := m.renderHeader()
	footer := m.renderFooter()

	var body string
	switch {
	case m.notice != "":
		body = m.renderNotice()
	case m.showHelp:
		body = lipgloss.Place(m.width, m.height-3, lipgloss.Center, lipgloss.Center, m.helpCache)
	default:
		body = m.renderBody()
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m Model) renderHeader() string {
	title := m.theme.Header.Render("qdash")
	parts := []string{title}
	if m.source != "" {
		parts = append(parts, m.theme.MutedText.Render(m.source))
	}
	if m.engine.InFlight() || m.submitting {
		label := "refreshing"
		if m.submitting {
			label = "submitting"
		}
		parts = append(parts, m.spinner.View()+" "+m.theme.MutedText.Render(label))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderBody() string {
	tablePanel := m.theme.Panel.Render(m.table.View())
	chartPanel := m.theme.Panel.Render(m.chart.View())
	if m.width >= sideBySideMinWidth {
		return lipgloss.JoinHorizontal(lipgloss.Top, tablePanel, chartPanel)
	}
	return lipgloss.JoinVertical(lipgloss.Left, tablePanel, chartPanel)
}

func (m Model) renderNotice() string {
	lines := []string{m.theme.Notice.Render(m.notice)}
	if m.noticeErr != nil {
		lines = append(lines, "", m.theme.MutedText.Render(truncate(m.noticeErr.Error(), 70)))
	}
	lines = append(lines, "", m.theme.MutedText.Render("press enter to dismiss"))
	box := m.theme.Modal.Render(lipgloss.JoinVertical(lipgloss.Center, lines...))
	return lipgloss.Place(m.width, m.height-3, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) renderFooter() string {
	left := m.Freshness()
	if m.statusMsg != "" {
		left += "  " + m.theme.Footer.Render(m.statusMsg)
	}
	m.help.Width = m.width - lipgloss.Width(left) - 2
	return left + "  " + m.help.View(m.keys)
}

// Table returns the table view (used by tests and the snapshot command).
func (m Model) Table() *TableView {
	return m.table
}

// ChartView returns the chart view.
func (m Model) ChartView() *ChartView {
	return m.chart
}

// StatusMessage returns the transient footer message.
func (m Model) StatusMessage() string {
	return m.statusMsg
}

// Notice returns the blocking notice text, "" when none is shown.
func (m Model) Notice() string {
	return m.notice
}

// Submitting reports whether the busy indicator is on.
func (m Model) Submitting() bool {
	return m.submitting
}
