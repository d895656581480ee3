package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/qdash/internal/datasource"
	"github.com/vanderheijden86/qdash/pkg/model"
	"github.com/vanderheijden86/qdash/pkg/reconcile"
	"github.com/vanderheijden86/qdash/pkg/submit"
)

// SnapshotFetchedMsg carries the outcome of one asynchronous fetch back to
// the Update loop, tagged with the engine sequence it was started under.
type SnapshotFetchedMsg struct {
	Seq      uint64
	Snapshot model.JobSnapshot
	Err      error
}

// RefreshMsg asks the model to start a tick.
type RefreshMsg struct{}

// SourceChangedMsg is sent when the file source changes on disk.
type SourceChangedMsg struct{}

// SubmitBusyMsg reports the submission busy indicator state.
type SubmitBusyMsg struct{ Busy bool }

// SubmitFailedMsg raises the blocking submission failure notice.
type SubmitFailedMsg struct{ Err error }

// submitDoneMsg is returned by the submit command itself.
type submitDoneMsg struct {
	Kind model.JobKind
	Err  error
}

// exportDoneMsg reports a chart export.
type exportDoneMsg struct {
	Path string
	Err  error
}

type pollTickMsg struct{}

type clockTickMsg struct{}

// SubmitHooks wires a submit.Trigger to a running program. send is usually
// (*tea.Program).Send.
func SubmitHooks(send func(tea.Msg)) submit.Hooks {
	return submit.Hooks{
		Busy:    func(b bool) { send(SubmitBusyMsg{Busy: b}) },
		Failed:  func(err error) { send(SubmitFailedMsg{Err: err}) },
		Refresh: func() { send(RefreshMsg{}) },
	}
}

func fetchCmd(ctx context.Context, f datasource.Fetcher, seq uint64) tea.Cmd {
	return func() tea.Msg {
		snap, err := reconcile.SafeFetch(ctx, f)
		return SnapshotFetchedMsg{Seq: seq, Snapshot: snap, Err: err}
	}
}

func pollTickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return pollTickMsg{} })
}

func clockTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return clockTickMsg{} })
}

// WatchChangesCmd waits for one signal on ch and reports it as a
// SourceChangedMsg. The model re-arms it after each change.
func WatchChangesCmd(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return SourceChangedMsg{}
	}
}
