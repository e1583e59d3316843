package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ftahirops/healtop/model"
)

// Gateway is the remediation backend as seen by the console.
type Gateway interface {
	Status(ctx context.Context) (model.StatusSnapshot, error)
	History(ctx context.Context) ([]model.HistoryItem, error)
	ExecuteAuto(ctx context.Context, action, alertType string) (string, error)
	ManualOptions(ctx context.Context, resource model.Resource) ([]model.ManualOption, error)
	ExecuteManual(ctx context.Context, resource model.Resource, selections []string) (string, error)
	Dismiss(ctx context.Context) (string, error)
}

type statusTickMsg time.Time

type historyTickMsg time.Time

type countdownTickMsg struct{ gen uint64 }

type statusMsg struct {
	seq  uint64
	snap model.StatusSnapshot
	err  error
}

type historyMsg struct {
	seq   uint64
	items []model.HistoryItem
	err   error
}

type optionsMsg struct {
	session uint64
	opts    []model.ManualOption
	err     error
}

// actionKind names the operator or timer initiated request.
type actionKind int

const (
	actionAuto actionKind = iota
	actionScale
	actionManual
	actionDismiss
)

func (k actionKind) String() string {
	switch k {
	case actionScale:
		return "scale"
	case actionManual:
		return "manual"
	case actionDismiss:
		return "dismiss"
	}
	return "auto"
}

type actionDoneMsg struct {
	kind    actionKind
	session uint64
	message string
	err     error
}

func statusTick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return statusTickMsg(t) })
}

func historyTick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return historyTickMsg(t) })
}

func countdownTick(gen uint64) tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return countdownTickMsg{gen: gen} })
}

// emit delivers msg on the next loop iteration.
func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

func (m Model) requestCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(m.ctx, m.opts.RequestTimeout)
}

func (m Model) fetchStatus(seq uint64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.requestCtx()
		defer cancel()
		snap, err := m.gw.Status(ctx)
		return statusMsg{seq: seq, snap: snap, err: err}
	}
}

func (m Model) fetchHistory(seq uint64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.requestCtx()
		defer cancel()
		items, err := m.gw.History(ctx)
		return historyMsg{seq: seq, items: items, err: err}
	}
}

func (m Model) fetchOptions(session uint64, resource model.Resource) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.requestCtx()
		defer cancel()
		opts, err := m.gw.ManualOptions(ctx, resource)
		return optionsMsg{session: session, opts: opts, err: err}
	}
}

func (m Model) executeAuto(kind actionKind, action, alertType string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.requestCtx()
		defer cancel()
		msg, err := m.gw.ExecuteAuto(ctx, action, alertType)
		return actionDoneMsg{kind: kind, message: msg, err: err}
	}
}

func (m Model) executeManual(session uint64, resource model.Resource, selections []string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.requestCtx()
		defer cancel()
		msg, err := m.gw.ExecuteManual(ctx, resource, selections)
		return actionDoneMsg{kind: actionManual, session: session, message: msg, err: err}
	}
}

func (m Model) dismiss() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.requestCtx()
		defer cancel()
		msg, err := m.gw.Dismiss(ctx)
		return actionDoneMsg{kind: actionDismiss, message: msg, err: err}
	}
}
