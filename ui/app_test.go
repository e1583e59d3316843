package ui

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftahirops/healtop/api"
	"github.com/ftahirops/healtop/engine"
	"github.com/ftahirops/healtop/model"
)

type autoCall struct{ action, alertType string }

type fakeGateway struct {
	mu sync.Mutex

	snap      model.StatusSnapshot
	options   []model.ManualOption
	manualErr error

	statusCalls  int
	historyCalls int
	autoCalls    []autoCall
	manualCalls  [][]string
	dismissCalls int
}

func (f *fakeGateway) Status(context.Context) (model.StatusSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	return f.snap, nil
}

func (f *fakeGateway) History(context.Context) ([]model.HistoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls++
	return []model.HistoryItem{{Type: "DISK_RESOLVED", Timestamp: "2024-05-01T10:00:00"}}, nil
}

func (f *fakeGateway) ExecuteAuto(_ context.Context, action, alertType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.autoCalls = append(f.autoCalls, autoCall{action, alertType})
	return "Cleanup complete", nil
}

func (f *fakeGateway) ManualOptions(context.Context, model.Resource) ([]model.ManualOption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.options, nil
}

func (f *fakeGateway) ExecuteManual(_ context.Context, _ model.Resource, sel []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.manualCalls = append(f.manualCalls, sel)
	if f.manualErr != nil {
		return "", f.manualErr
	}
	return "Completed 1 actions", nil
}

func (f *fakeGateway) Dismiss(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dismissCalls++
	return "Alert dismissed", nil
}

func (f *fakeGateway) setSnap(s model.StatusSnapshot) {
	f.mu.Lock()
	f.snap = s
	f.mu.Unlock()
}

func newTestModel(gw Gateway, countdown int) Model {
	return NewModel(context.Background(), gw, Options{
		StatusInterval:  time.Hour,
		HistoryInterval: time.Hour,
		CountdownSec:    countdown,
		RequestTimeout:  time.Second,
	}, nil)
}

// collect runs cmd and everything it batches, returning the messages that
// arrive within a short window. Timer commands never fire inside it.
func collect(cmd tea.Cmd) []tea.Msg {
	out := make(chan tea.Msg, 64)
	launch := func(c tea.Cmd) {
		if c != nil {
			go func() { out <- c() }()
		}
	}
	launch(cmd)

	var msgs []tea.Msg
	deadline := time.After(150 * time.Millisecond)
	for {
		select {
		case msg := <-out:
			if batch, ok := msg.(tea.BatchMsg); ok {
				for _, c := range batch {
					launch(c)
				}
				continue
			}
			if msg != nil {
				msgs = append(msgs, msg)
			}
		case <-deadline:
			return msgs
		}
	}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

// step delivers msg and feeds back every resulting message once.
func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	m, cmd := update(t, m, msg)
	for _, r := range collect(cmd) {
		m, _ = update(t, m, r)
	}
	return m
}

func findMsg[T any](msgs []tea.Msg) (T, bool) {
	for _, msg := range msgs {
		if v, ok := msg.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func alertSnap(alertType, ts string) model.StatusSnapshot {
	return model.StatusSnapshot{
		Status: model.Metrics{CPU: 95, Memory: 40, Disk: 50},
		PendingAlert: &model.AlertRecord{
			AlertType:    alertType,
			Severity:     "high",
			Threshold:    "90%",
			CurrentUsage: "95%",
			Timestamp:    model.Text(ts),
		},
	}
}

func press(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestInit_PollsImmediately(t *testing.T) {
	m := newTestModel(&fakeGateway{}, 300)
	msgs := collect(m.Init())
	_, hasStatus := findMsg[statusTickMsg](msgs)
	_, hasHistory := findMsg[historyTickMsg](msgs)
	assert.True(t, hasStatus)
	assert.True(t, hasHistory)
}

func TestPoll_SameAlertDoesNotResetCountdown(t *testing.T) {
	gw := &fakeGateway{snap: alertSnap("CPU", "2024-05-01T10:00:00")}
	m := newTestModel(gw, 300)

	m = step(t, m, statusTickMsg(time.Now()))
	require.True(t, m.alert.Active())
	assert.Equal(t, 300, m.alert.Countdown.Remaining)
	gen := m.alert.Countdown.Gen

	for i := 0; i < 3; i++ {
		m, _ = update(t, m, countdownTickMsg{gen: gen})
	}
	assert.Equal(t, 297, m.alert.Countdown.Remaining)

	m = step(t, m, statusTickMsg(time.Now()))
	assert.Equal(t, 297, m.alert.Countdown.Remaining)
	assert.Equal(t, gen, m.alert.Countdown.Gen)
	assert.Equal(t, 2, gw.statusCalls)
}

func TestPoll_AlertHiddenThenShownRestarts(t *testing.T) {
	gw := &fakeGateway{snap: alertSnap("DISK", "1714557600")}
	m := newTestModel(gw, 300)

	m = step(t, m, statusTickMsg(time.Now()))
	m, _ = update(t, m, countdownTickMsg{gen: m.alert.Countdown.Gen})
	assert.Equal(t, 299, m.alert.Countdown.Remaining)

	gw.setSnap(model.StatusSnapshot{})
	m = step(t, m, statusTickMsg(time.Now()))
	assert.False(t, m.alert.Active())
	assert.Equal(t, engine.PhaseIdle, m.alert.Countdown.Phase)

	gw.setSnap(alertSnap("DISK", "1714557600"))
	m = step(t, m, statusTickMsg(time.Now()))
	assert.True(t, m.alert.Active())
	assert.Equal(t, 300, m.alert.Countdown.Remaining)
}

func TestCountdown_ExpiryRunsAutoAndRefreshes(t *testing.T) {
	gw := &fakeGateway{snap: alertSnap("DISK", "t1")}
	m := newTestModel(gw, 2)
	m = step(t, m, statusTickMsg(time.Now()))
	gen := m.alert.Countdown.Gen

	m, cmd := update(t, m, countdownTickMsg{gen: gen})
	require.NotNil(t, cmd)
	assert.Empty(t, gw.autoCalls)

	// Backend resolves the alert once the action has run.
	gw.setSnap(model.StatusSnapshot{})
	m, cmd = update(t, m, countdownTickMsg{gen: gen})
	done, ok := findMsg[actionDoneMsg](collect(cmd))
	require.True(t, ok)
	require.NoError(t, done.err)
	assert.Equal(t, []autoCall{{action: api.ActionAuto, alertType: "DISK"}}, gw.autoCalls)

	statusBefore, historyBefore := gw.statusCalls, gw.historyCalls
	m = step(t, m, done)
	assert.False(t, m.alert.Active())
	assert.Equal(t, statusBefore+1, gw.statusCalls)
	assert.Equal(t, historyBefore+1, gw.historyCalls)
	assert.Len(t, m.history, 1)

	// A stale tick of the expired timer does nothing.
	m, cmd = update(t, m, countdownTickMsg{gen: gen})
	assert.Nil(t, cmd)
	assert.Len(t, gw.autoCalls, 1)
}

func TestStatus_OutOfOrderResponseDropped(t *testing.T) {
	m := newTestModel(&fakeGateway{}, 300)
	older := m.statusSeq.Issue()
	newer := m.statusSeq.Issue()

	m, _ = update(t, m, statusMsg{seq: newer, snap: model.StatusSnapshot{Status: model.Metrics{CPU: 10}}})
	m, _ = update(t, m, statusMsg{seq: older, snap: alertSnap("CPU", "old")})

	assert.False(t, m.alert.Active())
	assert.Equal(t, 10.0, m.metrics.CPU)
}

func TestStatus_FailureLeavesStateUntouched(t *testing.T) {
	m := newTestModel(&fakeGateway{}, 300)
	m, _ = update(t, m, statusMsg{seq: m.statusSeq.Issue(), snap: alertSnap("CPU", "a")})
	require.True(t, m.alert.Active())

	m, _ = update(t, m, statusMsg{seq: m.statusSeq.Issue(), err: errors.New("connection refused")})
	assert.True(t, m.alert.Active())
	assert.Equal(t, 95.0, m.metrics.CPU)
}

func TestAction_SuccessDropsPollsIssuedBefore(t *testing.T) {
	gw := &fakeGateway{snap: alertSnap("CPU", "a")}
	m := newTestModel(gw, 300)
	m = step(t, m, statusTickMsg(time.Now()))
	inFlight := m.statusSeq.Issue()

	gw.setSnap(model.StatusSnapshot{})
	m, _ = update(t, m, actionDoneMsg{kind: actionAuto, message: "ok"})
	assert.False(t, m.alert.Active())

	m, _ = update(t, m, statusMsg{seq: inFlight, snap: alertSnap("CPU", "a")})
	assert.False(t, m.alert.Active())
}

func TestAutoKey_RequiresConfirmation(t *testing.T) {
	gw := &fakeGateway{snap: alertSnap("MEMORY", "a")}
	m := newTestModel(gw, 300)
	m = step(t, m, statusTickMsg(time.Now()))

	m, cmd := update(t, m, press("a"))
	assert.Nil(t, cmd)
	require.NotNil(t, m.confirm)

	m, _ = update(t, m, press("n"))
	assert.Nil(t, m.confirm)
	assert.Empty(t, gw.autoCalls)

	m, _ = update(t, m, press("s"))
	m, cmd = update(t, m, press("y"))
	_, ok := findMsg[actionDoneMsg](collect(cmd))
	assert.True(t, ok)
	assert.Equal(t, []autoCall{{action: api.ActionScale, alertType: "MEMORY"}}, gw.autoCalls)
}

func TestActionKeys_NoActiveAlert(t *testing.T) {
	gw := &fakeGateway{}
	m := newTestModel(gw, 300)
	m, cmd := update(t, m, press("d"))
	assert.Nil(t, cmd)
	assert.Nil(t, m.confirm)
	assert.Equal(t, "No active alert", m.notice)
}

func openManual(t *testing.T, gw *fakeGateway) Model {
	t.Helper()
	m := newTestModel(gw, 300)
	m = step(t, m, statusTickMsg(time.Now()))
	require.True(t, m.alert.Active())
	m = step(t, m, press("m"))
	require.True(t, m.session.IsOpen())
	require.Equal(t, engine.SessionReady, m.session.Phase)
	return m
}

func TestManual_EmptySubmitSendsNothing(t *testing.T) {
	gw := &fakeGateway{
		snap:    alertSnap("CPU", "a"),
		options: []model.ManualOption{{Kind: model.OptionProcess, PID: "42", Command: "stress"}},
	}
	m := openManual(t, gw)

	m, cmd := update(t, m, press("enter"))
	assert.Nil(t, cmd)
	assert.Nil(t, m.confirm)
	assert.Equal(t, "Please select at least one option", m.notice)
	assert.Empty(t, gw.manualCalls)
	assert.Equal(t, engine.SessionReady, m.session.Phase)
}

func TestManual_FailureKeepsSessionOpen(t *testing.T) {
	gw := &fakeGateway{
		snap:      alertSnap("CPU", "a"),
		options:   []model.ManualOption{{Kind: model.OptionProcess, PID: "42", Command: "stress"}},
		manualErr: errors.Mark(&api.ServerError{StatusCode: 500, Message: "kill failed"}, api.ErrRequestFailed),
	}
	m := openManual(t, gw)

	m, _ = update(t, m, press("x"))
	m, _ = update(t, m, press("enter"))
	require.NotNil(t, m.confirm)
	m = step(t, m, press("y"))

	assert.Equal(t, [][]string{{"42"}}, gw.manualCalls)
	assert.True(t, m.session.IsOpen())
	assert.Equal(t, engine.SessionReady, m.session.Phase)
	assert.True(t, m.session.Selected("42"))
	assert.True(t, m.alert.Active())
	assert.True(t, m.noticeErr)
	assert.Contains(t, m.notice, "kill failed")
}

func TestManual_SuccessClosesSessionAndAlert(t *testing.T) {
	gw := &fakeGateway{
		snap:    alertSnap("MEMORY", "a"),
		options: []model.ManualOption{{Kind: model.OptionAction, ActionID: "clear_cache", Name: "Clear cache"}},
	}
	m := openManual(t, gw)

	m, _ = update(t, m, press("x"))
	m, _ = update(t, m, press("enter"))
	gw.setSnap(model.StatusSnapshot{})
	m = step(t, m, press("y"))

	assert.Equal(t, [][]string{{model.MemoryCacheValue}}, gw.manualCalls)
	assert.False(t, m.session.IsOpen())
	assert.False(t, m.alert.Active())
}

func TestManual_UnavailableForServiceAlerts(t *testing.T) {
	gw := &fakeGateway{snap: alertSnap("SERVICE DOWN", "a")}
	m := newTestModel(gw, 300)
	m = step(t, m, statusTickMsg(time.Now()))

	m, cmd := update(t, m, press("m"))
	assert.Nil(t, cmd)
	assert.False(t, m.session.IsOpen())
	assert.True(t, m.noticeErr)
}

func TestManual_LateOptionsAfterCloseDropped(t *testing.T) {
	gw := &fakeGateway{snap: alertSnap("DISK", "a")}
	m := newTestModel(gw, 300)
	m = step(t, m, statusTickMsg(time.Now()))

	m, cmd := update(t, m, press("m"))
	opts, ok := findMsg[optionsMsg](collect(cmd))
	require.True(t, ok)

	m, _ = update(t, m, press("esc"))
	m, _ = update(t, m, opts)
	assert.False(t, m.session.IsOpen())
	assert.Empty(t, m.session.Rows)
}

func TestView_RendersAlertAndHistory(t *testing.T) {
	gw := &fakeGateway{snap: alertSnap("CPU", "a")}
	m := newTestModel(gw, 300)
	m = step(t, m, statusTickMsg(time.Now()))
	m = step(t, m, historyTickMsg(time.Now()))

	out := m.View()
	assert.Contains(t, out, "CPU Alert - 95%")
	assert.Contains(t, out, "⏰ 5:00")
	assert.Contains(t, out, "Kill high CPU processes")
	assert.Contains(t, out, "DISK_RESOLVED")
}

func TestHistoryHelpers(t *testing.T) {
	assert.Equal(t, "💻", HistoryIcon("CPU_RESOLVED"))
	assert.Equal(t, "🧠", HistoryIcon("memory_action"))
	assert.Equal(t, "✖️", HistoryIcon("ALERT_DISMISSED"))
	assert.Equal(t, "✅", HistoryIcon("SERVICE_RESTARTED"))
	assert.Equal(t, "warn", HistoryClass("ALERT_DISMISSED"))
	assert.Equal(t, "crit", HistoryClass("ACTION_ERROR"))
	assert.Equal(t, "", HistoryClass("DISK_RESOLVED"))
	assert.Equal(t, "garbage", HistoryTime("garbage"))
	assert.NotEqual(t, "2024-05-01T10:00:00", HistoryTime("2024-05-01T10:00:00"))
}

func TestConfirm_DroppedWhenAlertReplaced(t *testing.T) {
	gw := &fakeGateway{
		snap: alertSnap("CPU", "a"),
	}
	m := newTestModel(gw, 1)
	m = step(t, m, statusTickMsg(time.Now()))
	require.Equal(t, model.Fingerprint("CPU_a"), m.alert.ActiveID)

	m, _ = update(t, m, press("d"))
	require.NotNil(t, m.confirm)

	// The countdown runs auto for CPU_a; the refresh then reports a new alert.
	gw.setSnap(alertSnap("DISK", "b"))
	m, cmd := update(t, m, countdownTickMsg{gen: m.alert.Countdown.Gen})
	done, ok := findMsg[actionDoneMsg](collect(cmd))
	require.True(t, ok)
	m = step(t, m, done)
	require.Equal(t, model.Fingerprint("DISK_b"), m.alert.ActiveID)
	assert.Nil(t, m.confirm)

	m, cmd = update(t, m, press("y"))
	assert.Nil(t, cmd)
	assert.Zero(t, gw.dismissCalls)
	assert.True(t, m.alert.Active())
}

func TestConfirm_DroppedWhenAlertHidden(t *testing.T) {
	gw := &fakeGateway{snap: alertSnap("CPU", "a")}
	m := newTestModel(gw, 300)
	m = step(t, m, statusTickMsg(time.Now()))

	m, _ = update(t, m, press("a"))
	require.NotNil(t, m.confirm)

	m, _ = update(t, m, statusMsg{seq: m.statusSeq.Issue()})
	assert.False(t, m.alert.Active())
	assert.Nil(t, m.confirm)

	m, cmd := update(t, m, press("y"))
	assert.Nil(t, cmd)
	assert.Empty(t, gw.autoCalls)
}

func TestConfirm_StaleFingerprintCancels(t *testing.T) {
	gw := &fakeGateway{snap: alertSnap("DISK", "b")}
	m := newTestModel(gw, 300)
	m = step(t, m, statusTickMsg(time.Now()))
	m.confirm = &confirmation{kind: actionDismiss, prompt: "Dismiss?", fingerprint: "CPU_a"}

	m, cmd := update(t, m, press("y"))
	assert.Nil(t, cmd)
	assert.Nil(t, m.confirm)
	assert.Zero(t, gw.dismissCalls)
	assert.True(t, m.noticeErr)
	assert.Equal(t, "Alert changed, action cancelled", m.notice)
}

func TestCountdown_ExpiresDuringManualSession(t *testing.T) {
	gw := &fakeGateway{
		snap:    alertSnap("CPU", "a"),
		options: []model.ManualOption{{Kind: model.OptionProcess, PID: "42", Command: "stress"}},
	}
	m := newTestModel(gw, 1)
	m = step(t, m, statusTickMsg(time.Now()))
	m = step(t, m, press("m"))
	require.Equal(t, engine.SessionReady, m.session.Phase)

	m, _ = update(t, m, press("x"))
	m, _ = update(t, m, press("enter"))
	require.NotNil(t, m.confirm)

	// Auto wins the race while the operator is still deciding.
	gw.setSnap(model.StatusSnapshot{})
	m, cmd := update(t, m, countdownTickMsg{gen: m.alert.Countdown.Gen})
	done, ok := findMsg[actionDoneMsg](collect(cmd))
	require.True(t, ok)
	m = step(t, m, done)

	assert.Len(t, gw.autoCalls, 1)
	assert.False(t, m.alert.Active())
	assert.True(t, m.session.IsOpen())
	require.NotNil(t, m.confirm)

	// The manual path finishes second against an already cleared alert.
	m = step(t, m, press("y"))
	assert.Equal(t, [][]string{{"42"}}, gw.manualCalls)
	assert.False(t, m.session.IsOpen())
	assert.False(t, m.alert.Active())
	assert.False(t, m.noticeErr)
}

func TestView_HistoryLimitedToTen(t *testing.T) {
	m := newTestModel(&fakeGateway{}, 300)
	var items []model.HistoryItem
	for i := 0; i < 15; i++ {
		items = append(items, model.HistoryItem{Type: fmt.Sprintf("ITEM_%02d", i), Timestamp: "2024-05-01T10:00:00"})
	}
	m, _ = update(t, m, historyMsg{seq: m.historySeq.Issue(), items: items})

	out := m.View()
	for i := 0; i < 10; i++ {
		assert.Contains(t, out, fmt.Sprintf("ITEM_%02d", i))
	}
	for i := 10; i < 15; i++ {
		assert.NotContains(t, out, fmt.Sprintf("ITEM_%02d", i))
	}
}

func TestRefresh_IssuesFreshSequenceNumbers(t *testing.T) {
	gw := &fakeGateway{}
	m := newTestModel(gw, 300)
	for i := 0; i < 3; i++ {
		m, _ = update(t, m, statusTickMsg(time.Now()))
	}
	m, _ = update(t, m, press("r"))

	assert.Equal(t, uint64(5), m.statusSeq.Issue())
	assert.Equal(t, uint64(2), m.historySeq.Issue())
}
