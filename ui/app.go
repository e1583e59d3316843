package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/ftahirops/healtop/api"
	"github.com/ftahirops/healtop/engine"
	"github.com/ftahirops/healtop/model"
)

// Options holds the console's timings.
type Options struct {
	StatusInterval  time.Duration
	HistoryInterval time.Duration
	CountdownSec    int
	HistoryLimit    int
	RequestTimeout  time.Duration
	Endpoint        string // shown in the header
}

func (o *Options) defaults() {
	if o.StatusInterval <= 0 {
		o.StatusInterval = 5 * time.Second
	}
	if o.HistoryInterval <= 0 {
		o.HistoryInterval = 30 * time.Second
	}
	if o.CountdownSec <= 0 {
		o.CountdownSec = engine.DefaultCountdownSec
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = 10
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
}

// confirmation is a pending yes/no question. Nothing runs until the
// operator answers it.
type confirmation struct {
	kind        actionKind
	prompt      string
	selections  []string
	fingerprint model.Fingerprint // alert the question was asked about
}

// Model is the bubbletea model. All state changes happen in Update, on the
// program's single event loop; requests run as commands and report back as
// messages in whatever order they complete.
type Model struct {
	ctx  context.Context
	gw   Gateway
	opts Options
	log  *zap.Logger

	width  int
	height int

	// Status
	metrics     model.Metrics
	hasStatus   bool
	lastUpdated time.Time
	statusSeq   engine.Sequencer

	// Alert identity and countdown
	alert engine.AlertState

	// History
	history    []model.HistoryItem
	historySeq engine.Sequencer

	// Manual selection
	session   *engine.Session
	sessionID uint64
	spinner   spinner.Model

	confirm *confirmation

	notice    string
	noticeErr bool
	noticeAt  time.Time

	help help.Model
}

// NewModel creates the console model.
func NewModel(ctx context.Context, gw Gateway, opts Options, log *zap.Logger) Model {
	opts.defaults()
	if log == nil {
		log = zap.NewNop()
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = titleStyle
	return Model{
		ctx:     ctx,
		gw:      gw,
		opts:    opts,
		log:     log.Named("ui"),
		spinner: sp,
		help:    help.New(),
	}
}

// Init polls status and history immediately; the tick handlers re-arm their
// own fixed intervals from there.
func (m Model) Init() tea.Cmd {
	t := time.Now()
	return tea.Batch(emit(statusTickMsg(t)), emit(historyTickMsg(t)))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case statusTickMsg:
		// No overlap guard: a slow response does not delay the next poll.
		poll := m.pollStatus()
		return m, tea.Batch(poll, statusTick(m.opts.StatusInterval))

	case historyTickMsg:
		poll := m.pollHistory()
		return m, tea.Batch(poll, historyTick(m.opts.HistoryInterval))

	case statusMsg:
		return m.applyStatus(msg)

	case historyMsg:
		if msg.err != nil {
			m.log.Warn("history fetch failed", zap.Error(msg.err))
			return m, nil
		}
		if !m.historySeq.Accept(msg.seq) {
			m.log.Debug("stale history response dropped", zap.Uint64("seq", msg.seq))
			return m, nil
		}
		m.history = msg.items
		return m, nil

	case countdownTickMsg:
		return m.applyCountdownTick(msg)

	case optionsMsg:
		if msg.err != nil {
			if m.session.Fail(msg.session, msg.err) {
				m.log.Warn("manual options fetch failed", zap.Error(msg.err))
			}
			return m, nil
		}
		if !m.session.Load(msg.session, msg.opts) {
			m.log.Debug("late manual options dropped", zap.Uint64("session", msg.session))
		}
		return m, nil

	case actionDoneMsg:
		return m.applyActionDone(msg)

	case spinner.TickMsg:
		if m.session == nil || m.session.Phase != engine.SessionLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) pollStatus() tea.Cmd {
	return m.fetchStatus(m.statusSeq.Issue())
}

func (m *Model) pollHistory() tea.Cmd {
	return m.fetchHistory(m.historySeq.Issue())
}

// refresh polls status and history now. Sequence numbers are issued here,
// before the caller returns the model.
func (m *Model) refresh() tea.Cmd {
	status := m.pollStatus()
	history := m.pollHistory()
	return tea.Batch(status, history)
}

// dropAlertConfirm discards a pending auto, scale or dismiss question. Those
// are about one alert; a manual question belongs to the open session.
func (m *Model) dropAlertConfirm() {
	if m.confirm != nil && m.confirm.kind != actionManual {
		m.confirm = nil
	}
}

// applyStatus hands a fresh snapshot to the alert tracker. Failures and stale
// responses leave everything on screen untouched.
func (m Model) applyStatus(msg statusMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.log.Warn("status poll failed", zap.Error(msg.err))
		return m, nil
	}
	if !m.statusSeq.Accept(msg.seq) {
		m.log.Debug("stale status response dropped", zap.Uint64("seq", msg.seq))
		return m, nil
	}

	m.metrics = msg.snap.Status
	m.hasStatus = true
	m.lastUpdated = msg.snap.ReceivedAt
	if m.lastUpdated.IsZero() {
		m.lastUpdated = time.Now()
	}

	var tr engine.Transition
	m.alert, tr = engine.Reconcile(m.alert, msg.snap, m.opts.CountdownSec)
	switch tr {
	case engine.TransitionShow:
		m.dropAlertConfirm()
		m.log.Info("alert shown",
			zap.String("fingerprint", string(m.alert.ActiveID)),
			zap.Int("countdown_sec", m.alert.Countdown.Remaining))
		return m, countdownTick(m.alert.Countdown.Gen)
	case engine.TransitionHide:
		m.dropAlertConfirm()
		m.log.Info("alert cleared by backend")
	}
	return m, nil
}

// applyCountdownTick advances the live timer. Ticks of superseded timers are
// dropped without re-arming, which keeps exactly one timer alive.
func (m Model) applyCountdownTick(msg countdownTickMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.alert.Countdown.Gen || !m.alert.Countdown.Running() {
		return m, nil
	}
	var fired bool
	m.alert.Countdown, fired = m.alert.Countdown.Tick(msg.gen)
	if !fired {
		return m, countdownTick(msg.gen)
	}

	alertType := ""
	if m.alert.Alert != nil {
		alertType = m.alert.Alert.AlertType
	}
	m.log.Info("countdown expired, running auto action", zap.String("fingerprint", string(m.alert.ActiveID)))
	return m, m.executeAuto(actionAuto, api.ActionAuto, alertType)
}

// applyActionDone settles any gateway call. Success clears the local alert
// and refreshes status and history from the backend; the clear is idempotent
// so a second path finishing later finds nothing to clear.
func (m Model) applyActionDone(msg actionDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.log.Error("action failed", zap.Stringer("action", msg.kind), zap.Error(msg.err))
		if msg.kind == actionManual && m.session != nil && m.session.ID == msg.session {
			m.session.Abort(msg.err)
		}
		m.setNotice(fmt.Sprintf("❌ Error executing %s action: %s", msg.kind, errorText(msg.err)), true)
		return m, nil
	}

	m.log.Info("action succeeded", zap.Stringer("action", msg.kind), zap.String("message", msg.message))
	switch msg.kind {
	case actionDismiss:
		m.setNotice("Alert dismissed", false)
	case actionManual:
		m.setNotice("✅ "+msg.message, false)
		if m.session != nil && m.session.ID == msg.session {
			m.session.Close()
		}
	default:
		m.setNotice("✅ Action executed: "+msg.message, false)
	}

	m.alert = m.alert.Clear()
	m.dropAlertConfirm()
	m.statusSeq.Invalidate()
	m.historySeq.Invalidate()
	return m, m.refresh()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.confirm != nil {
		return m.handleConfirmKey(msg)
	}
	if m.session.IsOpen() {
		return m.handleSessionKey(msg)
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Refresh):
		return m, m.refresh()
	case key.Matches(msg, keys.Auto):
		return m.ask(confirmation{kind: actionAuto, prompt: "Execute AUTO action?"})
	case key.Matches(msg, keys.Scale):
		return m.ask(confirmation{kind: actionScale, prompt: "Execute SCALE action?"})
	case key.Matches(msg, keys.Dismiss):
		return m.ask(confirmation{kind: actionDismiss, prompt: "Dismiss this alert without taking action?"})
	case key.Matches(msg, keys.Manual):
		return m.openSession()
	}
	return m, nil
}

// ask installs a confirmation for an alert-level action.
func (m Model) ask(c confirmation) (tea.Model, tea.Cmd) {
	if !m.alert.Active() {
		m.setNotice("No active alert", true)
		return m, nil
	}
	c.fingerprint = m.alert.ActiveID
	m.confirm = &c
	return m, nil
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.confirm
	switch {
	case key.Matches(msg, keys.Yes):
		m.confirm = nil
		if c.kind != actionManual && c.fingerprint != m.alert.ActiveID {
			m.setNotice("Alert changed, action cancelled", true)
			return m, nil
		}
		return m, m.run(*c)
	case key.Matches(msg, keys.No):
		m.confirm = nil
		if c.kind == actionManual {
			m.session.Abort(nil)
		}
	}
	return m, nil
}

func (m Model) run(c confirmation) tea.Cmd {
	alertType := ""
	if m.alert.Alert != nil {
		alertType = m.alert.Alert.AlertType
	}
	switch c.kind {
	case actionScale:
		return m.executeAuto(actionScale, api.ActionScale, alertType)
	case actionDismiss:
		return m.dismiss()
	case actionManual:
		if !m.session.IsOpen() {
			return nil
		}
		return m.executeManual(m.session.ID, m.session.Resource, c.selections)
	default:
		return m.executeAuto(actionAuto, api.ActionAuto, alertType)
	}
}

// openSession starts a manual selection for the active alert's resource. The
// countdown keeps running while the session is open.
func (m Model) openSession() (tea.Model, tea.Cmd) {
	if !m.alert.Active() || m.alert.Alert == nil {
		m.setNotice("No active alert", true)
		return m, nil
	}
	resource, ok := model.ResourceFromAlertType(m.alert.Alert.AlertType)
	if !ok {
		m.setNotice(fmt.Sprintf("No manual options for %s alerts", m.alert.Alert.DisplayType()), true)
		return m, nil
	}
	m.session.Close()
	m.sessionID++
	m.session = engine.OpenSession(m.sessionID, resource)
	return m, tea.Batch(m.fetchOptions(m.sessionID, resource), m.spinner.Tick)
}

func (m Model) handleSessionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Close), msg.String() == "q":
		m.session.Close()
	case key.Matches(msg, keys.Up):
		m.session.Move(-1)
	case key.Matches(msg, keys.Down):
		m.session.Move(1)
	case key.Matches(msg, keys.Toggle):
		m.session.Toggle()
	case key.Matches(msg, keys.Submit):
		sel, err := m.session.Submit()
		switch {
		case errors.Is(err, engine.ErrEmptySelection):
			m.setNotice("Please select at least one option", true)
		case err != nil:
			m.setNotice(err.Error(), true)
		default:
			m.confirm = &confirmation{
				kind:       actionManual,
				prompt:     fmt.Sprintf("Execute manual %s cleanup on %d item(s)?", m.session.Resource, len(sel)),
				selections: sel,
			}
		}
	}
	return m, nil
}

func (m *Model) setNotice(s string, isErr bool) {
	m.notice = s
	m.noticeErr = isErr
	m.noticeAt = time.Now()
}

// errorText prefers the backend's own message over the wrapped chain.
func errorText(err error) string {
	var serr *api.ServerError
	if errors.As(err, &serr) && serr.Message != "" {
		return serr.Message
	}
	s := err.Error()
	if i := strings.LastIndex(s, ": "); i >= 0 && i+2 < len(s) {
		return s[i+2:]
	}
	return s
}
