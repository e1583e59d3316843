package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftahirops/healtop/model"
)

func diskAlert(ts string) *model.AlertRecord {
	return &model.AlertRecord{
		AlertType:    "DISK",
		Severity:     "CRITICAL",
		Threshold:    "85%",
		CurrentUsage: "91%",
		Timestamp:    model.Text(ts),
	}
}

func snapWith(a *model.AlertRecord) model.StatusSnapshot {
	return model.StatusSnapshot{
		Status:       model.Metrics{CPU: 10, Memory: 20, Disk: 91},
		PendingAlert: a,
		LargeFiles:   []model.FileEntry{{Path: "/var/log/big.log", Size: "1.2G"}},
	}
}

func TestReconcile_NewAlertStartsCountdown(t *testing.T) {
	st, tr := Reconcile(AlertState{}, snapWith(diskAlert("1000")), DefaultCountdownSec)
	assert.Equal(t, TransitionShow, tr)
	assert.Equal(t, model.Fingerprint("DISK_1000"), st.ActiveID)
	assert.Equal(t, PhaseRunning, st.Countdown.Phase)
	assert.Equal(t, 300, st.Countdown.Remaining)
	assert.Equal(t, "5:00", st.Countdown.Display())
	require.Len(t, st.Files, 1)
}

func TestReconcile_SameFingerprintKeepsEverything(t *testing.T) {
	st, _ := Reconcile(AlertState{}, snapWith(diskAlert("1000")), DefaultCountdownSec)
	for i := 0; i < 7; i++ {
		st.Countdown, _ = st.Countdown.Tick(st.Countdown.Gen)
	}
	before := st

	// Other fields drift, identity does not.
	drifted := diskAlert("1000")
	drifted.Severity = "WARNING"
	drifted.CurrentUsage = "97%"
	next, tr := Reconcile(st, model.StatusSnapshot{PendingAlert: drifted}, DefaultCountdownSec)

	assert.Equal(t, TransitionKeep, tr)
	assert.Equal(t, before.Countdown, next.Countdown)
	assert.Equal(t, 293, next.Countdown.Remaining)
	assert.Equal(t, model.Text("CRITICAL"), next.Alert.Severity, "displayed alert must not be replaced")
	assert.Len(t, next.Files, 1, "files of the shown alert are kept")
}

func TestReconcile_FingerprintChangeRestarts(t *testing.T) {
	cases := []struct {
		name string
		next *model.AlertRecord
	}{
		{"timestamp", diskAlert("1001")},
		{"type", &model.AlertRecord{AlertType: "CPU", Timestamp: "1000"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			st, _ := Reconcile(AlertState{}, snapWith(diskAlert("1000")), DefaultCountdownSec)
			st.Countdown, _ = st.Countdown.Tick(st.Countdown.Gen)
			oldGen := st.Countdown.Gen

			next, tr := Reconcile(st, model.StatusSnapshot{PendingAlert: c.next}, DefaultCountdownSec)
			assert.Equal(t, TransitionShow, tr)
			assert.Equal(t, c.next.Fingerprint(), next.ActiveID)
			assert.Equal(t, 300, next.Countdown.Remaining)
			assert.Greater(t, next.Countdown.Gen, oldGen)

			// The superseded timer's ticks no longer count.
			stale, fired := next.Countdown.Tick(oldGen)
			assert.False(t, fired)
			assert.Equal(t, 300, stale.Remaining)
		})
	}
}

func TestReconcile_NoAlertHides(t *testing.T) {
	st, _ := Reconcile(AlertState{}, snapWith(diskAlert("1000")), DefaultCountdownSec)
	next, tr := Reconcile(st, model.StatusSnapshot{}, DefaultCountdownSec)
	assert.Equal(t, TransitionHide, tr)
	assert.False(t, next.Active())
	assert.Equal(t, PhaseIdle, next.Countdown.Phase)

	again, tr := Reconcile(next, model.StatusSnapshot{}, DefaultCountdownSec)
	assert.Equal(t, TransitionKeep, tr)
	assert.Equal(t, next, again)
}

// A status poll returns the same DISK alert twice, five seconds apart.
func TestScenario_RepeatedAlertDoesNotReset(t *testing.T) {
	st, tr := Reconcile(AlertState{}, snapWith(diskAlert("1000")), DefaultCountdownSec)
	require.Equal(t, TransitionShow, tr)

	var displays []string
	for i := 0; i < 5; i++ {
		st.Countdown, _ = st.Countdown.Tick(st.Countdown.Gen)
		displays = append(displays, st.Countdown.Display())
	}
	st, tr = Reconcile(st, snapWith(diskAlert("1000")), DefaultCountdownSec)
	require.Equal(t, TransitionKeep, tr)
	st.Countdown, _ = st.Countdown.Tick(st.Countdown.Gen)
	displays = append(displays, st.Countdown.Display())

	assert.Equal(t, []string{"4:59", "4:58", "4:57", "4:56", "4:55", "4:54"}, displays)
}

// Polls alternate between no alert and a DISK alert.
func TestScenario_HiddenThenVisible(t *testing.T) {
	st, tr := Reconcile(AlertState{}, model.StatusSnapshot{}, DefaultCountdownSec)
	assert.Equal(t, TransitionKeep, tr)
	assert.False(t, st.Active())

	st, tr = Reconcile(st, snapWith(diskAlert("1000")), DefaultCountdownSec)
	assert.Equal(t, TransitionShow, tr)
	assert.Equal(t, "5:00", st.Countdown.Display())

	st, tr = Reconcile(st, model.StatusSnapshot{}, DefaultCountdownSec)
	assert.Equal(t, TransitionHide, tr)

	st, tr = Reconcile(st, snapWith(diskAlert("1000")), DefaultCountdownSec)
	assert.Equal(t, TransitionShow, tr, "an alert seen again after a hide is new")
	assert.Equal(t, "5:00", st.Countdown.Display())
}

func TestClear_Idempotent(t *testing.T) {
	st, _ := Reconcile(AlertState{}, snapWith(diskAlert("1000")), DefaultCountdownSec)
	once := st.Clear()
	twice := once.Clear()
	assert.Equal(t, once, twice)
	assert.False(t, twice.Active())
}
