package engine

import "github.com/ftahirops/healtop/model"

// DefaultCountdownSec is the auto-action delay armed for every new alert.
const DefaultCountdownSec = 300

// Transition is what the renderer must do after a reconcile.
type Transition int

const (
	// TransitionKeep leaves the alert view and countdown exactly as they are.
	TransitionKeep Transition = iota
	// TransitionShow presents a new alert and a fresh countdown.
	TransitionShow
	// TransitionHide hides the alert view.
	TransitionHide
)

func (t Transition) String() string {
	switch t {
	case TransitionShow:
		return "show"
	case TransitionHide:
		return "hide"
	}
	return "keep"
}

// AlertState is the client-side alert identity plus the countdown bound to it.
// At most one alert is active; the countdown always belongs to ActiveID.
type AlertState struct {
	ActiveID  model.Fingerprint
	Alert     *model.AlertRecord
	Files     []model.FileEntry
	Countdown Countdown
}

// Active reports whether an alert is currently displayed.
func (s AlertState) Active() bool {
	return s.ActiveID != ""
}

// Reconcile applies one status snapshot. An unchanged fingerprint never
// touches the stored alert or the countdown; a new one always restarts the
// countdown at durationSec.
func Reconcile(s AlertState, snap model.StatusSnapshot, durationSec int) (AlertState, Transition) {
	if snap.PendingAlert == nil {
		if !s.Active() && s.Countdown.Phase == PhaseIdle {
			return s, TransitionKeep
		}
		return s.Clear(), TransitionHide
	}

	id := snap.PendingAlert.Fingerprint()
	if id == s.ActiveID {
		return s, TransitionKeep
	}

	alert := *snap.PendingAlert
	s.ActiveID = id
	s.Alert = &alert
	s.Files = append([]model.FileEntry(nil), snap.LargeFiles...)
	s.Countdown = s.Countdown.Start(durationSec)
	return s, TransitionShow
}

// Clear drops the active alert and cancels its countdown. Clearing an already
// cleared state is a no-op.
func (s AlertState) Clear() AlertState {
	s.ActiveID = ""
	s.Alert = nil
	s.Files = nil
	s.Countdown = s.Countdown.Cancel()
	return s
}
