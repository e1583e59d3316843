package engine

import "fmt"

// Phase is the countdown lifecycle state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseExpired
)

func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "running"
	case PhaseExpired:
		return "expired"
	}
	return "idle"
}

// Countdown drives the auto-action deadline. It is a value type: every
// transition returns the next state. Gen identifies the live timer; ticks
// scheduled for an older generation are ignored, so at most one timer is
// ever effective.
type Countdown struct {
	Phase     Phase
	Remaining int
	Gen       uint64
}

// Start arms a new timer for seconds, superseding any running one.
func (c Countdown) Start(seconds int) Countdown {
	if seconds < 0 {
		seconds = 0
	}
	return Countdown{Phase: PhaseRunning, Remaining: seconds, Gen: c.Gen + 1}
}

// Cancel stops the timer. Cancelling an idle countdown changes nothing.
func (c Countdown) Cancel() Countdown {
	if c.Phase == PhaseIdle {
		return c
	}
	return Countdown{Phase: PhaseIdle, Gen: c.Gen + 1}
}

// Tick advances the timer by one second. fired is true exactly once, on the
// tick that reaches zero; the countdown is Expired afterwards and further
// ticks are ignored.
func (c Countdown) Tick(gen uint64) (next Countdown, fired bool) {
	if c.Phase != PhaseRunning || gen != c.Gen {
		return c, false
	}
	if c.Remaining > 0 {
		c.Remaining--
	}
	if c.Remaining == 0 {
		c.Phase = PhaseExpired
		return c, true
	}
	return c, false
}

// Running reports whether ticks should keep being scheduled.
func (c Countdown) Running() bool {
	return c.Phase == PhaseRunning
}

// Display renders the remaining time as m:ss.
func (c Countdown) Display() string {
	r := c.Remaining
	if r < 0 {
		r = 0
	}
	return fmt.Sprintf("%d:%02d", r/60, r%60)
}
