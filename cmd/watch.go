package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ftahirops/healtop/engine"
	"github.com/ftahirops/healtop/model"
)

// ── ANSI color/style codes ──────────────────────────────────────────────────

const (
	R = "\033[0m" // reset
	B = "\033[1m" // bold
	D = "\033[2m" // dim

	FBRed = "\033[91m"
	FBGrn = "\033[92m"
	FBYel = "\033[93m"
	FBCyn = "\033[96m"
)

// cval colors a utilisation value by its band.
func cval(v float64, color bool) string {
	if !color {
		return fmt.Sprintf("%.1f%%", v)
	}
	switch model.Classify(v) {
	case model.BandCritical:
		return fmt.Sprintf("%s%s%.1f%%%s", B, FBRed, v, R)
	case model.BandWarning:
		return fmt.Sprintf("%s%.1f%%%s", FBYel, v, R)
	default:
		return fmt.Sprintf("%s%.1f%%%s", FBGrn, v, R)
	}
}

func paint(s, code string, color bool) string {
	if !color {
		return s
	}
	return code + s + R
}

func (a *app) watchCmd() *cobra.Command {
	var (
		count   int
		noColor bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print one status line per poll",
		Long: `Print one status line per poll interval without taking any action.

The alert countdown is shown for information only; the auto action runs
from the interactive console.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			w := watcher{
				status:    c.Status,
				out:       cmd.OutOrStdout(),
				log:       a.log,
				interval:  a.cfg.StatusInterval,
				countdown: a.cfg.CountdownSec,
				color:     !noColor,
				now:       time.Now,
			}
			return w.run(cmd.Context(), count)
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "number of polls before exiting (0 = until interrupted)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable ANSI colors")
	return cmd
}

type watcher struct {
	status    func(context.Context) (model.StatusSnapshot, error)
	out       io.Writer
	log       *zap.Logger
	interval  time.Duration
	countdown int
	color     bool
	now       func() time.Time

	state   engine.AlertState
	shownAt time.Time
}

func (w *watcher) run(ctx context.Context, count int) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for i := 0; count == 0 || i < count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
		w.poll(ctx)
	}
	return nil
}

// poll prints one line. A failed poll prints nothing and keeps prior state.
func (w *watcher) poll(ctx context.Context) {
	rctx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()
	snap, err := w.status(rctx)
	if err != nil {
		w.log.Warn("status poll failed", zap.Error(err))
		return
	}

	now := w.now()
	var tr engine.Transition
	w.state, tr = engine.Reconcile(w.state, snap, w.countdown)
	switch tr {
	case engine.TransitionShow:
		w.shownAt = now
	case engine.TransitionHide:
		fmt.Fprintln(w.out, paint("alert cleared", FBGrn, w.color))
	}
	fmt.Fprintln(w.out, w.line(snap.Status, now))
}

func (w *watcher) line(m model.Metrics, now time.Time) string {
	var sb strings.Builder
	sb.WriteString(paint("["+now.Format("15:04:05")+"]", D, w.color))
	fmt.Fprintf(&sb, " CPU %s  MEM %s  DISK %s", cval(m.CPU, w.color), cval(m.Memory, w.color), cval(m.Disk, w.color))

	if a := w.state.Alert; a != nil {
		left := w.countdown - int(now.Sub(w.shownAt)/time.Second)
		if left < 0 {
			left = 0
		}
		fmt.Fprintf(&sb, "  %s %s (%s/%s)  %s",
			paint("ALERT", B+FBRed, w.color),
			a.DisplayType(), a.CurrentUsage, a.Threshold,
			paint(fmt.Sprintf("⏰ %d:%02d", left/60, left%60), FBCyn, w.color))
	}
	return sb.String()
}
