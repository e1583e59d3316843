package engine

import (
	"github.com/cockroachdb/errors"
	"github.com/ftahirops/healtop/model"
)

var (
	// ErrEmptySelection is returned by Submit when nothing is checked. It is
	// detected before any request is built.
	ErrEmptySelection = errors.New("please select at least one option")
	// ErrSessionClosed is returned for operations on a closed session.
	ErrSessionClosed = errors.New("manual session is closed")
	// ErrSessionBusy is returned by Submit while options load or a submit runs.
	ErrSessionBusy = errors.New("manual session is busy")
	// ErrOptionsUnavailable is returned by Submit after the option fetch failed.
	ErrOptionsUnavailable = errors.New("options failed to load, press esc and retry")
)

// SessionPhase is the manual selection workflow state.
type SessionPhase int

const (
	SessionClosed SessionPhase = iota
	SessionLoading
	SessionReady
	SessionFailed
	SessionSubmitting
)

func (p SessionPhase) String() string {
	switch p {
	case SessionLoading:
		return "loading"
	case SessionReady:
		return "ready"
	case SessionFailed:
		return "failed"
	case SessionSubmitting:
		return "submitting"
	}
	return "closed"
}

// Row is one selectable line of the manual view.
type Row struct {
	Group  string
	Option model.ManualOption
}

// Value is the selection string submitted for the row.
func (r Row) Value() string {
	if r.Option.Kind == model.OptionAction && r.Group == groupMemoryCache {
		return model.MemoryCacheValue
	}
	return r.Option.Value()
}

const (
	groupCPUProcesses    = "Top CPU Processes"
	groupMemoryProcesses = "Top Memory Processes"
	groupMemoryCache     = "Cache Cleanup"
	groupDiskActions     = "Safe Cleanup Actions"
	groupDiskFiles       = "Large Files"
)

// Rows orders fetched options for display: cpu lists processes; memory lists
// processes then at most one cache action; disk lists cleanup actions before
// large files.
func Rows(resource model.Resource, opts []model.ManualOption) []Row {
	var rows []Row
	switch resource {
	case model.ResourceCPU:
		for _, o := range opts {
			if o.Kind == model.OptionProcess {
				rows = append(rows, Row{Group: groupCPUProcesses, Option: o})
			}
		}
	case model.ResourceMemory:
		var cache *model.ManualOption
		for i, o := range opts {
			switch o.Kind {
			case model.OptionProcess:
				rows = append(rows, Row{Group: groupMemoryProcesses, Option: o})
			case model.OptionAction:
				if cache == nil {
					cache = &opts[i]
				}
			}
		}
		if cache != nil {
			rows = append(rows, Row{Group: groupMemoryCache, Option: *cache})
		}
	case model.ResourceDisk:
		for _, o := range opts {
			if o.Kind == model.OptionAction {
				rows = append(rows, Row{Group: groupDiskActions, Option: o})
			}
		}
		for _, o := range opts {
			if o.Kind == model.OptionFile {
				rows = append(rows, Row{Group: groupDiskFiles, Option: o})
			}
		}
	}
	return rows
}

// Session is an operator's manual remediation workflow for one resource. It
// owns the transient selection set, which is discarded on close or after a
// successful submit.
type Session struct {
	ID       uint64
	Resource model.Resource
	Phase    SessionPhase
	Rows     []Row
	Cursor   int
	Err      error

	selected map[string]bool
}

// OpenSession starts loading options for resource. id must be unique per
// open so late results of an earlier session can be told apart.
func OpenSession(id uint64, resource model.Resource) *Session {
	return &Session{
		ID:       id,
		Resource: resource,
		Phase:    SessionLoading,
		selected: make(map[string]bool),
	}
}

// IsOpen reports whether the session is still on screen.
func (s *Session) IsOpen() bool {
	return s != nil && s.Phase != SessionClosed
}

// Load installs fetched options. Results for another session id, or arriving
// after close, are dropped and Load returns false.
func (s *Session) Load(id uint64, opts []model.ManualOption) bool {
	if !s.IsOpen() || s.ID != id || s.Phase != SessionLoading {
		return false
	}
	s.Rows = Rows(s.Resource, opts)
	s.Cursor = 0
	s.Phase = SessionReady
	return true
}

// Fail records a failed option fetch under the same rules as Load.
func (s *Session) Fail(id uint64, err error) bool {
	if !s.IsOpen() || s.ID != id || s.Phase != SessionLoading {
		return false
	}
	s.Err = err
	s.Phase = SessionFailed
	return true
}

// Move shifts the cursor by delta, clamped to the rows.
func (s *Session) Move(delta int) {
	if !s.IsOpen() || len(s.Rows) == 0 {
		return
	}
	s.Cursor += delta
	if s.Cursor < 0 {
		s.Cursor = 0
	}
	if s.Cursor >= len(s.Rows) {
		s.Cursor = len(s.Rows) - 1
	}
}

// Toggle flips the row under the cursor.
func (s *Session) Toggle() {
	if !s.IsOpen() || s.Phase != SessionReady || s.Cursor >= len(s.Rows) {
		return
	}
	v := s.Rows[s.Cursor].Value()
	if v == "" {
		return
	}
	if s.selected[v] {
		delete(s.selected, v)
	} else {
		s.selected[v] = true
	}
}

// Selected reports whether value is in the selection set.
func (s *Session) Selected(value string) bool {
	return s.IsOpen() && s.selected[value]
}

// Selections returns the selection set in row order.
func (s *Session) Selections() []string {
	if !s.IsOpen() {
		return nil
	}
	var out []string
	seen := make(map[string]bool, len(s.selected))
	for _, r := range s.Rows {
		v := r.Value()
		if s.selected[v] && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// Submit validates the selection set and moves the session to Submitting.
// An empty set fails locally with ErrEmptySelection and leaves the session
// untouched.
func (s *Session) Submit() ([]string, error) {
	if !s.IsOpen() {
		return nil, ErrSessionClosed
	}
	if s.Phase == SessionFailed {
		return nil, ErrOptionsUnavailable
	}
	if s.Phase != SessionReady {
		return nil, ErrSessionBusy
	}
	sel := s.Selections()
	if len(sel) == 0 {
		return nil, ErrEmptySelection
	}
	s.Phase = SessionSubmitting
	return sel, nil
}

// Abort returns a Submitting session to Ready, e.g. when the operator
// declines the confirmation or the request fails.
func (s *Session) Abort(err error) {
	if !s.IsOpen() || s.Phase != SessionSubmitting {
		return
	}
	s.Err = err
	s.Phase = SessionReady
}

// Close discards the selection set and any late option results. Idempotent.
func (s *Session) Close() {
	if s == nil {
		return
	}
	s.Phase = SessionClosed
	s.Rows = nil
	s.Cursor = 0
	s.selected = make(map[string]bool)
}
