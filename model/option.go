package model

import "encoding/json"

// OptionKind tags a ManualOption variant.
type OptionKind int

const (
	OptionUnknown OptionKind = iota
	OptionProcess
	OptionAction
	OptionFile
)

func (k OptionKind) String() string {
	switch k {
	case OptionProcess:
		return "process"
	case OptionAction:
		return "action"
	case OptionFile:
		return "file"
	}
	return "unknown"
}

// MemoryCacheValue is the selection value the backend expects for the memory
// cache-cleanup action.
const MemoryCacheValue = "cache"

// ManualOption is one remediation candidate returned by
// /api/manual-options/{resource}. Only the fields of its Kind are set.
type ManualOption struct {
	Kind OptionKind

	// process
	PID     string
	User    string
	Command string
	CPU     string
	Mem     string

	// action
	ActionID string
	Name     string

	// action and file
	Size string

	// file
	Path string
	Safe bool
}

// Value returns the opaque string submitted when the option is selected.
func (o ManualOption) Value() string {
	switch o.Kind {
	case OptionProcess:
		return o.PID
	case OptionAction:
		return o.ActionID
	case OptionFile:
		return o.Path
	}
	return ""
}

type wireOption struct {
	Type    string `json:"type,omitempty"`
	PID     Text   `json:"pid,omitempty"`
	User    string `json:"user,omitempty"`
	Command string `json:"command,omitempty"`
	CPU     Text   `json:"cpu,omitempty"`
	Mem     Text   `json:"mem,omitempty"`
	Action  string `json:"action,omitempty"`
	Name    string `json:"name,omitempty"`
	Size    Text   `json:"size,omitempty"`
	Path    string `json:"path,omitempty"`
	Safe    bool   `json:"safe,omitempty"`
}

// UnmarshalJSON decides the variant once, at the boundary. Entries tagged
// "process" or "action" keep their tag; untagged entries carrying a path are
// files; anything else decodes as OptionUnknown.
func (o *ManualOption) UnmarshalJSON(data []byte) error {
	var w wireOption
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*o = ManualOption{}
	switch {
	case w.Type == "process":
		o.Kind = OptionProcess
		o.PID = w.PID.String()
		o.User = w.User
		o.Command = w.Command
		o.CPU = w.CPU.String()
		o.Mem = w.Mem.String()
	case w.Type == "action":
		o.Kind = OptionAction
		o.ActionID = w.Action
		o.Name = w.Name
		o.Size = w.Size.String()
	case w.Type == "file" || (w.Type == "" && w.Path != ""):
		o.Kind = OptionFile
		o.Path = w.Path
		o.Size = w.Size.String()
		o.Safe = w.Safe
	case w.Type == "" && w.PID != "":
		// cpu listings omit the type tag
		o.Kind = OptionProcess
		o.PID = w.PID.String()
		o.User = w.User
		o.Command = w.Command
		o.CPU = w.CPU.String()
		o.Mem = w.Mem.String()
	}
	return nil
}

// MarshalJSON writes the wire shape back, used by the reference backend.
func (o ManualOption) MarshalJSON() ([]byte, error) {
	w := wireOption{Type: o.Kind.String()}
	switch o.Kind {
	case OptionProcess:
		w.PID, w.User, w.Command = Text(o.PID), o.User, o.Command
		w.CPU, w.Mem = Text(o.CPU), Text(o.Mem)
	case OptionAction:
		w.Action, w.Name, w.Size = o.ActionID, o.Name, Text(o.Size)
		w.Safe = true
	case OptionFile:
		w.Path, w.Size, w.Safe = o.Path, Text(o.Size), o.Safe
	}
	return json.Marshal(w)
}
