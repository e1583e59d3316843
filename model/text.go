package model

import (
	"bytes"
	"encoding/json"
)

// Text is a scalar the backend may send either as a JSON string or as a bare
// number. It keeps the literal as sent so identity comparisons are exact.
type Text string

// UnmarshalJSON accepts strings, numbers, booleans and null.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	*t = Text(data)
	return nil
}

// MarshalJSON writes numeric literals back as numbers, everything else as a string.
func (t Text) MarshalJSON() ([]byte, error) {
	if t != "" && (t[0] == '-' || (t[0] >= '0' && t[0] <= '9')) && json.Valid([]byte(t)) {
		return []byte(t), nil
	}
	return json.Marshal(string(t))
}

func (t Text) String() string { return string(t) }
