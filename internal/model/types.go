package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// FlexString decodes a JSON string or number into a string. The backend
// emits numeric ids for some tables and string ids for others.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// SQLDateTime is the backend's MySQL DATETIME encoding.
const SQLDateTime = "2006-01-02 15:04:05"

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	SQLDateTime,
	"2006-01-02 15:04",
	"2006-01-02",
}

// Timestamp is an appointment time normalized once when decoded. A value that
// matches no accepted encoding is kept, with Valid reporting false, so one bad
// record does not fail a whole list.
type Timestamp struct {
	time.Time
	Raw   string
	valid bool
}

// NewTimestamp wraps an already-parsed time.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t, valid: !t.IsZero()}
}

// ParseTimestamp tries ISO-8601 and SQL encodings in turn.
func ParseTimestamp(s string) Timestamp {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t, Raw: s, valid: true}
		}
	}
	return Timestamp{Raw: s}
}

func (t Timestamp) Valid() bool {
	return t.valid
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = Timestamp{}
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = ParseTimestamp(s)
	default:
		// epoch milliseconds, as sent by clients holding a parsed date
		ms, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			*t = Timestamp{Raw: string(data)}
			return nil
		}
		*t = Timestamp{Time: time.UnixMilli(ms).UTC(), Raw: string(data), valid: true}
	}
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.valid {
		if t.Raw == "" {
			return []byte("null"), nil
		}
		return json.Marshal(t.Raw)
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}
