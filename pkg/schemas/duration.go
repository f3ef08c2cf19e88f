package schemas

import (
	"encoding/json"
	"time"
)

// Duration wraps time.Duration with custom JSON marshaling
type Duration struct {
	time.Duration
}

// MarshalJSON converts Duration to JSON string
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON parses Duration from a Go duration string ("1h30m", "90s").
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}

	d.Duration = parsed
	return nil
}

// ParseDuration parses a Go duration string. JobSpec.Timeout and
// ResourceLimits.MaxDuration are the only fields of this type, and both are plain
// request/job time budgets, not media timestamps, so the teacher's
// timecode and ISO 8601 parsing (built for trimming clips against a DAG
// this engine no longer has) has no caller here.
func ParseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
