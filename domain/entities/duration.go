package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Duration - a time.Duration that reads from JSON as a Go duration string ("250ms")
// or as a whole number of milliseconds
type Duration time.Duration

// Std - returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalJSON - writes the duration as a string
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON - accepts "1.5s" style strings and millisecond numbers
func (d *Duration) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*d = 0
			return nil
		}
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var ms float64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("invalid duration %s: expected a string like \"250ms\" or milliseconds", data)
	}
	*d = Duration(ms * float64(time.Millisecond))
	return nil
}
