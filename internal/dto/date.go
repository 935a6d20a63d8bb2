package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

// Date decodes a JSON date given as YYYY-MM-DD, with a time or in RFC 3339.
// null and "" leave it zero.
type Date struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	var raw *string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	if raw == nil || strings.TrimSpace(*raw) == "" {
		d.Time = time.Time{}
		return nil
	}
	value := strings.TrimSpace(*raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("date: %q is not a date", value)
}

// Ptr returns nil for the zero date.
func (d Date) Ptr() *time.Time {
	if d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}
