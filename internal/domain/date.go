package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// dateLayouts are tried in order when parsing a Date.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"02-01-2006",
}

// Date is a calendar date without time of day. The zero value means absent.
type Date struct {
	time.Time
}

// NewDate builds a Date in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date in any of the accepted layouts.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return NewDate(y, m, d), nil
		}
	}
	return Date{}, errors.Newf("unrecognized date %q", s)
}

// IsSet reports whether the date is present.
func (d Date) IsSet() bool { return !d.Time.IsZero() }

func (d Date) String() string {
	if !d.IsSet() {
		return ""
	}
	return d.Format("2006-01-02")
}

func (d Date) MarshalJSON() ([]byte, error) {
	if !d.IsSet() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Wrap(err, "date must be a string")
	}
	// Unrecognized strings decode as absent so one malformed date does not
	// discard the rest of an extracted record.
	parsed, err := ParseDate(s)
	if err != nil {
		*d = Date{}
		return nil
	}
	*d = parsed
	return nil
}
