package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is how dates are written: UTC with millisecond precision
// and a trailing Z. Values in this layout sort correctly as text.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// readLayouts are tried in order when a stored date is parsed.
var readLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Timestamp is a date column stored as ISO-8601 text. It reads any of the
// text layouts above as well as native time values.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t, truncated to the stored precision.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC().Truncate(time.Millisecond)}
}

// ParseTimestamp parses a stored date string.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, nil
	}
	for _, layout := range readLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t.UTC()}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// String formats ts in TimestampLayout.
func (ts Timestamp) String() string {
	return ts.UTC().Format(TimestampLayout)
}

// Scan implements sql.Scanner.
func (ts *Timestamp) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*ts = Timestamp{}
		return nil
	case time.Time:
		*ts = Timestamp{Time: v.UTC()}
		return nil
	case string:
		parsed, err := ParseTimestamp(v)
		if err != nil {
			return err
		}
		*ts = parsed
		return nil
	case []byte:
		parsed, err := ParseTimestamp(string(v))
		if err != nil {
			return err
		}
		*ts = parsed
		return nil
	}
	return fmt.Errorf("cannot scan %T into Timestamp", value)
}

// Value implements driver.Valuer.
func (ts Timestamp) Value() (driver.Value, error) {
	return ts.String(), nil
}

// MarshalJSON writes ts in TimestampLayout.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + ts.String() + `"`), nil
}
