package storage

import (
	"encoding/json"
	"time"
)

// TimeLayout is the text form SQL backends store instants in. It is fixed
// width and always UTC, so text comparison orders instants correctly.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime renders t in TimeLayout
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime reads a TimeLayout or RFC 3339 instant
func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// EncodeDates renders a date list as a JSON array of TimeLayout strings
func EncodeDates(dates []time.Time) (string, error) {
	values := make([]string, len(dates))
	for i, d := range dates {
		values[i] = FormatTime(d)
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeDates parses a list written by EncodeDates and places every value
// in zone.
func DecodeDates(data, zone string) ([]time.Time, error) {
	if data == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	dates := make([]time.Time, len(values))
	for i, v := range values {
		t, err := ParseTime(v)
		if err != nil {
			return nil, err
		}
		dates[i] = InZone(t, zone)
	}
	return dates, nil
}
