package changelog

import (
	"encoding/json"
	"time"
)

// --------------------------------------------------------------------------
// Timestamp Handling
// --------------------------------------------------------------------------

const (
	// Layout is the on-disk timestamp format: ISO-8601 with fixed
	// microsecond precision, written in UTC.
	Layout = "2006-01-02T15:04:05.000000Z07:00"

	// layoutNaive covers documents written without a zone offset
	layoutNaive = "2006-01-02T15:04:05.000000"

	// layoutSeconds covers documents written without sub-second precision
	layoutSeconds = "2006-01-02T15:04:05"
)

// Time wraps time.Time so change entries marshal with the fixed document
// layout instead of RFC 3339 with variable precision. Zone-less timestamps
// from older documents are read as UTC.
type Time struct {
	time.Time
}

// Now returns the current time as a document timestamp
func Now() Time {
	return Time{time.Now()}
}

func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(Layout))
}

func (t *Time) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := time.Parse(Layout, s)
	if err != nil {
		parsed, err = time.ParseInLocation(layoutNaive, s, time.UTC)
	}
	if err != nil {
		parsed, err = time.ParseInLocation(layoutSeconds, s, time.UTC)
	}
	if err != nil {
		parsed, err = time.Parse(time.RFC3339Nano, s)
	}
	if err != nil {
		return err
	}

	*t = Time{parsed}
	return nil
}
