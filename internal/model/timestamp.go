package model

import (
	"bytes"
	"strconv"
	"time"

	"accord/pkg/exception"

	"github.com/yanun0323/errors"
)

var timestampLayouts = []string{
	"2006-01-02T15:04:05.000000Z07:00",
	"2006-01-02T15:04:05Z07:00",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"20060102T150405Z0700",
	"2006-01-02",
}

// Timestamp is an ISO-8601 time that accepts values with or without fractional seconds.
type Timestamp struct {
	time.Time
}

// ParseTimestamp tries the microsecond layout, then whole seconds, then generic ISO-8601 forms.
func ParseTimestamp(s string) (Timestamp, error) {
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, errors.Wrap(exception.ErrSchemaTimestamp, "parse").With("value", s)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return errors.Wrap(exception.ErrSchemaTimestamp, "not a string").With("value", string(data))
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(t.UTC().Format(time.RFC3339Nano))), nil
}
