package model

import (
	"strconv"
	"time"

	"accord/pkg/exception"

	"github.com/yanun0323/errors"
)

// SnowflakeEpochMs is the first millisecond of 2015, the origin of snowflake timestamps.
const SnowflakeEpochMs int64 = 1420070400000

// Snowflake is a 64-bit id carried on the wire as a decimal string.
type Snowflake string

// ParseSnowflake validates s and returns it as a Snowflake.
func ParseSnowflake(s string) (Snowflake, error) {
	if _, err := strconv.ParseUint(s, 10, 64); err != nil {
		return "", errors.Wrap(exception.ErrSchemaSnowflake, err.Error()).With("value", s)
	}
	return Snowflake(s), nil
}

// Uint64 returns the numeric id, or 0 when the id is not a valid number.
func (s Snowflake) Uint64() uint64 {
	v, err := strconv.ParseUint(string(s), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// Valid reports whether s is a non-empty decimal id.
func (s Snowflake) Valid() bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseUint(string(s), 10, 64)
	return err == nil
}

// Time returns the creation time encoded in the high 42 bits.
func (s Snowflake) Time() time.Time {
	ms := int64(s.Uint64()>>22) + SnowflakeEpochMs
	return time.UnixMilli(ms).UTC()
}

func (s Snowflake) String() string {
	return string(s)
}
