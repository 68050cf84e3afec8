package enum

import (
	"strconv"
	"strings"
)

// Status is a user's presence status.
type Status string

const (
	StatusOnline    Status = "online"
	StatusIdle      Status = "idle"
	StatusDND       Status = "dnd"
	StatusInvisible Status = "invisible"
	StatusOffline   Status = "offline"
)

func (s Status) IsAvailable() bool {
	switch s {
	case StatusOnline, StatusIdle, StatusDND, StatusInvisible, StatusOffline:
		return true
	default:
		return false
	}
}

// ActivityType is the kind of activity announced in a presence.
type ActivityType int

const (
	_activity_type_beg ActivityType = iota - 1
	ActivityPlaying
	ActivityStreaming
	ActivityListening
	ActivityWatching
	ActivityCustom
	ActivityCompeting
	_activity_type_end
)

func (t ActivityType) IsAvailable() bool {
	return t > _activity_type_beg && t < _activity_type_end
}

func (t ActivityType) String() string {
	switch t {
	case ActivityPlaying:
		return "playing"
	case ActivityStreaming:
		return "streaming"
	case ActivityListening:
		return "listening"
	case ActivityWatching:
		return "watching"
	case ActivityCustom:
		return "custom"
	case ActivityCompeting:
		return "competing"
	default:
		return ""
	}
}

// ParseActivityType accepts an activity name such as "playing" or its numeric value.
func ParseActivityType(s string) (ActivityType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t := _activity_type_beg + 1; t < _activity_type_end; t++ {
		if t.String() == s {
			return t, true
		}
	}
	if n, err := strconv.Atoi(s); err == nil && ActivityType(n).IsAvailable() {
		return ActivityType(n), true
	}
	return 0, false
}
