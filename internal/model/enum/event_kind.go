package enum

// EventKind identifies the domain event stream an event is published on.
type EventKind uint8

const (
	_event_kind_beg EventKind = iota
	EventKindMessage
	EventKindPresence
	EventKindTyping
	EventKindUser
	EventKindGuild
	EventKindState
	_event_kind_end
)

func (k EventKind) IsAvailable() bool {
	return k > _event_kind_beg && k < _event_kind_end
}

func (k EventKind) String() string {
	switch k {
	case EventKindMessage:
		return "message"
	case EventKindPresence:
		return "presence"
	case EventKindTyping:
		return "typing"
	case EventKindUser:
		return "user"
	case EventKindGuild:
		return "guild"
	case EventKindState:
		return "state"
	default:
		return "unknown"
	}
}

// EventKinds lists every available kind in declaration order.
func EventKinds() []EventKind {
	kinds := make([]EventKind, 0, int(_event_kind_end)-1)
	for k := _event_kind_beg + 1; k < _event_kind_end; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}
