package schema

import (
	"time"

	"accord/internal/model"
	"accord/internal/model/enum"
	"accord/pkg/exception"

	"github.com/yanun0323/errors"
)

// Kind discriminates decoded payloads.
type Kind uint8

const (
	KindGeneric Kind = iota
	KindHello
	KindMessageCreate
	KindPresenceUpdate
	KindReady
	KindReadySupplemental
	KindTypingStart
	KindHeartbeatAck
	KindHeartbeatRequest
	KindReconnect
	KindInvalidSession
)

func (k Kind) String() string {
	switch k {
	case KindHello:
		return "hello"
	case KindMessageCreate:
		return "message_create"
	case KindPresenceUpdate:
		return "presence_update"
	case KindReady:
		return "ready"
	case KindReadySupplemental:
		return "ready_supplemental"
	case KindTypingStart:
		return "typing_start"
	case KindHeartbeatAck:
		return "heartbeat_ack"
	case KindHeartbeatRequest:
		return "heartbeat_request"
	case KindReconnect:
		return "reconnect"
	case KindInvalidSession:
		return "invalid_session"
	default:
		return "generic"
	}
}

// Payload is one variant of the decoded frame union.
type Payload interface {
	Kind() Kind
}

// Validator is implemented by payloads with required fields.
type Validator interface {
	Validate() error
}

func missing(field string) error {
	return errors.Wrap(exception.ErrSchemaPayload, "missing field").With("field", field)
}

type Hello struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

func (*Hello) Kind() Kind { return KindHello }

// Interval returns the heartbeat interval as a duration.
func (h *Hello) Interval() time.Duration {
	return time.Duration(h.HeartbeatInterval) * time.Millisecond
}

func (h *Hello) Validate() error {
	if h.HeartbeatInterval <= 0 {
		return missing("heartbeat_interval")
	}
	return nil
}

type MessageCreate struct {
	model.Message
}

func (*MessageCreate) Kind() Kind { return KindMessageCreate }

func (m *MessageCreate) Validate() error {
	switch {
	case m.ID == "":
		return missing("id")
	case m.ChannelID == "":
		return missing("channel_id")
	case m.Author.ID == "":
		return missing("author.id")
	}
	return nil
}

type PresenceUser struct {
	ID model.Snowflake `json:"id"`
}

type PresenceUpdate struct {
	User    PresenceUser     `json:"user"`
	Status  enum.Status      `json:"status"`
	GuildID *model.Snowflake `json:"guild_id,omitempty"`
}

func (*PresenceUpdate) Kind() Kind { return KindPresenceUpdate }

func (p *PresenceUpdate) Validate() error {
	switch {
	case p.User.ID == "":
		return missing("user.id")
	case p.Status == "":
		return missing("status")
	}
	return nil
}

// Presence converts the update into the domain value.
func (p *PresenceUpdate) Presence() model.Presence {
	return model.Presence{UserID: p.User.ID, Status: p.Status}
}

type Ready struct {
	V                int           `json:"v"`
	User             model.User    `json:"user"`
	Users            []model.User  `json:"users"`
	Guilds           []model.Guild `json:"guilds"`
	SessionID        string        `json:"session_id"`
	ResumeGatewayURL string        `json:"resume_gateway_url"`
}

func (*Ready) Kind() Kind { return KindReady }

func (r *Ready) Validate() error {
	if r.User.ID == "" {
		return missing("user.id")
	}
	return nil
}

type MergedPresenceFriend struct {
	UserID model.Snowflake `json:"user_id"`
	Status enum.Status     `json:"status"`
}

type MergedPresences struct {
	Friends []MergedPresenceFriend `json:"friends"`
}

type ReadySupplemental struct {
	MergedPresences MergedPresences `json:"merged_presences"`
}

func (*ReadySupplemental) Kind() Kind { return KindReadySupplemental }

// Presences flattens the friend presences, skipping entries without a user id.
func (r *ReadySupplemental) Presences() []model.Presence {
	out := make([]model.Presence, 0, len(r.MergedPresences.Friends))
	for _, f := range r.MergedPresences.Friends {
		if f.UserID == "" {
			continue
		}
		out = append(out, model.Presence{UserID: f.UserID, Status: f.Status})
	}
	return out
}

type TypingStart struct {
	model.Typing
}

func (*TypingStart) Kind() Kind { return KindTypingStart }

func (t *TypingStart) Validate() error {
	switch {
	case t.UserID == "":
		return missing("user_id")
	case t.ChannelID == "":
		return missing("channel_id")
	}
	return nil
}

type HeartbeatAck struct{}

func (HeartbeatAck) Kind() Kind { return KindHeartbeatAck }

type HeartbeatRequest struct{}

func (HeartbeatRequest) Kind() Kind { return KindHeartbeatRequest }

type Reconnect struct{}

func (Reconnect) Kind() Kind { return KindReconnect }

// InvalidSession carries the server's resumable hint, which this client never acts on.
type InvalidSession struct {
	Resumable bool
}

func (InvalidSession) Kind() Kind { return KindInvalidSession }

// Generic holds frames no specific shape claimed.
type Generic struct {
	Op     Opcode
	Type   string
	Fields map[string]any
}

func (*Generic) Kind() Kind { return KindGeneric }
