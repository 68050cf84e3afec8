package schema

import (
	"encoding/json"

	"accord/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
)

// GatewayVersion is the gateway protocol version this client speaks.
const GatewayVersion = 10

// Opcode is the gateway operation code of a frame.
type Opcode int

const (
	OpDispatch       Opcode = 0
	OpHeartbeat      Opcode = 1
	OpIdentify       Opcode = 2
	OpPresenceUpdate Opcode = 3
	OpResume         Opcode = 6
	OpReconnect      Opcode = 7
	OpInvalidSession Opcode = 9
	OpHello          Opcode = 10
	OpHeartbeatAck   Opcode = 11
)

// Dispatch event types carried in the "t" field.
const (
	EventReady             = "READY"
	EventReadySupplemental = "READY_SUPPLEMENTAL"
	EventMessageCreate     = "MESSAGE_CREATE"
	EventPresenceUpdate    = "PRESENCE_UPDATE"
	EventTypingStart       = "TYPING_START"
)

var api = sonic.ConfigStd

// Envelope is the outer shell of every inbound frame.
type Envelope struct {
	T  *string         `json:"t"`
	S  *int64          `json:"s"`
	Op Opcode          `json:"op"`
	D  json.RawMessage `json:"d"`
}

// Type returns the event type tag, or "" when absent.
func (e Envelope) Type() string {
	if e.T == nil {
		return ""
	}
	return *e.T
}

// HasPayload reports whether d is present and not null.
func (e Envelope) HasPayload() bool {
	return len(e.D) > 0 && string(e.D) != "null"
}

// ParseEnvelope decodes the envelope without interpreting the payload.
func ParseEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := api.Unmarshal(data, &env); err != nil {
		return Envelope{}, errors.Wrap(exception.ErrSchemaEnvelope, err.Error())
	}
	return env, nil
}

// Frame is a decoded inbound frame.
type Frame struct {
	Envelope Envelope
	Payload  Payload
}

// Seq returns the sequence number carried by the frame, if any.
func (f Frame) Seq() (int64, bool) {
	if f.Envelope.S == nil {
		return 0, false
	}
	return *f.Envelope.S, true
}

// Decode parses data with the default registry.
func Decode(data []byte) (Frame, error) {
	return defaultRegistry.Decode(data)
}

// Outbound is a frame sent by the client.
type Outbound struct {
	Op Opcode `json:"op"`
	D  any    `json:"d"`
}

// Heartbeat builds {op:1, d:seq} with a null d when no sequence is known.
func Heartbeat(seq *int64) Outbound {
	if seq == nil {
		return Outbound{Op: OpHeartbeat, D: nil}
	}
	return Outbound{Op: OpHeartbeat, D: *seq}
}
