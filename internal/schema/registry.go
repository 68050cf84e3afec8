package schema

import (
	"accord/pkg/exception"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// Shape is one entry in the ordered decode list.
type Shape struct {
	Name   string
	Match  func(Envelope) bool
	Decode func(Envelope) (Payload, error)
}

// Registry tries shapes in insertion order and falls back to the opcode table.
type Registry struct {
	shapes []Shape
	byName map[string]int
}

var defaultRegistry = NewDefaultRegistry()

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// NewDefaultRegistry registers Hello, MessageCreate, PresenceUpdate, Ready,
// ReadySupplemental and TypingStart in that order.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.mustAdd(opShape("hello", OpHello, func() Payload { return &Hello{} }))
	r.mustAdd(dispatchShape(EventMessageCreate, func() Payload { return &MessageCreate{} }))
	r.mustAdd(dispatchShape(EventPresenceUpdate, func() Payload { return &PresenceUpdate{} }))
	r.mustAdd(dispatchShape(EventReady, func() Payload { return &Ready{} }))
	r.mustAdd(dispatchShape(EventReadySupplemental, func() Payload { return &ReadySupplemental{} }))
	r.mustAdd(dispatchShape(EventTypingStart, func() Payload { return &TypingStart{} }))
	return r
}

func (r *Registry) mustAdd(shape Shape) {
	if err := r.Add(shape); err != nil {
		panic(err)
	}
}

// Add appends a shape. Names must be unique.
func (r *Registry) Add(shape Shape) error {
	if shape.Name == "" {
		return errors.Errorf("shape name is empty")
	}
	if shape.Match == nil || shape.Decode == nil {
		return errors.Errorf("shape %s is incomplete", shape.Name)
	}
	if _, ok := r.byName[shape.Name]; ok {
		return errors.Errorf("shape already exists: %s", shape.Name)
	}
	r.byName[shape.Name] = len(r.shapes)
	r.shapes = append(r.shapes, shape)
	return nil
}

// Decode parses the envelope once and returns the first shape whose tag matches.
// When a shape claims the frame but its payload is malformed the returned frame still
// carries the envelope so the caller can track its sequence number.
func (r *Registry) Decode(data []byte) (Frame, error) {
	env, err := ParseEnvelope(data)
	if err != nil {
		return Frame{}, err
	}
	frame := Frame{Envelope: env}
	for _, shape := range r.shapes {
		if !shape.Match(env) {
			continue
		}
		payload, err := shape.Decode(env)
		if err != nil {
			return frame, errors.Wrap(err, "decode "+shape.Name).With("op", int(env.Op)).With("t", env.Type())
		}
		frame.Payload = payload
		return frame, nil
	}
	payload, err := decodeOpcode(env)
	if err != nil {
		return frame, err
	}
	frame.Payload = payload
	return frame, nil
}

func opShape(name string, op Opcode, newPayload func() Payload) Shape {
	return Shape{
		Name:   name,
		Match:  func(e Envelope) bool { return e.Op == op },
		Decode: func(e Envelope) (Payload, error) { return decodeInto(e, newPayload()) },
	}
}

func dispatchShape(eventType string, newPayload func() Payload) Shape {
	return Shape{
		Name:   eventType,
		Match:  func(e Envelope) bool { return e.Op == OpDispatch && e.Type() == eventType },
		Decode: func(e Envelope) (Payload, error) { return decodeInto(e, newPayload()) },
	}
}

func decodeInto(env Envelope, payload Payload) (Payload, error) {
	if !env.HasPayload() {
		return nil, missing("d")
	}
	if err := api.Unmarshal(env.D, payload); err != nil {
		return nil, errors.Wrap(exception.ErrSchemaPayload, err.Error())
	}
	if v, ok := payload.(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	return payload, nil
}

func decodeOpcode(env Envelope) (Payload, error) {
	switch env.Op {
	case OpHeartbeatAck:
		return HeartbeatAck{}, nil
	case OpHeartbeat:
		return HeartbeatRequest{}, nil
	case OpReconnect:
		return Reconnect{}, nil
	case OpInvalidSession:
		var resumable bool
		if env.HasPayload() {
			if err := api.Unmarshal(env.D, &resumable); err != nil {
				logs.Debugf("schema: invalid session flag %s: %+v", env.D, err)
			}
		}
		return InvalidSession{Resumable: resumable}, nil
	}

	generic := &Generic{Op: env.Op, Type: env.Type()}
	if env.HasPayload() {
		var fields map[string]any
		if err := api.Unmarshal(env.D, &fields); err == nil {
			generic.Fields = fields
		} else {
			var value any
			if err := api.Unmarshal(env.D, &value); err != nil {
				return nil, errors.Wrap(exception.ErrSchemaPayload, err.Error())
			}
			generic.Fields = map[string]any{"d": value}
		}
	}
	return generic, nil
}
