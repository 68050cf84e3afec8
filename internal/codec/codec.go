package codec

import (
	"unicode/utf8"

	"accord/pkg/exception"
	"accord/pkg/websocket"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
)

var api = sonic.ConfigStd

// Codec turns transport messages into JSON text for one connection.
type Codec struct {
	inflater *Inflater
}

// New creates a codec. When compress is true a fresh zlib-stream context is created.
func New(compress bool) *Codec {
	c := &Codec{}
	if compress {
		c.inflater = NewInflater()
	}
	return c
}

// Compressed reports whether the codec expects a zlib-stream.
func (c *Codec) Compressed() bool {
	return c.inflater != nil
}

// Decode returns the JSON text carried by payload. ok is false while a compressed
// message is still incomplete.
func (c *Codec) Decode(msgType websocket.MessageType, payload []byte) (text []byte, ok bool, err error) {
	if c.inflater != nil && msgType == websocket.MessageBinary {
		text, ok, err = c.inflater.Decompress(payload)
		if err != nil || !ok {
			return nil, ok, err
		}
	} else {
		text = payload
	}
	if !utf8.Valid(text) {
		return nil, false, exception.ErrCodecInvalidUTF8
	}
	return text, true, nil
}

// Close releases the decompression context.
func (c *Codec) Close() {
	if c.inflater != nil {
		c.inflater.Close()
	}
}

// Encode serializes an outbound control frame.
func Encode(v any) ([]byte, error) {
	data, err := api.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(exception.ErrCodecEncode, err.Error())
	}
	return data, nil
}
