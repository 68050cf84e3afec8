package exception

import "github.com/yanun0323/errors"

// Codec errors
var (
	ErrCodecInflate     = errors.New("codec: zlib stream inflate failed")
	ErrCodecClosed      = errors.New("codec: inflater closed")
	ErrCodecInvalidUTF8 = errors.New("codec: frame is not valid utf-8")
	ErrCodecEncode      = errors.New("codec: encode control frame")
)
