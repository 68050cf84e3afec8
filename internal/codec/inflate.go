package codec

import (
	"bytes"
	"io"
	"sync"

	"accord/pkg/exception"

	"github.com/klauspost/compress/zlib"
	"github.com/yanun0323/errors"
)

// zlibSuffix terminates every complete message in a zlib-stream.
var zlibSuffix = []byte{0x00, 0x00, 0xff, 0xff}

// Inflater decompresses a single connection's zlib-stream. The stream spans every
// binary frame of the connection, so one Inflater must never outlive its connection.
//
// A background goroutine owns the zlib reader. Frames are handed to it one at a time
// and Decompress waits until the reader has consumed the whole frame and asks for more.
type Inflater struct {
	mu        sync.Mutex
	src       *streamSource
	out       []byte
	exited    chan struct{}
	err       error
	closeOnce sync.Once
}

// NewInflater starts a fresh decompression context.
func NewInflater() *Inflater {
	in := &Inflater{
		src: &streamSource{
			frames:  make(chan []byte),
			drained: make(chan struct{}),
			closed:  make(chan struct{}),
		},
		exited: make(chan struct{}),
	}
	go in.run()
	return in
}

func (in *Inflater) run() {
	defer close(in.exited)

	zr, err := zlib.NewReader(in.src)
	if err != nil {
		in.err = in.classify(err)
		return
	}
	defer zr.Close()

	buf := make([]byte, 32<<10)
	for {
		n, err := zr.Read(buf)
		if n > 0 {
			in.out = append(in.out, buf[:n]...)
		}
		if err != nil {
			in.err = in.classify(err)
			return
		}
	}
}

func (in *Inflater) classify(err error) error {
	if err == io.ErrClosedPipe {
		return exception.ErrCodecClosed
	}
	return errors.Wrap(exception.ErrCodecInflate, err.Error())
}

// Decompress feeds one frame into the stream. It returns the accumulated text and true
// once a frame ends with the sync flush marker; otherwise it returns false and keeps
// buffering. After the first failure every call returns the same error.
func (in *Inflater) Decompress(frame []byte) ([]byte, bool, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	select {
	case <-in.exited:
		return nil, false, in.err
	case in.src.frames <- frame:
	}

	select {
	case <-in.exited:
		return nil, false, in.err
	case <-in.src.drained:
	}

	if !bytes.HasSuffix(frame, zlibSuffix) {
		return nil, false, nil
	}
	text := bytes.Clone(in.out)
	in.out = in.out[:0]
	return text, true, nil
}

// Close destroys the context and waits for the reader goroutine to exit. Safe to call twice.
func (in *Inflater) Close() {
	in.closeOnce.Do(func() {
		close(in.src.closed)
	})
	<-in.exited
}

// streamSource is the blocking byte source behind the zlib reader.
// It implements io.ByteReader so the flate decoder never reads ahead into a buffer.
type streamSource struct {
	frames  chan []byte
	drained chan struct{}
	closed  chan struct{}
	cur     []byte
	fed     bool
}

func (s *streamSource) wait() error {
	for len(s.cur) == 0 {
		if s.fed {
			s.fed = false
			select {
			case s.drained <- struct{}{}:
			case <-s.closed:
				return io.ErrClosedPipe
			}
		}
		select {
		case frame := <-s.frames:
			s.cur = frame
			s.fed = true
		case <-s.closed:
			return io.ErrClosedPipe
		}
	}
	return nil
}

func (s *streamSource) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := s.wait(); err != nil {
		return 0, err
	}
	n := copy(p, s.cur)
	s.cur = s.cur[n:]
	return n, nil
}

func (s *streamSource) ReadByte() (byte, error) {
	if err := s.wait(); err != nil {
		return 0, err
	}
	b := s.cur[0]
	s.cur = s.cur[1:]
	return b, nil
}
