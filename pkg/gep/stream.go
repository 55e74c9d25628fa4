package gep

import (
	"context"
	"io"
	"sync"
)

// Stream is the duplex byte channel used by the messenger.
// Available and ReadByte must never block.
type Stream interface {
	// Available returns the number of bytes which can be read immediately.
	Available() int
	io.ByteReader
	io.Writer
}

// DefaultStreamBufferSize is the default read buffer of StreamReader.
const DefaultStreamBufferSize = 256

// StreamReader adapts a blocking io.ReadWriter (e.g. serial port) into a
// non-blocking Stream. Bytes are read in the background; when the buffer is
// full the background reader waits until bytes are consumed.
type StreamReader struct {
	rw io.ReadWriter

	buf      []byte
	size     int
	err      error
	lock     sync.Mutex
	notifyCh chan struct{}
	spaceCh  chan struct{}
	doneCh   chan struct{}
	closeCh  chan struct{}
	closed   sync.Once
}

// NewStreamReader creates a StreamReader and starts reading from rw.
func NewStreamReader(rw io.ReadWriter) *StreamReader {
	return NewStreamReaderSize(rw, DefaultStreamBufferSize)
}

// NewStreamReaderSize creates a StreamReader with a specified buffer size.
func NewStreamReaderSize(rw io.ReadWriter, size int) *StreamReader {
	if size <= 0 {
		size = DefaultStreamBufferSize
	}
	s := &StreamReader{
		rw:       rw,
		size:     size,
		buf:      make([]byte, 0, size),
		notifyCh: make(chan struct{}, 1),
		spaceCh:  make(chan struct{}, 1),
		doneCh:   make(chan struct{}),
		closeCh:  make(chan struct{}),
	}
	go s.readLoop()
	return s
}

// Available implements Stream.
func (s *StreamReader) Available() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.buf)
}

// ReadByte implements io.ByteReader.
// It returns ErrNoData when nothing is buffered, or the read error after
// the underlying reader failed and the buffer is drained.
func (s *StreamReader) ReadByte() (byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if len(s.buf) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		return 0, ErrNoData
	}
	b := s.buf[0]
	s.buf = s.buf[:copy(s.buf, s.buf[1:])]
	select {
	case s.spaceCh <- struct{}{}:
	default:
	}
	return b, nil
}

// Write implements io.Writer.
func (s *StreamReader) Write(p []byte) (int, error) {
	return s.rw.Write(p)
}

// Wait blocks until bytes are available, the underlying reader fails
// or ctx is done.
func (s *StreamReader) Wait(ctx context.Context) error {
	for {
		s.lock.Lock()
		n, err := len(s.buf), s.err
		s.lock.Unlock()
		if n > 0 {
			return nil
		}
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.notifyCh:
		case <-s.doneCh:
		}
	}
}

// Done is closed when the underlying reader stops.
func (s *StreamReader) Done() <-chan struct{} {
	return s.doneCh
}

// Err returns the error which stopped reading.
func (s *StreamReader) Err() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.err
}

// Close stops reading and closes the underlying ReadWriter if it's an
// io.Closer.
func (s *StreamReader) Close() error {
	s.closed.Do(func() { close(s.closeCh) })
	if closer, ok := s.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (s *StreamReader) readLoop() {
	defer close(s.doneCh)
	chunk := make([]byte, 64)
	for {
		s.lock.Lock()
		room := s.size - len(s.buf)
		s.lock.Unlock()
		if room == 0 {
			select {
			case <-s.spaceCh:
				continue
			case <-s.closeCh:
			}
			s.lock.Lock()
			s.err = ErrStreamClosed
			s.lock.Unlock()
			return
		}
		if room > len(chunk) {
			room = len(chunk)
		}
		n, err := s.rw.Read(chunk[:room])
		s.lock.Lock()
		s.buf = append(s.buf, chunk[:n]...)
		if err != nil {
			s.err = err
		}
		s.lock.Unlock()
		if n > 0 {
			select {
			case s.notifyCh <- struct{}{}:
			default:
			}
		}
		if err != nil {
			return
		}
	}
}
