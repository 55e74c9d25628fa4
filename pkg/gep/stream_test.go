package gep

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type pipeReadWriter struct {
	*io.PipeReader
	out bytes.Buffer
}

func (p *pipeReadWriter) Write(b []byte) (int, error) {
	return p.out.Write(b)
}

func waitFor(s *StreamReader) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return s.Wait(ctx)
}

func TestStreamReader(t *testing.T) {
	pr, pw := io.Pipe()
	rw := &pipeReadWriter{PipeReader: pr}
	s := NewStreamReader(rw)

	require.Equal(t, 0, s.Available())
	_, err := s.ReadByte()
	require.Equal(t, ErrNoData, err)

	go pw.Write([]byte{1, 2, 3})
	require.NoError(t, waitFor(s))
	require.Equal(t, 3, s.Available())
	for _, expect := range []byte{1, 2, 3} {
		b, err := s.ReadByte()
		require.NoError(t, err)
		require.Equal(t, expect, b)
	}

	n, err := s.Write([]byte{9})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, []byte{9}, rw.out.Bytes())

	go func() {
		pw.Write([]byte{4})
		pw.Close()
	}()
	<-s.Done()
	require.Equal(t, io.EOF, s.Err())
	b, err := s.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(4), b)
	_, err = s.ReadByte()
	require.Equal(t, io.EOF, err)
	require.Equal(t, io.EOF, waitFor(s))
}

func TestStreamReaderWaitCanceled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	s := NewStreamReader(&pipeReadWriter{PipeReader: pr})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Equal(t, context.Canceled, s.Wait(ctx))
}

func TestStreamReaderBackpressure(t *testing.T) {
	pr, pw := io.Pipe()
	s := NewStreamReaderSize(&pipeReadWriter{PipeReader: pr}, 4)
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	go func() {
		pw.Write(data)
		pw.Close()
	}()
	var got []byte
	for len(got) < len(data) {
		require.NoError(t, waitFor(s))
		require.True(t, s.Available() <= 4)
		b, err := s.ReadByte()
		require.NoError(t, err)
		got = append(got, b)
	}
	require.Equal(t, data, got)
}

type endlessReadWriter struct{}

func (endlessReadWriter) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = StartByte
	}
	return len(p), nil
}

func (endlessReadWriter) Write(p []byte) (int, error) {
	return len(p), nil
}

func TestStreamReaderCloseWhenFull(t *testing.T) {
	s := NewStreamReaderSize(endlessReadWriter{}, 4)
	require.NoError(t, waitFor(s))
	for i := 0; s.Available() < 4; i++ {
		require.True(t, i < 100, "buffer not filled")
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, s.Close())
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("read loop not stopped")
	}
	require.Equal(t, ErrStreamClosed, s.Err())
	// buffered bytes are still readable
	require.Equal(t, 4, s.Available())
	b, err := s.ReadByte()
	require.NoError(t, err)
	require.Equal(t, StartByte, b)
}
