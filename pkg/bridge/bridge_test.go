package bridge

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/mfreader.go/pkg/gep"
)

type chanPackets struct {
	inCh  chan []byte
	outCh chan []byte
}

func newChanPackets() *chanPackets {
	return &chanPackets{inCh: make(chan []byte, 4), outCh: make(chan []byte, 4)}
}

func (p *chanPackets) ReadPacket() ([]byte, error) {
	pkt, ok := <-p.inCh
	if !ok {
		return nil, io.EOF
	}
	return pkt, nil
}

func (p *chanPackets) WritePacket(pkt []byte) error {
	p.outCh <- pkt
	return nil
}

type pipeLink struct {
	*io.PipeReader
	*io.PipeWriter
}

func recv(t *testing.T, ch <-chan []byte) []byte {
	select {
	case pkt := <-ch:
		return pkt
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
	return nil
}

func TestEnvelope(t *testing.T) {
	env := EnvelopeFrom(&gep.Message{Destination: 2, Payload: []byte{1, 2}, Tag: 0x1234, Tagged: true})
	pkt, err := EncodeEnvelope(env)
	require.NoError(t, err)
	decoded, err := DecodeEnvelope(pkt)
	require.NoError(t, err)
	require.Equal(t, env, decoded)

	frame, err := decoded.Frame()
	require.NoError(t, err)
	require.Equal(t, gep.NewTaggedFrame(2, []byte{1, 2}, 0x1234), frame)

	frame, err = (&Envelope{Destination: 15, Payload: []byte{3}}).Frame()
	require.NoError(t, err)
	require.Equal(t, gep.NewFrame(15, []byte{3}), frame)
	_, err = (&Envelope{Destination: 16}).Frame()
	require.Error(t, err)
	_, err = (&Envelope{Destination: 0x100}).Frame()
	require.Error(t, err)
	_, err = (&Envelope{Tag: 0x10000, Tagged: true}).Frame()
	require.Error(t, err)
	_, err = DecodeEnvelope([]byte{0xff})
	require.Error(t, err)
}

func TestDestination(t *testing.T) {
	for _, id := range []uint64{0, 1, 15} {
		dest, err := Destination(id)
		require.NoError(t, err)
		require.Equal(t, byte(id), dest)
	}
	for _, id := range []uint64{16, 256, 258} {
		_, err := Destination(id)
		require.Error(t, err)
	}
}

func TestBridge(t *testing.T) {
	linkIn, remoteOut := io.Pipe()
	remoteIn, linkOut := io.Pipe()
	packets := newChanPackets()
	b := New(&pipeLink{PipeReader: linkIn, PipeWriter: linkOut}, gep.Broadcast, packets)

	errCh := make(chan error, 1)
	go func() { errCh <- b.Run(context.Background()) }()

	go gep.NewFrame(3, []byte("card")).WriteTo(remoteOut)
	env, err := DecodeEnvelope(recv(t, packets.outCh))
	require.NoError(t, err)
	require.Equal(t, &Envelope{Destination: 3, Payload: []byte("card")}, env)

	pkt, err := EncodeEnvelope(&Envelope{Destination: 1, Payload: []byte{5}, Tag: 9, Tagged: true})
	require.NoError(t, err)
	packets.inCh <- pkt
	expected := gep.NewTaggedFrame(1, []byte{5}, 9).Bytes()
	actual := make([]byte, len(expected))
	_, err = io.ReadFull(remoteIn, actual)
	require.NoError(t, err)
	require.Equal(t, expected, actual)

	remoteOut.Close()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("bridge not stopped")
	}
	require.Equal(t, uint64(1), b.Stats().Delivered)
}

func TestBridgeDropsInvalidPackets(t *testing.T) {
	link := &bytesLink{}
	packets := newChanPackets()
	b := New(link, gep.Broadcast, packets)
	packets.inCh <- []byte{0xff}
	pkt, _ := EncodeEnvelope(&Envelope{Destination: 20})
	packets.inCh <- pkt
	pkt, _ = EncodeEnvelope(&Envelope{Destination: 2, Payload: []byte{1}})
	packets.inCh <- pkt
	close(packets.inCh)
	require.NoError(t, b.Run(context.Background()))
	require.Equal(t, gep.NewFrame(2, []byte{1}).Bytes(), link.out.Bytes())
}

// bytesLink never delivers bytes.
type bytesLink struct {
	out bytes.Buffer
}

func (l *bytesLink) Read(p []byte) (int, error) {
	select {}
}

func (l *bytesLink) Write(p []byte) (int, error) {
	return l.out.Write(p)
}
