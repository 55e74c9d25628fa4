package mfreader

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/mfreader.go/pkg/device"
	"github.com/robotalks/mfreader.go/pkg/gep"
	"github.com/robotalks/mfreader.go/pkg/looper"
)

type bufStream struct {
	in  bytes.Buffer
	out bytes.Buffer
}

func (s *bufStream) Available() int          { return s.in.Len() }
func (s *bufStream) ReadByte() (byte, error) { return s.in.ReadByte() }
func (s *bufStream) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

type fakeChip struct {
	card   *Card
	halted int
}

func (c *fakeChip) DetectCard() *Card { return c.card }
func (c *fakeChip) Authenticate(block byte, kind KeyKind, key Key) error {
	return nil
}
func (c *fakeChip) ReadBlock(block byte) ([]byte, error) {
	return bytes.Repeat([]byte{block}, BlockSize), nil
}
func (c *fakeChip) WriteBlock(block byte, data []byte) error { return nil }
func (c *fakeChip) Halt()                                    { c.halted++ }

type firmwareRig struct {
	chip   *fakeChip
	fw     *Firmware
	dev    *device.Device
	stream *bufStream
	clock  *looper.ManualClock
	host   *gep.Receiver
	msgs   []gep.Message
}

func newFirmwareRig() *firmwareRig {
	r := &firmwareRig{
		chip:   &fakeChip{},
		stream: &bufStream{},
		clock:  looper.NewManualClock(time.Unix(0, 0)),
		host:   gep.NewReceiver(0, gep.DefaultMaxMessageSize),
	}
	r.fw = NewFirmware(r.chip)
	r.dev = device.NewWithClock(1, gep.DefaultMaxMessageSize, r.fw, r.clock, 0)
	r.dev.Messenger.SetStream(r.stream)
	r.dev.Setup()
	r.host.Handler = gep.HandleMessageFunc(func(msg *gep.Message) {
		m := *msg
		m.Payload = append([]byte(nil), msg.Payload...)
		r.msgs = append(r.msgs, m)
	})
	return r
}

func (r *firmwareRig) command(tag uint16, payload ...byte) {
	gep.NewTaggedFrame(1, payload, tag).WriteTo(&r.stream.in)
}

func (r *firmwareRig) loop() []gep.Message {
	r.dev.Loop()
	for r.stream.out.Len() > 0 {
		b, _ := r.stream.out.ReadByte()
		if r.host.Parse(b) {
			r.host.Dispatch()
		}
	}
	msgs := r.msgs
	r.msgs = nil
	return msgs
}

func TestFirmwareCardCheck(t *testing.T) {
	r := newFirmwareRig()
	require.Empty(t, r.loop())

	r.chip.card = &Card{Type: CardMifare1K, Blocks: 64, UID: []byte{1, 2, 3, 4}}
	r.clock.Advance(250 * time.Millisecond)
	msgs := r.loop()
	require.Len(t, msgs, 1)
	require.Equal(t, []byte{3, 4, 64, 1, 2, 3, 4}, msgs[0].Payload)
	require.False(t, msgs[0].Tagged)

	r.clock.Advance(250 * time.Millisecond)
	require.Empty(t, r.loop())

	r.chip.card = &Card{Type: CardMifare1K, Blocks: 64, UID: []byte{5, 6, 7, 8}}
	r.clock.Advance(250 * time.Millisecond)
	msgs = r.loop()
	require.Len(t, msgs, 2)
	require.Equal(t, []byte{4}, msgs[0].Payload)
	require.Equal(t, []byte{3, 4, 64, 5, 6, 7, 8}, msgs[1].Payload)

	r.chip.card = nil
	r.clock.Advance(250 * time.Millisecond)
	msgs = r.loop()
	require.Len(t, msgs, 1)
	require.Equal(t, []byte{4}, msgs[0].Payload)
	require.Nil(t, r.fw.Card())
}

func TestFirmwareCommands(t *testing.T) {
	r := newFirmwareRig()
	r.chip.card = &Card{Type: CardMifare1K, Blocks: 64, UID: []byte{1}}
	r.loop()

	cases := []struct {
		name     string
		payload  []byte
		response []byte
	}{
		{"read", []byte{3, 9}, append([]byte{1}, bytes.Repeat([]byte{9}, BlockSize)...)},
		{"read out of range", []byte{3, 64}, []byte{2}},
		{"read missing block", []byte{3}, []byte{2}},
		{"write", append([]byte{4, 9}, make([]byte, BlockSize)...), []byte{1}},
		{"write short", []byte{4, 9, 1}, []byte{2}},
		{"write trailer", append([]byte{4, 11}, make([]byte, BlockSize)...), []byte{2}},
		{"set key", []byte{2, 2, 1, 2, 3, 4, 5, 6}, []byte{1}},
		{"set bad key kind", []byte{2, 3, 1, 2, 3, 4, 5, 6}, []byte{2}},
		{"unknown", []byte{99}, []byte{2}},
	}
	for i, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			tag := uint16(100 + i)
			r.command(tag, c.payload...)
			msgs := r.loop()
			require.Len(t, msgs, 1)
			require.Equal(t, c.response, msgs[0].Payload)
			require.True(t, msgs[0].Tagged)
			require.Equal(t, tag, msgs[0].Tag)
		})
	}
	require.Equal(t, KeyB, r.fw.keyKind)
	require.Equal(t, Key{1, 2, 3, 4, 5, 6}, r.fw.key)
}

func TestFirmwareIgnoresUntagged(t *testing.T) {
	r := newFirmwareRig()
	gep.NewFrame(1, []byte{1}).WriteTo(&r.stream.in)
	require.Empty(t, r.loop())
	require.Zero(t, r.chip.halted)
}

func TestFirmwareReset(t *testing.T) {
	r := newFirmwareRig()
	r.chip.card = &Card{Type: CardMifare1K, Blocks: 64, UID: []byte{1}}
	r.loop()
	r.command(7, 1)
	msgs := r.loop()
	require.Len(t, msgs, 1)
	require.Equal(t, []byte{1}, msgs[0].Payload)
	require.Equal(t, 1, r.chip.halted)
	require.Nil(t, r.fw.Card())

	r.clock.Advance(250 * time.Millisecond)
	msgs = r.loop()
	require.Len(t, msgs, 1)
	require.Equal(t, byte(MsgCardDetected), msgs[0].Payload[0])
}
