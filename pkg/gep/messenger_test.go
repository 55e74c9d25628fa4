package gep

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessenger(t *testing.T) {
	var link bufStream
	rec := &recorder{}
	m := NewMessenger(3, 16)
	m.SetHandler(rec)

	// unbound messenger is inert
	require.NoError(t, m.Send(3, []byte{1}))
	m.Poll()
	require.Nil(t, m.Stream())

	m.SetStream(&link)
	require.NoError(t, m.Send(3, []byte("hi")))
	require.NoError(t, m.SendTagged(0, []byte("all"), 42))
	require.NoError(t, m.Send(4, []byte("other")))
	require.NoError(t, m.SendFrame(NewTaggedFrame(3, nil, 1)))

	for i := 0; i < 4; i++ {
		m.Poll()
	}
	require.Equal(t, []received{
		msg(3, 'h', 'i'),
		tagged(0, 42, 'a', 'l', 'l'),
		{Destination: 3, Payload: []byte{}, Tag: 1, Tagged: true},
	}, rec.msgs)
	require.Equal(t, uint64(1), m.Receiver().Stats().NotAddressed)

	m.UnsetStream()
	require.NoError(t, m.Send(3, []byte{1}))
	require.Zero(t, link.Available())
}
