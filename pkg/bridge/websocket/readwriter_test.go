package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadWriter(t *testing.T) {
	server := httptest.NewServer(Handler(func(rw *ReadWriter) {
		for {
			pkt, err := rw.ReadPacket()
			if err != nil {
				return
			}
			if rw.WritePacket(append(pkt, 0xff)) != nil {
				return
			}
		}
	}))
	defer server.Close()

	rw, err := Dial("ws"+strings.TrimPrefix(server.URL, "http"), server.URL)
	require.NoError(t, err)
	defer rw.Close()

	require.NoError(t, rw.WritePacket([]byte{0x0c, 0x03}))
	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{0x0c, 0x03, 0xff}, pkt)
}
