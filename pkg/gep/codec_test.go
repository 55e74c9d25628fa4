package gep

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeNibble(t *testing.T) {
	for n := byte(0); n < 16; n++ {
		enc := EncodeNibble(n)
		require.Equal(t, n, enc>>4)
		require.Equal(t, n^0x0f, enc&0x0f)
		dec, ok := DecodeNibble(enc)
		require.True(t, ok)
		require.Equal(t, n, dec)
		require.NotEqual(t, StartByte, enc)
		require.NotEqual(t, EndByte, enc)
		require.NotEqual(t, EndWithTagByte, enc)
	}
}

func TestEncodeByte(t *testing.T) {
	require.Equal(t, [2]byte{0x4b, 0x1e}, EncodeByte('A'))
	require.Equal(t, [2]byte{0x0f, 0x0f}, EncodeByte(0))
	require.Equal(t, [2]byte{0xf0, 0xf0}, EncodeByte(0xff))
}

func TestDecodeNibbleRejectsBitFlips(t *testing.T) {
	for n := byte(0); n < 16; n++ {
		enc := EncodeNibble(n)
		for bit := uint(0); bit < 8; bit++ {
			_, ok := DecodeNibble(enc ^ (1 << bit))
			require.Falsef(t, ok, "nibble %x bit %d", n, bit)
		}
	}
	for _, b := range []byte{StartByte, EndByte, EndWithTagByte} {
		_, ok := DecodeNibble(b)
		require.False(t, ok)
	}
}

func TestCRC8(t *testing.T) {
	require.Equal(t, byte(0), CRC8(0))
	require.Equal(t, byte(0xa1), CRC8(0, []byte("123456789")...))
	require.Equal(t, byte(0xea), CRC8(0, 2, 'A', 'B'))
	// chained spans match a single computation
	require.Equal(t, CRC8(0, 2, 'A', 'B'), CRC8(CRC8(CRC8(0, 2), 'A'), 'B'))
}

func TestCRC8SingleByteSensitivity(t *testing.T) {
	data := []byte{1, 0x10, 0x20, 0x30, 0x12, 0x34}
	crc := CRC8(0, data...)
	for i := range data {
		for bit := uint(0); bit < 8; bit++ {
			corrupted := append([]byte(nil), data...)
			corrupted[i] ^= 1 << bit
			require.NotEqualf(t, crc, CRC8(0, corrupted...), "byte %d bit %d", i, bit)
		}
	}
}
