package mfreader

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAccessBits(t *testing.T) {
	cases := []struct {
		flags [4]byte
		bits  [3]byte
	}{
		{[4]byte{0, 0, 0, 1}, [3]byte{0xff, 0x07, 0x80}},
		{[4]byte{0, 0, 0, 4}, [3]byte{0xf7, 0x8f, 0x00}},
		{[4]byte{1, 2, 3, 7}, [3]byte{0x17, 0x82, 0xde}},
	}
	for _, c := range cases {
		require.Equal(t, c.bits, EncodeAccessBits(c.flags))
		flags, err := DecodeAccessBits(c.bits)
		require.NoError(t, err)
		require.Equal(t, c.flags, flags)
	}
	_, err := DecodeAccessBits([3]byte{0xff, 0x07, 0x81})
	require.Equal(t, ErrInvalidAccessBits, err)
}

func TestSectorTrailer(t *testing.T) {
	st := &SectorTrailer{
		AccessFlags:        [4]byte{0, 0, 0, 1},
		KeyA:               Key{1, 2, 3, 4, 5, 6},
		KeyB:               Key{7, 8, 9, 10, 11, 12},
		GeneralPurposeByte: 0x69,
	}
	b := st.Bytes()
	require.Equal(t, []byte{0, 0, 0, 1, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 0x69}, b)
	parsed, err := ParseSectorTrailer(b)
	require.NoError(t, err)
	require.Equal(t, st, parsed)
	_, err = ParseSectorTrailer(b[1:])
	require.Equal(t, ErrInvalidResponse, err)

	block := st.TrailerBlock()
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 0xff, 0x07, 0x80, 0x69, 7, 8, 9, 10, 11, 12}, block)
	parsed, err = ParseTrailerBlock(block)
	require.NoError(t, err)
	require.Equal(t, st, parsed)
}

func TestBlockLayout(t *testing.T) {
	require.Equal(t, 3, TrailerBlockOf(0))
	require.Equal(t, 63, TrailerBlockOf(15))
	require.Equal(t, 143, TrailerBlockOf(32))
	require.Equal(t, 15, SectorOf(63))
	require.Equal(t, 33, SectorOf(144))
	require.True(t, IsTrailerBlock(7))
	require.False(t, IsTrailerBlock(8))
}

func TestParseKey(t *testing.T) {
	k, err := ParseKey("a0:a1:a2:a3:a4:a5")
	require.NoError(t, err)
	require.Equal(t, Key{0xa0, 0xa1, 0xa2, 0xa3, 0xa4, 0xa5}, k)
	require.Equal(t, "a0a1a2a3a4a5", k.String())
	_, err = ParseKey("a0a1")
	require.Equal(t, ErrInvalidKey, err)
	_, err = ParseKey("xyz")
	require.Equal(t, ErrInvalidKey, err)
}

func TestCodes(t *testing.T) {
	require.Equal(t, "MIFARE-1K", CardMifare1K.String())
	require.Equal(t, "CardType(9)", CardType(9).String())
	require.False(t, CardType(0).IsValid())
	require.Equal(t, "read-block", CmdReadBlock.String())
	require.EqualError(t, &CommandError{Command: CmdWriteBlock}, "command write-block failed")
	require.True(t, IsCommandFailed(&CommandError{}))
	require.False(t, IsCommandFailed(ErrTimeout))
}
