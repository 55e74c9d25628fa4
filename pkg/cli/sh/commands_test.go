package sh

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/mfreader.go/pkg/mfreader"
)

func TestFormatBlock(t *testing.T) {
	data := []byte("hello\x00world\x01\x02\x03\x7f!")
	require.Equal(t,
		"  4: 68 65 6c 6c 6f 00 77 6f 72 6c 64 01 02 03 7f 21  hello.world....!",
		FormatBlock(4, data))
}

func TestFormatCard(t *testing.T) {
	card := &mfreader.Card{Type: mfreader.CardMifare1K, Blocks: 64, UID: []byte{0xde, 0xad}}
	require.Equal(t, "MIFARE-1K uid=dead blocks=64", FormatCard(card))
}

func TestParseTrailer(t *testing.T) {
	tr, err := ParseTrailer([]string{"0,0,0,1", "a0a1a2a3a4a5", "ff:ff:ff:ff:ff:ff", "69"})
	require.NoError(t, err)
	require.Equal(t, &mfreader.SectorTrailer{
		AccessFlags:        [4]byte{0, 0, 0, 1},
		KeyA:               mfreader.Key{0xa0, 0xa1, 0xa2, 0xa3, 0xa4, 0xa5},
		KeyB:               mfreader.DefaultKey,
		GeneralPurposeByte: 0x69,
	}, tr)
	require.Equal(t,
		"sector 2: access=0,0,0,1 keyA=a0a1a2a3a4a5 keyB=ffffffffffff gpb=69",
		FormatTrailer(2, tr))

	invalid := [][]string{
		{"0,0,0,1", "a0a1a2a3a4a5", "ffffffffffff"},
		{"0,0,1", "a0a1a2a3a4a5", "ffffffffffff", "69"},
		{"0,0,0,8", "a0a1a2a3a4a5", "ffffffffffff", "69"},
		{"0,0,0,1", "a0a1", "ffffffffffff", "69"},
		{"0,0,0,1", "a0a1a2a3a4a5", "zz", "69"},
		{"0,0,0,1", "a0a1a2a3a4a5", "ffffffffffff", "100"},
	}
	for _, args := range invalid {
		_, err := ParseTrailer(args)
		require.Error(t, err, "%v", args)
	}
}
