package gep

// Control bytes.
const (
	// StartByte starts a new frame.
	StartByte byte = 0x0C
	// EndByte ends a frame without tag.
	EndByte byte = 0x03
	// EndWithTagByte ends a frame carrying a tag.
	EndWithTagByte byte = 0x06
)

// Destination IDs.
const (
	// Broadcast is accepted by every receiver.
	Broadcast byte = 0
	// MaxDestination is the largest addressable destination.
	MaxDestination byte = 0x0f
)

// EncodeNibble encodes the low 4 bits of n into a self-checking byte.
func EncodeNibble(n byte) byte {
	n &= 0x0f
	return (n << 4) | (n ^ 0x0f)
}

// EncodeByte encodes a raw byte into two self-checking bytes, high nibble first.
func EncodeByte(b byte) [2]byte {
	return [2]byte{EncodeNibble(b >> 4), EncodeNibble(b)}
}

// DecodeNibble validates an encoded byte and returns the nibble it carries.
func DecodeNibble(encoded byte) (byte, bool) {
	n := encoded >> 4
	if n != (encoded^0x0f)&0x0f {
		return 0, false
	}
	return n, true
}

// CRC8 updates crc with data using reflected CRC-8/MAXIM (polynomial 0x8C).
// Use 0 as the seed for a fresh computation; the result can be chained
// across multiple spans.
func CRC8(crc byte, data ...byte) byte {
	for _, in := range data {
		for i := 0; i < 8; i++ {
			mix := (crc ^ in) & 0x01
			crc >>= 1
			if mix != 0 {
				crc ^= 0x8c
			}
			in >>= 1
		}
	}
	return crc
}
