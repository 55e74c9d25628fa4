package mfreader

import (
	"encoding/hex"
	"strings"
)

const (
	// BlockSize is the size of a MIFARE Classic block.
	BlockSize = 16
	// KeySize is the size of a MIFARE Classic key.
	KeySize = 6
	// SectorTrailerSize is the size of an encoded SectorTrailer.
	SectorTrailerSize = 4 + KeySize + KeySize + 1
)

// Key is a MIFARE Classic key.
type Key [KeySize]byte

// DefaultKey is the factory default key.
var DefaultKey = Key{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// ParseKey parses a key in hex, separators ':' and ' ' are allowed.
func ParseKey(s string) (Key, error) {
	var k Key
	b, err := ParseHex(s)
	if err != nil || len(b) != KeySize {
		return k, ErrInvalidKey
	}
	copy(k[:], b)
	return k, nil
}

func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// ParseHex decodes hex, ignoring ':' and ' ' separators.
func ParseHex(s string) ([]byte, error) {
	s = strings.NewReplacer(":", "", " ", "").Replace(s)
	return hex.DecodeString(s)
}

// Card describes a detected card.
type Card struct {
	Type   CardType
	Blocks int
	UID    []byte
}

// Clone makes a copy.
func (c *Card) Clone() *Card {
	card := *c
	card.UID = append([]byte(nil), c.UID...)
	return &card
}

// Equal compares type and UID.
func (c *Card) Equal(o *Card) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.Type == o.Type && string(c.UID) == string(o.UID)
}

// UIDString returns the UID in hex.
func (c *Card) UIDString() string {
	return hex.EncodeToString(c.UID)
}

// SectorTrailer is the decoded trailer block of a sector.
// AccessFlags holds the access condition (C1<<2|C2<<1|C3) of each block in
// the sector, the last one is for the trailer itself.
type SectorTrailer struct {
	AccessFlags        [4]byte
	KeyA               Key
	KeyB               Key
	GeneralPurposeByte byte
}

// Bytes encodes the trailer as access flags, key A, key B and the
// general purpose byte.
func (t *SectorTrailer) Bytes() []byte {
	b := make([]byte, 0, SectorTrailerSize)
	b = append(b, t.AccessFlags[:]...)
	b = append(b, t.KeyA[:]...)
	b = append(b, t.KeyB[:]...)
	return append(b, t.GeneralPurposeByte)
}

// ParseSectorTrailer decodes the result of Bytes.
func ParseSectorTrailer(b []byte) (*SectorTrailer, error) {
	if len(b) != SectorTrailerSize {
		return nil, ErrInvalidResponse
	}
	t := &SectorTrailer{GeneralPurposeByte: b[16]}
	copy(t.AccessFlags[:], b[0:4])
	copy(t.KeyA[:], b[4:10])
	copy(t.KeyB[:], b[10:16])
	return t, nil
}

// TrailerBlock encodes the trailer into the on-card block layout:
// key A, access bits, general purpose byte, key B.
func (t *SectorTrailer) TrailerBlock() []byte {
	b := make([]byte, BlockSize)
	copy(b[0:6], t.KeyA[:])
	bits := EncodeAccessBits(t.AccessFlags)
	copy(b[6:9], bits[:])
	b[9] = t.GeneralPurposeByte
	copy(b[10:16], t.KeyB[:])
	return b
}

// ParseTrailerBlock decodes an on-card trailer block.
func ParseTrailerBlock(b []byte) (*SectorTrailer, error) {
	if len(b) != BlockSize {
		return nil, ErrInvalidBlockData
	}
	var bits [3]byte
	copy(bits[:], b[6:9])
	flags, err := DecodeAccessBits(bits)
	if err != nil {
		return nil, err
	}
	t := &SectorTrailer{AccessFlags: flags, GeneralPurposeByte: b[9]}
	copy(t.KeyA[:], b[0:6])
	copy(t.KeyB[:], b[10:16])
	return t, nil
}

// EncodeAccessBits packs access flags into the 3 access bytes, each
// condition bit stored with its inverse.
func EncodeAccessBits(flags [4]byte) [3]byte {
	var c1, c2, c3 byte
	for i, f := range flags {
		c1 |= (f >> 2 & 1) << uint(i)
		c2 |= (f >> 1 & 1) << uint(i)
		c3 |= (f & 1) << uint(i)
	}
	return [3]byte{
		(^c2&0x0f)<<4 | ^c1&0x0f,
		c1<<4 | ^c3&0x0f,
		c3<<4 | c2,
	}
}

// DecodeAccessBits unpacks access bytes and verifies the inverted copies.
func DecodeAccessBits(b [3]byte) ([4]byte, error) {
	var flags [4]byte
	c1, c2, c3 := b[1]>>4, b[2]&0x0f, b[2]>>4
	if b[0]&0x0f != ^c1&0x0f || b[0]>>4 != ^c2&0x0f || b[1]&0x0f != ^c3&0x0f {
		return flags, ErrInvalidAccessBits
	}
	for i := range flags {
		flags[i] = (c1>>uint(i)&1)<<2 | (c2>>uint(i)&1)<<1 | c3>>uint(i)&1
	}
	return flags, nil
}

// SectorOf returns the sector of a block, with 4-block sectors up to
// sector 32 and 16-block sectors after.
func SectorOf(block int) int {
	if block < 128 {
		return block / 4
	}
	return 32 + (block-128)/16
}

// TrailerBlockOf returns the trailer block number of a sector.
func TrailerBlockOf(sector int) int {
	if sector < 32 {
		return sector*4 + 3
	}
	return 128 + (sector-32)*16 + 15
}

// IsTrailerBlock determines if block is a sector trailer.
func IsTrailerBlock(block int) bool {
	return TrailerBlockOf(SectorOf(block)) == block
}
