// Package sim simulates a MIFARE Classic 1K card in front of a reader chip.
package sim

import (
	"errors"
	"sync"

	"github.com/robotalks/mfreader.go/pkg/mfreader"
)

const (
	// Sectors is the number of sectors of a 1K card.
	Sectors = 16
	// Blocks is the number of blocks of a 1K card.
	Blocks = Sectors * 4
)

var (
	// ErrNoCard indicates no card in the field.
	ErrNoCard = errors.New("no card")
	// ErrAuth indicates authentication failure.
	ErrAuth = errors.New("authentication failed")
	// ErrNotAuthenticated indicates the sector is not authenticated.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrReadOnly indicates writing the manufacturer block.
	ErrReadOnly = errors.New("block is read-only")
)

// DefaultAccessBits is the transport configuration of access bits.
var DefaultAccessBits = [3]byte{0xff, 0x07, 0x80}

// Card is a simulated MIFARE Classic 1K card.
type Card struct {
	UID    []byte
	blocks [Blocks][mfreader.BlockSize]byte
}

// NewCard creates a card in transport configuration.
func NewCard(uid []byte) *Card {
	c := &Card{UID: append([]byte(nil), uid...)}
	var bcc byte
	for _, b := range uid {
		bcc ^= b
	}
	n := copy(c.blocks[0][:], uid)
	if n < mfreader.BlockSize {
		c.blocks[0][n] = bcc
	}
	if n+1 < mfreader.BlockSize {
		c.blocks[0][n+1] = 0x08
	}
	for sector := 0; sector < Sectors; sector++ {
		t := c.blocks[mfreader.TrailerBlockOf(sector)][:]
		copy(t[0:6], mfreader.DefaultKey[:])
		copy(t[6:9], DefaultAccessBits[:])
		t[9] = 0x69
		copy(t[10:16], mfreader.DefaultKey[:])
	}
	return c
}

// Block returns a copy of the raw block content.
func (c *Card) Block(block int) []byte {
	return append([]byte(nil), c.blocks[block][:]...)
}

func (c *Card) info() *mfreader.Card {
	return &mfreader.Card{Type: mfreader.CardMifare1K, Blocks: Blocks, UID: append([]byte(nil), c.UID...)}
}

// Chip implements mfreader.Chip with a card which can be inserted and
// removed at any time.
type Chip struct {
	card       *Card
	authSector int
	lock       sync.Mutex
}

// NewChip creates an empty Chip.
func NewChip() *Chip {
	return &Chip{authSector: -1}
}

// Insert places a card in the field.
func (c *Chip) Insert(card *Card) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.card, c.authSector = card, -1
}

// Remove takes the card away and returns it.
func (c *Chip) Remove() *Card {
	c.lock.Lock()
	defer c.lock.Unlock()
	card := c.card
	c.card, c.authSector = nil, -1
	return card
}

// DetectCard implements mfreader.Chip.
func (c *Chip) DetectCard() *mfreader.Card {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.card == nil {
		return nil
	}
	return c.card.info()
}

// Authenticate implements mfreader.Chip.
func (c *Chip) Authenticate(block byte, kind mfreader.KeyKind, key mfreader.Key) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.authSector = -1
	if c.card == nil {
		return ErrNoCard
	}
	if int(block) >= Blocks {
		return mfreader.ErrOutOfRange
	}
	sector := mfreader.SectorOf(int(block))
	t := c.card.blocks[mfreader.TrailerBlockOf(sector)]
	var expected []byte
	switch kind {
	case mfreader.KeyA:
		expected = t[0:6]
	case mfreader.KeyB:
		expected = t[10:16]
	default:
		return ErrAuth
	}
	if string(expected) != string(key[:]) {
		return ErrAuth
	}
	c.authSector = sector
	return nil
}

// ReadBlock implements mfreader.Chip. Key A is never readable.
func (c *Chip) ReadBlock(block byte) ([]byte, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if err := c.check(block); err != nil {
		return nil, err
	}
	data := c.card.Block(int(block))
	if mfreader.IsTrailerBlock(int(block)) {
		for i := 0; i < mfreader.KeySize; i++ {
			data[i] = 0
		}
	}
	return data, nil
}

// WriteBlock implements mfreader.Chip.
func (c *Chip) WriteBlock(block byte, data []byte) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if err := c.check(block); err != nil {
		return err
	}
	if block == 0 {
		return ErrReadOnly
	}
	if len(data) != mfreader.BlockSize {
		return mfreader.ErrInvalidBlockData
	}
	copy(c.card.blocks[block][:], data)
	return nil
}

// Halt implements mfreader.Chip.
func (c *Chip) Halt() {
	c.lock.Lock()
	c.authSector = -1
	c.lock.Unlock()
}

func (c *Chip) check(block byte) error {
	if c.card == nil {
		return ErrNoCard
	}
	if int(block) >= Blocks || mfreader.SectorOf(int(block)) != c.authSector {
		return ErrNotAuthenticated
	}
	return nil
}
