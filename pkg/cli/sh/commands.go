package sh

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/mfreader.go/pkg/mfreader"
)

// CardInfo is the JSON form of a card.
type CardInfo struct {
	Present bool   `json:"present"`
	Type    string `json:"type,omitempty"`
	Blocks  int    `json:"blocks,omitempty"`
	UID     string `json:"uid,omitempty"`
}

// BlockData is the JSON form of a block.
type BlockData struct {
	Block int    `json:"block"`
	Data  string `json:"data"`
}

// TrailerInfo is the JSON form of a sector trailer.
type TrailerInfo struct {
	Sector             int     `json:"sector"`
	AccessFlags        [4]byte `json:"access"`
	KeyA               string  `json:"keyA"`
	KeyB               string  `json:"keyB"`
	GeneralPurposeByte byte    `json:"gpb"`
}

// FormatCard formats card information.
func FormatCard(card *mfreader.Card) string {
	return fmt.Sprintf("%s uid=%s blocks=%d", card.Type, card.UIDString(), card.Blocks)
}

// FormatBlock formats a block as hex and printable characters.
func FormatBlock(block int, data []byte) string {
	var text strings.Builder
	for _, b := range data {
		if b >= 0x20 && b < 0x7f {
			text.WriteByte(b)
		} else {
			text.WriteByte('.')
		}
	}
	return fmt.Sprintf("%3d: % x  %s", block, data, text.String())
}

// FormatTrailer formats a sector trailer.
func FormatTrailer(sector int, t *mfreader.SectorTrailer) string {
	return fmt.Sprintf("sector %d: access=%d,%d,%d,%d keyA=%s keyB=%s gpb=%02x",
		sector, t.AccessFlags[0], t.AccessFlags[1], t.AccessFlags[2], t.AccessFlags[3],
		t.KeyA, t.KeyB, t.GeneralPurposeByte)
}

// ParseTrailer parses ACCESS KEYA KEYB GPB, ACCESS is 4 comma separated
// access conditions (0-7).
func ParseTrailer(args []string) (*mfreader.SectorTrailer, error) {
	if len(args) != 4 {
		return nil, fmt.Errorf("ACCESS KEYA KEYB GPB required")
	}
	t := &mfreader.SectorTrailer{}
	flags := strings.Split(args[0], ",")
	if len(flags) != len(t.AccessFlags) {
		return nil, fmt.Errorf("invalid ACCESS: 4 conditions required")
	}
	for i, f := range flags {
		val, err := strconv.ParseUint(f, 10, 8)
		if err != nil || val > 7 {
			return nil, fmt.Errorf("invalid ACCESS condition %q", f)
		}
		t.AccessFlags[i] = byte(val)
	}
	var err error
	if t.KeyA, err = mfreader.ParseKey(args[1]); err != nil {
		return nil, fmt.Errorf("invalid KEYA: %v", err)
	}
	if t.KeyB, err = mfreader.ParseKey(args[2]); err != nil {
		return nil, fmt.Errorf("invalid KEYB: %v", err)
	}
	gpb, err := strconv.ParseUint(args[3], 16, 8)
	if err != nil {
		return nil, fmt.Errorf("invalid GPB: %v", err)
	}
	t.GeneralPurposeByte = byte(gpb)
	return t, nil
}

func intArg(c *ishell.Context, index int, name string) (int, bool) {
	if len(c.Args) <= index {
		c.Err(fmt.Errorf("%s required", name))
		return 0, false
	}
	val, err := strconv.ParseInt(c.Args[index], 0, 32)
	if err != nil {
		c.Err(fmt.Errorf("invalid %s: %v", name, err))
		return 0, false
	}
	return int(val), true
}

func printResult(c *ishell.Context, err error) {
	if err != nil {
		c.Err(err)
		return
	}
	ShellFrom(c).Print(c, map[string]bool{"ok": true}, "OK")
}

func keyCmd(name string, set func(*mfreader.Reader, context.Context, mfreader.Key) error) ishell.Cmd {
	return ishell.Cmd{
		Name: name,
		Help: "KEY(hex, 6 bytes)",
		Func: MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("KEY required"))
				return
			}
			key, err := mfreader.ParseKey(strings.Join(c.Args, ""))
			if err != nil {
				c.Err(err)
				return
			}
			printResult(c, set(ReaderFrom(c), context.Background(), key))
		}),
	}
}

func readBlocks(c *ishell.Context, first, count int) {
	s := ShellFrom(c)
	var blocks []BlockData
	for block := first; block < first+count; block++ {
		data, err := ReaderFrom(c).ReadBlock(context.Background(), block)
		if err != nil {
			c.Err(fmt.Errorf("block %d: %v", block, err))
			return
		}
		blocks = append(blocks, BlockData{Block: block, Data: hex.EncodeToString(data)})
		if !s.OutputJSON {
			c.Println(FormatBlock(block, data))
		}
	}
	if s.OutputJSON {
		s.Print(c, blocks, "")
	}
}

var (
	// ConnectCmd connects a reader.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[LINK]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			link := s.Config.Link
			if len(c.Args) > 0 {
				link = c.Args[0]
			}
			if err := s.Connect(link); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current reader.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// CardCmd shows the present card.
	CardCmd = ishell.Cmd{
		Name: "card",
		Help: "",
		Func: MustBeConnected(func(c *ishell.Context) {
			card := ReaderFrom(c).Card()
			if card == nil {
				ShellFrom(c).Print(c, &CardInfo{}, "No card")
				return
			}
			info := &CardInfo{Present: true, Type: card.Type.String(), Blocks: card.Blocks, UID: card.UIDString()}
			ShellFrom(c).Print(c, info, FormatCard(card))
		}),
	}

	// ResetCmd resets the card.
	ResetCmd = ishell.Cmd{
		Name: "reset",
		Help: "",
		Func: MustBeConnected(func(c *ishell.Context) {
			printResult(c, ReaderFrom(c).ResetCard(context.Background()))
		}),
	}

	// KeyACmd selects key A.
	KeyACmd = keyCmd("key.a", (*mfreader.Reader).SetKeyA)

	// KeyBCmd selects key B.
	KeyBCmd = keyCmd("key.b", (*mfreader.Reader).SetKeyB)

	// ReadCmd reads a block.
	ReadCmd = ishell.Cmd{
		Name:    "read",
		Aliases: []string{"r"},
		Help:    "BLOCK",
		Func: MustBeConnected(func(c *ishell.Context) {
			if block, valid := intArg(c, 0, "BLOCK"); valid {
				readBlocks(c, block, 1)
			}
		}),
	}

	// DumpCmd reads all data blocks of a sector.
	DumpCmd = ishell.Cmd{
		Name: "dump",
		Help: "SECTOR",
		Func: MustBeConnected(func(c *ishell.Context) {
			sector, valid := intArg(c, 0, "SECTOR")
			if !valid {
				return
			}
			if sector < 0 {
				c.Err(mfreader.ErrOutOfRange)
				return
			}
			var first int
			if sector > 0 {
				first = mfreader.TrailerBlockOf(sector-1) + 1
			}
			readBlocks(c, first, mfreader.TrailerBlockOf(sector)-first)
		}),
	}

	// WriteCmd writes a block.
	WriteCmd = ishell.Cmd{
		Name:    "write",
		Aliases: []string{"w"},
		Help:    "BLOCK DATA(hex, 16 bytes)",
		Func: MustBeConnected(func(c *ishell.Context) {
			block, valid := intArg(c, 0, "BLOCK")
			if !valid {
				return
			}
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("DATA required"))
				return
			}
			data, err := mfreader.ParseHex(strings.Join(c.Args[1:], ""))
			if err != nil {
				c.Err(fmt.Errorf("invalid DATA: %v", err))
				return
			}
			printResult(c, ReaderFrom(c).WriteBlock(context.Background(), block, data))
		}),
	}

	// TrailerReadCmd reads a sector trailer.
	TrailerReadCmd = ishell.Cmd{
		Name:    "trailer.read",
		Aliases: []string{"tr"},
		Help:    "SECTOR",
		Func: MustBeConnected(func(c *ishell.Context) {
			sector, valid := intArg(c, 0, "SECTOR")
			if !valid {
				return
			}
			t, err := ReaderFrom(c).ReadSectorTrailer(context.Background(), sector)
			if err != nil {
				c.Err(err)
				return
			}
			info := &TrailerInfo{
				Sector:             sector,
				AccessFlags:        t.AccessFlags,
				KeyA:               t.KeyA.String(),
				KeyB:               t.KeyB.String(),
				GeneralPurposeByte: t.GeneralPurposeByte,
			}
			ShellFrom(c).Print(c, info, FormatTrailer(sector, t))
		}),
	}

	// TrailerWriteCmd writes a sector trailer.
	TrailerWriteCmd = ishell.Cmd{
		Name:    "trailer.write",
		Aliases: []string{"tw"},
		Help:    "SECTOR ACCESS(c0,c1,c2,c3) KEYA KEYB GPB",
		Func: MustBeConnected(func(c *ishell.Context) {
			sector, valid := intArg(c, 0, "SECTOR")
			if !valid {
				return
			}
			t, err := ParseTrailer(c.Args[1:])
			if err != nil {
				c.Err(err)
				return
			}
			printResult(c, ReaderFrom(c).WriteSectorTrailer(context.Background(), sector, t))
		}),
	}

	// StatsCmd shows link statistics.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Help: "",
		Func: MustBeConnected(func(c *ishell.Context) {
			stats := ReaderFrom(c).Messenger().Receiver().Stats()
			ShellFrom(c).Print(c, &stats, fmt.Sprintf("%+v", stats))
		}),
	}
)
