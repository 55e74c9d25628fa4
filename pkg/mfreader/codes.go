package mfreader

import "fmt"

// CommandCode is the first byte of a command message.
type CommandCode byte

// Commands executed by the reader.
const (
	CmdReset              CommandCode = 1
	CmdSetKey             CommandCode = 2
	CmdReadBlock          CommandCode = 3
	CmdWriteBlock         CommandCode = 4
	CmdReadSectorTrailer  CommandCode = 5
	CmdWriteSectorTrailer CommandCode = 6
)

func (c CommandCode) String() string {
	switch c {
	case CmdReset:
		return "reset"
	case CmdSetKey:
		return "set-key"
	case CmdReadBlock:
		return "read-block"
	case CmdWriteBlock:
		return "write-block"
	case CmdReadSectorTrailer:
		return "read-sector-trailer"
	case CmdWriteSectorTrailer:
		return "write-sector-trailer"
	}
	return fmt.Sprintf("command(%d)", byte(c))
}

// MessageCode is the first byte of a message sent by the reader.
type MessageCode byte

// Messages sent by the reader.
const (
	MsgCommandOK     MessageCode = 1
	MsgCommandFailed MessageCode = 2
	MsgCardDetected  MessageCode = 3
	MsgCardRemoved   MessageCode = 4
)

// CardType is the type of a detected card.
type CardType byte

// Card types.
const (
	CardISO14443_4 CardType = iota + 1
	CardISO18092
	CardMifareMini
	CardMifare1K
	CardMifare4K
	CardMifareUL
	CardMifarePlus
	CardTNP3XXX
)

var cardTypeNames = [...]string{
	CardISO14443_4: "ISO-14443-4",
	CardISO18092:   "ISO-18092",
	CardMifareMini: "MIFARE-Mini",
	CardMifare1K:   "MIFARE-1K",
	CardMifare4K:   "MIFARE-4K",
	CardMifareUL:   "MIFARE-Ultralight",
	CardMifarePlus: "MIFARE-Plus",
	CardTNP3XXX:    "TNP3XXX",
}

// IsValid indicates the code is a known card type.
func (t CardType) IsValid() bool {
	return t >= CardISO14443_4 && t <= CardTNP3XXX
}

func (t CardType) String() string {
	if t.IsValid() {
		return cardTypeNames[t]
	}
	return fmt.Sprintf("CardType(%d)", byte(t))
}

// KeyKind selects key A or key B for authentication.
type KeyKind byte

// Key kinds.
const (
	KeyA KeyKind = 1
	KeyB KeyKind = 2
)

func (k KeyKind) String() string {
	switch k {
	case KeyA:
		return "A"
	case KeyB:
		return "B"
	}
	return fmt.Sprintf("KeyKind(%d)", byte(k))
}
