package mfreader

import (
	"github.com/golang/glog"

	"github.com/robotalks/mfreader.go/pkg/device"
	"github.com/robotalks/mfreader.go/pkg/gep"
)

// Chip is the RFID front end driven by the Firmware.
type Chip interface {
	// DetectCard returns the card in the field or nil.
	DetectCard() *Card
	// Authenticate unlocks the sector of block.
	Authenticate(block byte, kind KeyKind, key Key) error
	ReadBlock(block byte) ([]byte, error)
	WriteBlock(block byte, data []byte) error
	// Halt stops communication with the current card.
	Halt()
}

// Firmware is the reader device application. It's installed on a
// device.Device and checks the card on every card check tick.
type Firmware struct {
	Chip Chip
	// Host is the destination of responses and notifications.
	Host byte

	messenger *gep.Messenger
	card      *Card
	keyKind   KeyKind
	key       Key
}

// NewFirmware creates a Firmware over a chip.
func NewFirmware(chip Chip) *Firmware {
	return &Firmware{Chip: chip, keyKind: KeyA, key: DefaultKey}
}

// Card returns the present card, nil if no card.
func (f *Firmware) Card() *Card {
	return f.card
}

// Start implements device.Starter.
func (f *Firmware) Start(d *device.Device) {
	f.messenger = d.Messenger
}

// Tick implements looper.TickHandler and checks the card presence.
func (f *Firmware) Tick() {
	card := f.Chip.DetectCard()
	if card.Equal(f.card) {
		return
	}
	if f.card != nil {
		f.card = nil
		f.notify([]byte{byte(MsgCardRemoved)})
		glog.V(2).Info("card removed")
	}
	if card != nil {
		f.card = card.Clone()
		msg := append([]byte{byte(MsgCardDetected), byte(card.Type), byte(card.Blocks)}, card.UID...)
		f.notify(msg)
		glog.V(2).Infof("card detected: %s %s", card.Type, card.UIDString())
	}
}

// HandleMessage implements gep.MessageHandler and executes commands.
func (f *Firmware) HandleMessage(msg *gep.Message) {
	if !msg.Tagged || len(msg.Payload) == 0 {
		return
	}
	code := CommandCode(msg.Payload[0])
	result, err := f.execute(code, msg.Payload[1:])
	if err != nil {
		glog.V(2).Infof("command %s [%d] failed: %v", code, msg.Tag, err)
		f.reply(msg.Tag, []byte{byte(MsgCommandFailed)})
		return
	}
	f.reply(msg.Tag, append([]byte{byte(MsgCommandOK)}, result...))
}

func (f *Firmware) execute(code CommandCode, args []byte) ([]byte, error) {
	switch code {
	case CmdReset:
		f.Chip.Halt()
		// the card is reported again on next check.
		f.card = nil
		return nil, nil
	case CmdSetKey:
		if len(args) != 1+KeySize {
			return nil, ErrInvalidKey
		}
		kind := KeyKind(args[0])
		if kind != KeyA && kind != KeyB {
			return nil, ErrInvalidKey
		}
		f.keyKind = kind
		copy(f.key[:], args[1:])
		return nil, nil
	}

	if f.card == nil {
		return nil, errNoCard
	}
	switch code {
	case CmdReadBlock:
		if len(args) != 1 {
			return nil, ErrOutOfRange
		}
		return f.read(int(args[0]))
	case CmdWriteBlock:
		if len(args) != 1+BlockSize {
			return nil, ErrInvalidBlockData
		}
		block := int(args[0])
		if IsTrailerBlock(block) {
			return nil, ErrOutOfRange
		}
		return nil, f.write(block, args[1:])
	case CmdReadSectorTrailer:
		if len(args) != 1 {
			return nil, ErrOutOfRange
		}
		data, err := f.read(TrailerBlockOf(int(args[0])))
		if err != nil {
			return nil, err
		}
		t, err := ParseTrailerBlock(data)
		if err != nil {
			return nil, err
		}
		return t.Bytes(), nil
	case CmdWriteSectorTrailer:
		if len(args) != 1+SectorTrailerSize {
			return nil, ErrInvalidBlockData
		}
		t, err := ParseSectorTrailer(args[1:])
		if err != nil {
			return nil, err
		}
		return nil, f.write(TrailerBlockOf(int(args[0])), t.TrailerBlock())
	}
	return nil, errUnknownCommand
}

func (f *Firmware) read(block int) ([]byte, error) {
	if block >= f.card.Blocks {
		return nil, ErrOutOfRange
	}
	if err := f.Chip.Authenticate(byte(block), f.keyKind, f.key); err != nil {
		return nil, err
	}
	return f.Chip.ReadBlock(byte(block))
}

func (f *Firmware) write(block int, data []byte) error {
	if block >= f.card.Blocks {
		return ErrOutOfRange
	}
	if err := f.Chip.Authenticate(byte(block), f.keyKind, f.key); err != nil {
		return err
	}
	return f.Chip.WriteBlock(byte(block), data)
}

func (f *Firmware) notify(msg []byte) {
	if f.messenger == nil {
		return
	}
	if err := f.messenger.Send(f.Host, msg); err != nil {
		glog.Warningf("send notification failed: %v", err)
	}
}

func (f *Firmware) reply(tag uint16, msg []byte) {
	if f.messenger == nil {
		return
	}
	if err := f.messenger.SendTagged(f.Host, msg, tag); err != nil {
		glog.Warningf("send reply [%d] failed: %v", tag, err)
	}
}
