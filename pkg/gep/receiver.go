package gep

import (
	"fmt"

	"github.com/golang/glog"
)

// DefaultMaxMessageSize is the default capacity of a message payload.
const DefaultMaxMessageSize = 50

// Message is a received message.
// Payload refers to the receive buffer and is only valid during
// HandleMessage, copy it to keep it.
type Message struct {
	Destination byte
	Payload     []byte
	Tag         uint16
	Tagged      bool
}

// MessageHandler is called when a message is received.
type MessageHandler interface {
	HandleMessage(*Message)
}

// HandleMessageFunc is func type of MessageHandler.
type HandleMessageFunc func(*Message)

// HandleMessage implements MessageHandler.
func (f HandleMessageFunc) HandleMessage(msg *Message) {
	f(msg)
}

// ReceiveState is the state of the receive process.
type ReceiveState int

// Receive states.
const (
	WaitStart ReceiveState = iota
	WaitDestinationID
	WaitByteHigh
	WaitByteLow
	WaitCRC
	WaitCRCWithTag
	MessageReceived
	MessageReceivedWithTag
)

var receiveStateNames = [...]string{
	"WaitStart",
	"WaitDestinationID",
	"WaitByteHigh",
	"WaitByteLow",
	"WaitCRC",
	"WaitCRCWithTag",
	"MessageReceived",
	"MessageReceivedWithTag",
}

func (s ReceiveState) String() string {
	if s >= 0 && int(s) < len(receiveStateNames) {
		return receiveStateNames[s]
	}
	return fmt.Sprintf("ReceiveState(%d)", int(s))
}

// Stats counts received messages and dropped attempts.
type Stats struct {
	Delivered      uint64
	DecodeErrors   uint64
	NotAddressed   uint64
	CRCErrors      uint64
	Overflows      uint64
	TagErrors      uint64
	LengthErrors   uint64
	Resyncs        uint64
	DiscardedBytes uint64
}

// Receiver reconstructs messages from a byte stream.
type Receiver struct {
	Handler MessageHandler

	identity byte
	maxSize  int
	state    ReceiveState
	dest     byte
	buf      []byte
	length   int
	stats    Stats
}

// NewReceiver creates a Receiver accepting messages for identity (0 accepts
// all messages) with payloads up to maxSize bytes.
func NewReceiver(identity byte, maxSize int) *Receiver {
	if identity > MaxDestination {
		panic(fmt.Sprintf("gep: invalid identity %d", identity))
	}
	if maxSize <= 0 {
		panic(fmt.Sprintf("gep: invalid max message size %d", maxSize))
	}
	return &Receiver{
		identity: identity,
		maxSize:  maxSize,
		buf:      make([]byte, maxSize+2),
	}
}

// Identity returns the configured identity.
func (r *Receiver) Identity() byte {
	return r.identity
}

// MaxMessageSize returns the payload capacity.
func (r *Receiver) MaxMessageSize() int {
	return r.maxSize
}

// State gets the current receive state.
func (r *Receiver) State() ReceiveState {
	return r.state
}

// Stats returns a snapshot of counters.
func (r *Receiver) Stats() Stats {
	return r.stats
}

// Reset drops any partially received message.
func (r *Receiver) Reset() {
	r.state, r.length = WaitStart, 0
}

// Accepts determines if a message to dest is addressed to this receiver.
func (r *Receiver) Accepts(dest byte) bool {
	return r.identity == Broadcast || dest == Broadcast || dest == r.identity
}

// Pending indicates a verified message is waiting for Dispatch.
func (r *Receiver) Pending() bool {
	return r.state == MessageReceived || r.state == MessageReceivedWithTag
}

// Parse consumes one byte and returns true when a verified message is
// pending. No more bytes should be parsed before Dispatch.
func (r *Receiver) Parse(b byte) bool {
	switch r.state {
	case WaitStart:
		if b != StartByte {
			r.stats.DiscardedBytes++
			return false
		}
	case WaitCRC, WaitCRCWithTag:
		// The CRC byte may equal StartByte, so it's checked first.
		if b == r.crc() {
			return r.verified()
		}
		r.drop("crc mismatch", &r.stats.CRCErrors)
	case MessageReceived, MessageReceivedWithTag:
		return true
	}

	if b == StartByte {
		if r.state != WaitStart {
			r.stats.Resyncs++
		}
		r.state = WaitDestinationID
		return false
	}

	switch r.state {
	case WaitDestinationID:
		dest, ok := DecodeNibble(b)
		if !ok {
			r.drop("bad destination", &r.stats.DecodeErrors)
			return false
		}
		if !r.Accepts(dest) {
			r.drop("not addressed", &r.stats.NotAddressed)
			return false
		}
		r.dest, r.length = dest, 0
		r.state = WaitByteHigh
	case WaitByteHigh:
		switch b {
		case EndByte:
			r.state = WaitCRC
			return false
		case EndWithTagByte:
			if r.length < 2 {
				r.drop("tag without bytes", &r.stats.TagErrors)
			} else {
				r.state = WaitCRCWithTag
			}
			return false
		}
		n, ok := DecodeNibble(b)
		if !ok {
			r.drop("bad high nibble", &r.stats.DecodeErrors)
			return false
		}
		if r.length >= len(r.buf) {
			r.drop("buffer full", &r.stats.Overflows)
			return false
		}
		r.buf[r.length] = n << 4
		r.length++
		r.state = WaitByteLow
	case WaitByteLow:
		n, ok := DecodeNibble(b)
		if !ok {
			r.drop("bad low nibble", &r.stats.DecodeErrors)
			return false
		}
		r.buf[r.length-1] |= n
		r.state = WaitByteHigh
	}
	return false
}

// Dispatch delivers the pending message (if any) to Handler and restarts
// the receive process.
func (r *Receiver) Dispatch() bool {
	if !r.Pending() {
		return false
	}
	msg := Message{
		Destination: r.dest,
		Payload:     r.buf[:r.length],
	}
	if r.state == MessageReceivedWithTag {
		msg.Tag, msg.Tagged = uint16(r.buf[r.length])<<8|uint16(r.buf[r.length+1]), true
	}
	r.state = WaitStart
	r.stats.Delivered++
	if h := r.Handler; h != nil {
		h.HandleMessage(&msg)
	}
	return true
}

// Poll consumes currently available bytes from s until a message is
// complete and dispatches it. At most one message is delivered per call.
func (r *Receiver) Poll(s Stream) {
	for !r.Pending() && s.Available() > 0 {
		b, err := s.ReadByte()
		if err != nil {
			break
		}
		r.Parse(b)
	}
	r.Dispatch()
}

func (r *Receiver) crc() byte {
	return CRC8(CRC8(0, r.dest), r.buf[:r.length]...)
}

func (r *Receiver) verified() bool {
	if r.state == WaitCRCWithTag {
		r.length -= 2
		r.state = MessageReceivedWithTag
		return true
	}
	if r.length > r.maxSize {
		r.drop("message too long", &r.stats.LengthErrors)
		return false
	}
	r.state = MessageReceived
	return true
}

func (r *Receiver) drop(reason string, counter *uint64) {
	*counter++
	if glog.V(4) {
		glog.Infof("gep: drop in %s: %s", r.state, reason)
	}
	r.state = WaitStart
}
