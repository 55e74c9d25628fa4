package gep

import "io"

// Frame contains the information of a message to be sent.
type Frame struct {
	Destination byte
	Payload     []byte
	Tag         uint16
	Tagged      bool
}

// NewFrame creates an untagged frame.
func NewFrame(dest byte, payload []byte) *Frame {
	return &Frame{Destination: dest, Payload: payload}
}

// NewTaggedFrame creates a tagged frame.
func NewTaggedFrame(dest byte, payload []byte, tag uint16) *Frame {
	return &Frame{Destination: dest, Payload: payload, Tag: tag, Tagged: true}
}

// dest returns the destination, out-of-range values are sent as broadcast.
func (f *Frame) dest() byte {
	if f.Destination > MaxDestination {
		return Broadcast
	}
	return f.Destination
}

func (f *Frame) tagBytes() [2]byte {
	return [2]byte{byte(f.Tag >> 8), byte(f.Tag)}
}

// CRC computes the checksum of the frame.
func (f *Frame) CRC() byte {
	crc := CRC8(CRC8(0, f.dest()), f.Payload...)
	if f.Tagged {
		tag := f.tagBytes()
		crc = CRC8(crc, tag[:]...)
	}
	return crc
}

// EncodedLen returns the number of bytes on the wire.
func (f *Frame) EncodedLen() int {
	n := 4 + len(f.Payload)*2
	if f.Tagged {
		n += 4
	}
	return n
}

// Bytes returns encoded bytes for sending.
func (f *Frame) Bytes() []byte {
	b := make([]byte, 0, f.EncodedLen())
	b = append(b, StartByte, EncodeNibble(f.dest()))
	for _, c := range f.Payload {
		enc := EncodeByte(c)
		b = append(b, enc[0], enc[1])
	}
	if f.Tagged {
		for _, c := range f.tagBytes() {
			enc := EncodeByte(c)
			b = append(b, enc[0], enc[1])
		}
		b = append(b, EndWithTagByte)
	} else {
		b = append(b, EndByte)
	}
	return append(b, f.CRC())
}

// WriteTo writes encoded bytes piece by piece without buffering the frame.
func (f *Frame) WriteTo(w io.Writer) (n int64, err error) {
	var nn int
	write := func(p []byte) bool {
		nn, err = w.Write(p)
		n += int64(nn)
		return err == nil
	}
	dest := f.dest()
	crc := CRC8(0, dest)
	if !write([]byte{StartByte, EncodeNibble(dest)}) {
		return
	}
	for _, c := range f.Payload {
		enc := EncodeByte(c)
		if !write(enc[:]) {
			return
		}
	}
	crc = CRC8(crc, f.Payload...)
	if f.Tagged {
		tag := f.tagBytes()
		for _, c := range tag {
			enc := EncodeByte(c)
			if !write(enc[:]) {
				return
			}
		}
		crc = CRC8(crc, tag[:]...)
		if !write([]byte{EndWithTagByte}) {
			return
		}
	} else if !write([]byte{EndByte}) {
		return
	}
	write([]byte{crc})
	return
}

// Sender writes frames to a stream.
type Sender struct {
	Writer io.Writer
}

// Send sends an untagged message. Destination 0 broadcasts.
func (s *Sender) Send(dest byte, payload []byte) error {
	return s.send(NewFrame(dest, payload))
}

// SendTagged sends a message with a tag.
func (s *Sender) SendTagged(dest byte, payload []byte, tag uint16) error {
	return s.send(NewTaggedFrame(dest, payload, tag))
}

// SendFrame sends a frame.
func (s *Sender) SendFrame(f *Frame) error {
	return s.send(f)
}

func (s *Sender) send(f *Frame) error {
	if s.Writer == nil {
		return nil
	}
	_, err := f.WriteTo(s.Writer)
	return err
}
