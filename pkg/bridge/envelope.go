package bridge

import (
	"fmt"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/mfreader.go/pkg/gep"
)

// Envelope is the packet form of a GEP message, see envelope.proto.
type Envelope struct {
	Destination uint32 `protobuf:"varint,1,opt,name=destination,proto3" json:"destination,omitempty"`
	Payload     []byte `protobuf:"bytes,2,opt,name=payload,proto3" json:"payload,omitempty"`
	Tag         uint32 `protobuf:"varint,3,opt,name=tag,proto3" json:"tag,omitempty"`
	Tagged      bool   `protobuf:"varint,4,opt,name=tagged,proto3" json:"tagged,omitempty"`
}

// Reset implements proto.Message.
func (m *Envelope) Reset() { *m = Envelope{} }

// String implements proto.Message.
func (m *Envelope) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*Envelope) ProtoMessage() {}

// EnvelopeFrom wraps a received message.
func EnvelopeFrom(msg *gep.Message) *Envelope {
	return &Envelope{
		Destination: uint32(msg.Destination),
		Payload:     append([]byte(nil), msg.Payload...),
		Tag:         uint32(msg.Tag),
		Tagged:      msg.Tagged,
	}
}

// Destination checks a destination ID given as a wider integer.
func Destination(id uint64) (byte, error) {
	if id > uint64(gep.MaxDestination) {
		return 0, fmt.Errorf("invalid destination %d", id)
	}
	return byte(id), nil
}

// Frame converts the envelope into a frame to send.
func (m *Envelope) Frame() (*gep.Frame, error) {
	dest, err := Destination(uint64(m.Destination))
	if err != nil {
		return nil, err
	}
	if m.Tag > 0xffff {
		return nil, fmt.Errorf("invalid tag %d", m.Tag)
	}
	if m.Tagged {
		return gep.NewTaggedFrame(dest, m.Payload, uint16(m.Tag)), nil
	}
	return gep.NewFrame(dest, m.Payload), nil
}

// EncodeEnvelope encodes an envelope into a packet.
func EncodeEnvelope(m *Envelope) ([]byte, error) {
	return proto.Marshal(m)
}

// DecodeEnvelope decodes a packet.
func DecodeEnvelope(pkt []byte) (*Envelope, error) {
	m := &Envelope{}
	if err := proto.Unmarshal(pkt, m); err != nil {
		return nil, err
	}
	return m, nil
}
