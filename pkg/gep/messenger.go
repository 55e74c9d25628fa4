package gep

// Messenger sends and receives messages over a Stream.
type Messenger struct {
	receiver *Receiver
	sender   Sender
	stream   Stream
}

// NewMessenger creates a Messenger for identity with payloads up to maxSize.
func NewMessenger(identity byte, maxSize int) *Messenger {
	return &Messenger{receiver: NewReceiver(identity, maxSize)}
}

// SetStream binds the stream used for communication.
func (m *Messenger) SetStream(s Stream) {
	m.stream, m.sender.Writer = s, s
	m.receiver.Reset()
}

// UnsetStream unbinds the stream. Sending and polling become no-ops.
func (m *Messenger) UnsetStream() {
	m.stream, m.sender.Writer = nil, nil
}

// Stream gets the bound stream.
func (m *Messenger) Stream() Stream {
	return m.stream
}

// Receiver gets the receiver.
func (m *Messenger) Receiver() *Receiver {
	return m.receiver
}

// SetHandler sets the handler for received messages.
func (m *Messenger) SetHandler(h MessageHandler) {
	m.receiver.Handler = h
}

// Send sends a message without tag.
func (m *Messenger) Send(dest byte, payload []byte) error {
	return m.sender.Send(dest, payload)
}

// SendTagged sends a message with a tag.
func (m *Messenger) SendTagged(dest byte, payload []byte, tag uint16) error {
	return m.sender.SendTagged(dest, payload, tag)
}

// SendFrame sends a prepared frame.
func (m *Messenger) SendFrame(f *Frame) error {
	return m.sender.SendFrame(f)
}

// Poll runs one receive pass over the bytes currently available.
func (m *Messenger) Poll() {
	if m.stream != nil {
		m.receiver.Poll(m.stream)
	}
}
