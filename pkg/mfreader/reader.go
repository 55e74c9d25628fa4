package mfreader

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/mfreader.go/pkg/gep"
)

const (
	// DefaultTimeout is the default timeout of a command.
	DefaultTimeout = 500 * time.Millisecond
	// MaxTag is the largest command tag, tags cycle from 1.
	MaxTag = 10000
)

// CardListener is notified when a card is detected or removed.
type CardListener interface {
	CardChanged(r *Reader, present bool)
}

// CardChangedFunc is the func form of CardListener.
type CardChangedFunc func(r *Reader, present bool)

// CardChanged implements CardListener.
func (f CardChangedFunc) CardChanged(r *Reader, present bool) {
	f(r, present)
}

// Reader is the host side client of a reader device.
// Commands are executed one at a time, Run must be running to
// receive responses.
type Reader struct {
	// Timeout of a command, including waiting for previous commands.
	Timeout time.Duration
	// Destination is the identity of the reader device.
	Destination byte

	stream    *gep.StreamReader
	messenger *gep.Messenger
	cmdCh     chan struct{}
	tag       uint16

	lock      sync.Mutex
	pending   *pendingCommand
	card      *Card
	listeners map[int]CardListener
	nextID    int
}

type pendingCommand struct {
	tag      uint16
	resultCh chan *gep.Message
}

// NewReader creates a Reader over a link.
func NewReader(rw io.ReadWriter) *Reader {
	r := &Reader{
		Timeout:   DefaultTimeout,
		stream:    gep.NewStreamReader(rw),
		messenger: gep.NewMessenger(gep.Broadcast, gep.DefaultMaxMessageSize),
		cmdCh:     make(chan struct{}, 1),
		listeners: make(map[int]CardListener),
	}
	r.messenger.SetStream(r.stream)
	r.messenger.SetHandler(gep.HandleMessageFunc(r.handleMessage))
	return r
}

// Messenger returns the underlying messenger.
func (r *Reader) Messenger() *gep.Messenger {
	return r.messenger
}

// Close closes the link.
func (r *Reader) Close() error {
	return r.stream.Close()
}

// Run implements framework.Runnable and receives messages until the link
// is closed or ctx is done.
func (r *Reader) Run(ctx context.Context) error {
	for {
		if err := r.stream.Wait(ctx); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		for r.stream.Available() > 0 {
			r.messenger.Poll()
		}
	}
}

// AddCardListener registers a listener and returns the func to remove it.
func (r *Reader) AddCardListener(l CardListener) (remove func()) {
	r.lock.Lock()
	defer r.lock.Unlock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = l
	return func() {
		r.lock.Lock()
		delete(r.listeners, id)
		r.lock.Unlock()
	}
}

// Card returns a snapshot of the present card, or nil.
func (r *Reader) Card() *Card {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.card == nil {
		return nil
	}
	return r.card.Clone()
}

// ResetCard resets the communication with the card.
func (r *Reader) ResetCard(ctx context.Context) error {
	_, err := r.Do(ctx, CmdReset, nil)
	return err
}

// SetKeyA selects key A for following operations.
func (r *Reader) SetKeyA(ctx context.Context, key Key) error {
	return r.setKey(ctx, KeyA, key)
}

// SetKeyB selects key B for following operations.
func (r *Reader) SetKeyB(ctx context.Context, key Key) error {
	return r.setKey(ctx, KeyB, key)
}

func (r *Reader) setKey(ctx context.Context, kind KeyKind, key Key) error {
	_, err := r.Do(ctx, CmdSetKey, append([]byte{byte(kind)}, key[:]...))
	return err
}

// ReadBlock reads a block.
func (r *Reader) ReadBlock(ctx context.Context, block int) ([]byte, error) {
	if block < 0 || block > 255 {
		return nil, ErrOutOfRange
	}
	return r.Do(ctx, CmdReadBlock, []byte{byte(block)})
}

// WriteBlock writes a block.
func (r *Reader) WriteBlock(ctx context.Context, block int, data []byte) error {
	if block < 0 || block > 255 {
		return ErrOutOfRange
	}
	if len(data) != BlockSize {
		return ErrInvalidBlockData
	}
	_, err := r.Do(ctx, CmdWriteBlock, append([]byte{byte(block)}, data...))
	return err
}

// ReadSectorTrailer reads the trailer of a sector.
func (r *Reader) ReadSectorTrailer(ctx context.Context, sector int) (*SectorTrailer, error) {
	if sector < 0 || sector > 255 {
		return nil, ErrOutOfRange
	}
	data, err := r.Do(ctx, CmdReadSectorTrailer, []byte{byte(sector)})
	if err != nil {
		return nil, err
	}
	return ParseSectorTrailer(data)
}

// WriteSectorTrailer writes the trailer of a sector.
func (r *Reader) WriteSectorTrailer(ctx context.Context, sector int, t *SectorTrailer) error {
	if sector < 0 || sector > 255 {
		return ErrOutOfRange
	}
	_, err := r.Do(ctx, CmdWriteSectorTrailer, append([]byte{byte(sector)}, t.Bytes()...))
	return err
}

// Do executes a command and returns the result data.
func (r *Reader) Do(ctx context.Context, code CommandCode, args []byte) ([]byte, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case r.cmdCh <- struct{}{}:
	case <-ctx.Done():
		return nil, contextError(ctx)
	}
	defer func() { <-r.cmdCh }()

	if r.tag++; r.tag > MaxTag {
		r.tag = 1
	}
	cmd := &pendingCommand{tag: r.tag, resultCh: make(chan *gep.Message, 1)}
	r.lock.Lock()
	r.pending = cmd
	r.lock.Unlock()
	defer func() {
		r.lock.Lock()
		r.pending = nil
		r.lock.Unlock()
	}()

	msg := append([]byte{byte(code)}, args...)
	if err := r.messenger.SendTagged(r.Destination, msg, cmd.tag); err != nil {
		return nil, err
	}
	glog.V(2).Infof("command %s [%d] sent", code, cmd.tag)

	select {
	case <-ctx.Done():
		return nil, contextError(ctx)
	case resp := <-cmd.resultCh:
		if MessageCode(resp.Payload[0]) == MsgCommandFailed {
			return nil, &CommandError{Command: code}
		}
		return resp.Payload[1:], nil
	}
}

func contextError(ctx context.Context) error {
	if ctx.Err() == context.DeadlineExceeded {
		return ErrTimeout
	}
	return ctx.Err()
}

func (r *Reader) handleMessage(msg *gep.Message) {
	if len(msg.Payload) == 0 {
		return
	}
	switch code := MessageCode(msg.Payload[0]); code {
	case MsgCardDetected:
		r.cardDetected(msg.Payload)
	case MsgCardRemoved:
		r.cardRemoved()
	case MsgCommandOK, MsgCommandFailed:
		if !msg.Tagged {
			return
		}
		r.lock.Lock()
		cmd := r.pending
		r.lock.Unlock()
		if cmd == nil || cmd.tag != msg.Tag {
			glog.V(2).Infof("unexpected response [%d]", msg.Tag)
			return
		}
		resp := *msg
		resp.Payload = append([]byte(nil), msg.Payload...)
		select {
		case cmd.resultCh <- &resp:
		default:
		}
	}
}

func (r *Reader) cardDetected(payload []byte) {
	if len(payload) < 3 {
		return
	}
	r.cardRemoved()
	card := &Card{
		Type:   CardType(payload[1]),
		Blocks: int(payload[2]),
		UID:    append([]byte(nil), payload[3:]...),
	}
	if !card.Type.IsValid() {
		glog.Warningf("unknown card type %d", payload[1])
		return
	}
	r.lock.Lock()
	r.card = card
	r.lock.Unlock()
	r.notify(true)
}

func (r *Reader) cardRemoved() {
	r.lock.Lock()
	present := r.card != nil
	r.card = nil
	r.lock.Unlock()
	if present {
		r.notify(false)
	}
}

func (r *Reader) notify(present bool) {
	r.lock.Lock()
	listeners := make([]CardListener, 0, len(r.listeners))
	for id := 0; id < r.nextID; id++ {
		if l, ok := r.listeners[id]; ok {
			listeners = append(listeners, l)
		}
	}
	r.lock.Unlock()
	for _, l := range listeners {
		l.CardChanged(r, present)
	}
}
