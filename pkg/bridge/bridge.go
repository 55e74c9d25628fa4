package bridge

import (
	"context"
	"io"

	"github.com/golang/glog"

	fx "github.com/robotalks/mfreader.go/pkg/framework"
	"github.com/robotalks/mfreader.go/pkg/gep"
)

// Bridge forwards messages received on the link as envelopes to the
// packet transport, and envelopes from the transport as frames to the link.
type Bridge struct {
	Packets PacketReadWriter

	stream    *gep.StreamReader
	messenger *gep.Messenger
}

// New creates a Bridge. identity filters the messages from the link,
// gep.Broadcast forwards all.
func New(link io.ReadWriter, identity byte, packets PacketReadWriter) *Bridge {
	b := &Bridge{
		Packets:   packets,
		stream:    gep.NewStreamReader(link),
		messenger: gep.NewMessenger(identity, gep.DefaultMaxMessageSize),
	}
	b.messenger.SetStream(b.stream)
	b.messenger.SetHandler(gep.HandleMessageFunc(b.handleMessage))
	return b
}

// Stats returns receiver statistics of the link.
func (b *Bridge) Stats() gep.Stats {
	return b.messenger.Receiver().Stats()
}

// Run implements Runnable. It stops when the link or the transport ends.
func (b *Bridge) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopOnExit := func(fn func(context.Context) error) fx.Runnable {
		return fx.RunFunc(func(ctx context.Context) error {
			defer cancel()
			return fn(ctx)
		})
	}
	return fx.NewRunnerWith(ctx).Go(
		fx.NamedRun("link", stopOnExit(b.receive)),
		fx.NamedRun("packets", stopOnExit(b.forward)),
	).Wait()
}

func (b *Bridge) receive(ctx context.Context) error {
	for {
		if err := b.stream.Wait(ctx); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		for b.stream.Available() > 0 {
			b.messenger.Poll()
		}
	}
}

func (b *Bridge) forward(ctx context.Context) error {
	return fx.RunWithContext(ctx, func() error {
		for {
			pkt, err := b.Packets.ReadPacket()
			if err != nil {
				if err == io.EOF {
					return nil
				}
				return err
			}
			env, err := DecodeEnvelope(pkt)
			if err != nil {
				glog.Warningf("drop invalid packet: %v", err)
				continue
			}
			frame, err := env.Frame()
			if err != nil {
				glog.Warningf("drop envelope: %v", err)
				continue
			}
			if err := b.messenger.SendFrame(frame); err != nil {
				return err
			}
			glog.V(2).Infof("TX %s", env)
		}
	})
}

func (b *Bridge) handleMessage(msg *gep.Message) {
	env := EnvelopeFrom(msg)
	pkt, err := EncodeEnvelope(env)
	if err == nil {
		err = b.Packets.WritePacket(pkt)
	}
	if err != nil {
		glog.Warningf("forward message failed: %v", err)
		return
	}
	glog.V(2).Infof("RX %s", env)
}
