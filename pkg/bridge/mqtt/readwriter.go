package mqtt

import (
	"context"
	"encoding/json"
	"io"
)

// Topic suffixes of a reader node.
const (
	// RxTopic carries messages received from the reader.
	RxTopic = "rx"
	// TxTopic carries messages to the reader.
	TxTopic = "tx"
	// MetaTopic holds retained node information.
	MetaTopic = "meta"
)

// NodeTopic builds the topic of a node.
func NodeTopic(node, suffix string) string {
	return node + "/" + suffix
}

// Meta describes a bridged node.
type Meta struct {
	Node     string `json:"node"`
	Link     string `json:"link,omitempty"`
	Identity byte   `json:"identity"`
}

// ReadWriter implements PacketReadWriter.
type ReadWriter struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	packetCh chan []byte
	doneCh   chan struct{}
}

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{
		Queue:    q,
		packetCh: make(chan []byte, 16),
		doneCh:   make(chan struct{}),
	}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForBridge sets topics used by the bridge attached to the reader:
// SubTopic = node/tx
// PubTopic = node/rx
func (p *ReadWriter) ForBridge(node string) *ReadWriter {
	return p.WithTopics(NodeTopic(node, TxTopic), NodeTopic(node, RxTopic))
}

// ForClient sets topics used by a remote client of the reader:
// SubTopic = node/rx
// PubTopic = node/tx
func (p *ReadWriter) ForClient(node string) *ReadWriter {
	return p.WithTopics(NodeTopic(node, RxTopic), NodeTopic(node, TxTopic))
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	case <-p.doneCh:
		return nil, io.EOF
	}
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	token := p.Queue.Pub(p.PubTopic, pkt)
	token.Wait()
	return token.Error()
}

// Run implements Runnable.
func (p *ReadWriter) Run(ctx context.Context) error {
	sub := p.Queue.Sub(p.SubTopic, Handler(p.handleMsg))
	defer sub.Close()
	defer close(p.doneCh)
	<-ctx.Done()
	return ctx.Err()
}

func (p *ReadWriter) handleMsg(_ string, payload []byte) {
	select {
	case p.packetCh <- payload:
	case <-p.doneCh:
	}
}

// PublishMeta publishes retained meta of a node.
func (q *Queue) PublishMeta(meta *Meta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	token := q.PubWith(NodeTopic(meta.Node, MetaTopic), data, 1, true)
	token.Wait()
	return token.Error()
}
