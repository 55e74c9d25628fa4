// Package device runs a GEP endpoint on a cooperative loop: each pass
// receives at most one message and then runs the due loopers.
package device

import (
	"context"
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/mfreader.go/pkg/gep"
	"github.com/robotalks/mfreader.go/pkg/looper"
)

// Starter is called once when the device is set up.
type Starter interface {
	Start(*Device)
}

// StartFunc is the func form of Starter.
type StartFunc func(*Device)

// Start implements Starter.
func (f StartFunc) Start(d *Device) {
	f(d)
}

// Device is a GEP endpoint. The application passed to New may implement
// any of Starter, looper.TickHandler (card checks) and gep.MessageHandler.
type Device struct {
	Messenger *gep.Messenger
	Scheduler *looper.Scheduler
	CardCheck looper.Timer

	CardCheckInterval time.Duration
	IdleInterval      time.Duration

	starter Starter
	ready   bool
}

// loopers registered by the device itself.
const deviceLoopers = 1

// New creates a Device. More loopers can be registered on the Scheduler
// in Start, up to extraLoopers.
func New(identity byte, maxMessageSize int, app interface{}) *Device {
	return NewWithClock(identity, maxMessageSize, app, looper.SystemTime, 0)
}

// NewWithClock creates a Device using a specific time source and room for
// extra loopers.
func NewWithClock(identity byte, maxMessageSize int, app interface{}, ts looper.TimeSource, extraLoopers int) *Device {
	d := &Device{
		Messenger:         gep.NewMessenger(identity, maxMessageSize),
		Scheduler:         looper.New(ts, deviceLoopers+extraLoopers),
		CardCheckInterval: defaultConfig.CardCheckInterval,
		IdleInterval:      defaultConfig.IdleInterval,
	}
	if starter, ok := app.(Starter); ok {
		d.starter = starter
	}
	if ticker, ok := app.(looper.TickHandler); ok {
		d.CardCheck.Tick = ticker
	}
	if handler, ok := app.(gep.MessageHandler); ok {
		d.Messenger.SetHandler(handler)
	}
	return d
}

// Setup registers loopers and starts the application. It only runs once.
func (d *Device) Setup() {
	if d.ready {
		return
	}
	d.ready = true
	d.CardCheck.Bind(d.Scheduler).Init(d.CardCheckInterval, true)
	if d.starter != nil {
		d.starter.Start(d)
	}
	glog.V(4).Infof("device %d ready", d.Messenger.Receiver().Identity())
}

// Loop runs one receive pass and one scheduler pass.
func (d *Device) Loop() {
	d.Messenger.Poll()
	d.Scheduler.Pass()
}

// Run implements framework.Runnable.
func (d *Device) Run(ctx context.Context) error {
	d.Setup()
	var done <-chan struct{}
	if sr, ok := d.Messenger.Stream().(*gep.StreamReader); ok {
		done = sr.Done()
	}
	for {
		d.Loop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			d.drain()
			if err := d.Messenger.Stream().(*gep.StreamReader).Err(); err != io.EOF {
				return err
			}
			return nil
		case <-time.After(d.IdleInterval):
		}
	}
}

// drain delivers the messages already buffered after the link is closed.
func (d *Device) drain() {
	s := d.Messenger.Stream()
	for s.Available() > 0 {
		d.Loop()
	}
}
