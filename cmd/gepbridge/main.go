package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/mfreader.go/pkg/bridge"
	"github.com/robotalks/mfreader.go/pkg/bridge/mqtt"
	"github.com/robotalks/mfreader.go/pkg/bridge/stream"
	"github.com/robotalks/mfreader.go/pkg/bridge/websocket"
	"github.com/robotalks/mfreader.go/pkg/env"
	fx "github.com/robotalks/mfreader.go/pkg/framework"
)

var (
	transport   = "mqtt"
	listenAddr  = ":7070"
	forwardDest uint
	forwardID   byte
)

func init() {
	env.SetupFlags()
	flag.StringVar(&transport, "transport", transport, "Packet transport: mqtt, ws or tcp.")
	flag.StringVar(&listenAddr, "listen", listenAddr, "Listen address for ws and tcp transports.")
	flag.UintVar(&forwardDest, "forward", forwardDest, "Only forward messages to this destination, 0 forwards all.")
}

// session runs one bridge at a time, the link is opened per session.
type session struct {
	conf *env.Config
	lock sync.Mutex
}

func (s *session) serve(ctx context.Context, pkts bridge.PacketReadWriter) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	link, err := s.conf.OpenLink()
	if err != nil {
		return err
	}
	defer link.Close()
	return bridge.New(link, forwardID, pkts).Run(ctx)
}

func runMQTT(ctx context.Context, conf *env.Config) error {
	q, err := mqtt.NewQueueFromURL(conf.MQTTURL)
	if err != nil {
		return err
	}
	if err := q.Connect(); err != nil {
		return err
	}
	defer q.Close()
	node := conf.NodeID()
	if err := q.PublishMeta(&mqtt.Meta{Node: node, Link: conf.Link, Identity: forwardID}); err != nil {
		glog.Warningf("publish meta failed: %v", err)
	}
	glog.Infof("bridging %s to %s%s", conf.Link, q.TopicPrefix, node)

	link := conf.MustOpenLink()
	defer link.Close()
	rw := mqtt.NewPacketReadWriter(q).ForBridge(node)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	return fx.NewRunnerWith(ctx).Go(
		fx.NamedRun("mqtt", rw),
		fx.NamedRun("bridge", fx.RunFunc(func(ctx context.Context) error {
			defer cancel()
			return bridge.New(link, forwardID, rw).Run(ctx)
		})),
	).Wait()
}

func runTCP(ctx context.Context, conf *env.Config) error {
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}
	s := &session{conf: conf}
	return fx.RunWithContextCloser(ctx, ln, func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return err
			}
			glog.Infof("client %s connected", conn.RemoteAddr())
			go func(conn net.Conn) {
				defer conn.Close()
				if err := s.serve(ctx, stream.New(conn)); err != nil {
					glog.Errorf("client %s: %v", conn.RemoteAddr(), err)
				}
			}(conn)
		}
	})
}

func runWebsocket(ctx context.Context, conf *env.Config) error {
	s := &session{conf: conf}
	server := &http.Server{
		Addr: listenAddr,
		Handler: websocket.Handler(func(rw *websocket.ReadWriter) {
			if err := s.serve(ctx, rw); err != nil {
				glog.Errorf("websocket client: %v", err)
			}
		}),
	}
	return fx.RunWithContextCloser(ctx, server, server.ListenAndServe)
}

func main() {
	flag.Parse()
	conf := env.Default()
	if err := conf.Load(); err != nil {
		log.Fatalln(err)
	}
	id, err := bridge.Destination(uint64(forwardDest))
	if err != nil {
		log.Fatalf("invalid forward destination: %v", err)
	}
	forwardID = id

	var run func(context.Context, *env.Config) error
	switch transport {
	case "mqtt":
		run = runMQTT
	case "tcp":
		run = runTCP
	case "ws":
		run = runWebsocket
	default:
		log.Fatalf("unknown transport %q", transport)
	}

	runner := fx.NewRunner().HandleSignals()
	runner.Go(fx.NamedRun(transport, fx.RunFunc(func(ctx context.Context) error {
		return run(ctx, conf)
	})))
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
