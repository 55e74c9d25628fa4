package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/robotalks/mfreader.go/pkg/bridge"
	"github.com/robotalks/mfreader.go/pkg/bridge/mqtt"
	"github.com/robotalks/mfreader.go/pkg/env"
	"github.com/robotalks/mfreader.go/pkg/mfreader"
)

func init() {
	env.SetupFlags()
}

func describe(topic string, envelope *bridge.Envelope) string {
	if len(envelope.Payload) == 0 {
		return ""
	}
	code := envelope.Payload[0]
	if strings.HasSuffix(topic, "/"+mqtt.TxTopic) {
		return mfreader.CommandCode(code).String()
	}
	switch mfreader.MessageCode(code) {
	case mfreader.MsgCommandOK:
		return "ok"
	case mfreader.MsgCommandFailed:
		return "failed"
	case mfreader.MsgCardDetected:
		if len(envelope.Payload) >= 3 {
			card := &mfreader.Card{Type: mfreader.CardType(envelope.Payload[1]), Blocks: int(envelope.Payload[2]), UID: envelope.Payload[3:]}
			return "card " + card.Type.String() + " " + card.UIDString()
		}
	case mfreader.MsgCardRemoved:
		return "card removed"
	}
	return ""
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)
	conf := env.Default()
	if err := conf.Load(); err != nil {
		log.Fatalln(err)
	}

	q, err := mqtt.NewQueueFromURL(conf.MQTTURL)
	if err != nil {
		log.Fatalln(err)
	}

	q.Sub("#", mqtt.Handler(func(topic string, payload []byte) {
		if strings.HasSuffix(topic, "/"+mqtt.MetaTopic) {
			log.Printf("%s: %s", topic, string(payload))
			return
		}
		envelope, err := bridge.DecodeEnvelope(payload)
		if err != nil {
			log.Printf("%s: bad envelope: %v", topic, err)
			return
		}
		log.Printf("%s: %s %s", topic, envelope.String(), describe(topic, envelope))
	}))
	if err := q.Connect(); err != nil {
		log.Fatalln(err)
	}
	defer q.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	<-sigCh
}
