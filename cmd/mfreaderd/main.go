package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/mfreader.go/pkg/device"
	"github.com/robotalks/mfreader.go/pkg/env"
	fx "github.com/robotalks/mfreader.go/pkg/framework"
	"github.com/robotalks/mfreader.go/pkg/gep"
	"github.com/robotalks/mfreader.go/pkg/mfreader"
	"github.com/robotalks/mfreader.go/pkg/mfreader/sim"
)

var (
	cardUID      = "01020304"
	cardInterval time.Duration
)

func init() {
	env.SetupFlags()
	device.SetupFlags()
	flag.StringVar(&cardUID, "card-uid", cardUID, "UID (hex) of the simulated card, empty for no card.")
	flag.DurationVar(&cardInterval, "card-toggle", cardInterval, "Insert/remove the simulated card periodically.")
}

func toggleCard(chip *sim.Chip, card *sim.Card) fx.Runnable {
	return fx.RunFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(cardInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if chip.Remove() == nil {
					chip.Insert(card)
					glog.Info("card inserted")
				} else {
					glog.Info("card removed")
				}
			}
		}
	})
}

func main() {
	flag.Parse()
	conf := env.Default()
	if err := conf.Load(); err != nil {
		log.Fatalln(err)
	}

	chip := sim.NewChip()
	var card *sim.Card
	if cardUID != "" {
		uid, err := mfreader.ParseHex(cardUID)
		if err != nil {
			log.Fatalf("invalid card UID: %v", err)
		}
		card = sim.NewCard(uid)
		chip.Insert(card)
	}

	link := conf.MustOpenLink()
	defer link.Close()
	dev, err := conf.Device.NewDevice(gep.NewStreamReader(link), mfreader.NewFirmware(chip))
	if err != nil {
		log.Fatalln(err)
	}

	runner := fx.NewRunner().HandleSignals()
	runner.Go(fx.NamedRun("device", dev))
	if card != nil && cardInterval > 0 {
		runner.Go(fx.NamedRun("card", toggleCard(chip, card)))
	}
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
