package device

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robotalks/mfreader.go/pkg/gep"
)

// Config defines the parameters of a Device.
type Config struct {
	// Identity is the GEP destination ID the device answers to,
	// 0 accepts all messages.
	Identity uint
	// MaxMessageSize is the largest payload the device receives.
	MaxMessageSize int
	// CardCheckInterval is the period of card checks.
	CardCheckInterval time.Duration
	// IdleInterval is the pause between two passes in Run.
	IdleInterval time.Duration
}

var defaultConfig = Config{
	MaxMessageSize:    gep.DefaultMaxMessageSize,
	CardCheckInterval: 250 * time.Millisecond,
	IdleInterval:      time.Millisecond,
}

func init() {
	if val := os.Getenv("MFREADER_IDENTITY"); val != "" {
		if id, err := strconv.ParseUint(val, 0, 8); err == nil {
			defaultConfig.Identity = uint(id)
		}
	}
	if val := os.Getenv("MFREADER_CARD_CHECK_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			defaultConfig.CardCheckInterval = d
		}
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.UintVar(&defaultConfig.Identity, "identity", defaultConfig.Identity, "GEP identity of the device (0-15).")
	flag.IntVar(&defaultConfig.MaxMessageSize, "max-msg-size", defaultConfig.MaxMessageSize, "Max size of received messages.")
	flag.DurationVar(&defaultConfig.CardCheckInterval, "card-check-interval", defaultConfig.CardCheckInterval, "Interval of card checks.")
	flag.DurationVar(&defaultConfig.IdleInterval, "idle-interval", defaultConfig.IdleInterval, "Idle time between loop passes.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Validate checks the config.
func (c *Config) Validate() error {
	if c.Identity > uint(gep.MaxDestination) {
		return fmt.Errorf("invalid identity %d", c.Identity)
	}
	if c.MaxMessageSize <= 0 {
		return fmt.Errorf("invalid max message size %d", c.MaxMessageSize)
	}
	if c.CardCheckInterval <= 0 {
		return fmt.Errorf("invalid card check interval %v", c.CardCheckInterval)
	}
	return nil
}

// NewDevice creates a Device using current config.
func (c *Config) NewDevice(stream gep.Stream, app interface{}) (*Device, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	d := New(byte(c.Identity), c.MaxMessageSize, app)
	d.CardCheckInterval = c.CardCheckInterval
	d.IdleInterval = c.IdleInterval
	d.Messenger.SetStream(stream)
	return d, nil
}
