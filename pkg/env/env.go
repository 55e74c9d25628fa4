// Package env provides the common configuration of commands: the link to
// the reader, the MQTT broker and the node ID.
package env

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/robotalks/mfreader.go/pkg/device"
)

// Config is the common configuration.
type Config struct {
	// Link specifies the link to the reader:
	//   /dev/ttyUSB0 or serial:///dev/ttyUSB0?baud=115200
	//   tcp://host:port
	//   listen://:port (accepts one connection)
	Link string
	// Baud is the default baud rate of serial ports.
	Baud int
	// MQTTURL specifies the broker, e.g. mqtt://host:port/topic-prefix
	MQTTURL string
	// Node is the node ID on MQTT, the machine ID if empty.
	Node string
	// File is an optional TOML file loaded by Load.
	File string

	Device *device.Config
}

var defaultConfig = Config{
	Link:    "/dev/ttyUSB0",
	Baud:    9600,
	MQTTURL: "mqtt://localhost:1883/gep/",
	Device:  device.Default(),
}

func init() {
	if val := os.Getenv("MFREADER_PORT"); val != "" {
		defaultConfig.Link = val
	}
	if val := os.Getenv("MFREADER_BAUD"); val != "" {
		if baud, err := strconv.Atoi(val); err == nil {
			defaultConfig.Baud = baud
		}
	}
	if val := os.Getenv("MFREADER_MQTT_URL"); val != "" {
		defaultConfig.MQTTURL = val
	}
	if val := os.Getenv("MFREADER_ID"); val != "" {
		defaultConfig.Node = val
	}
	if val := os.Getenv("MFREADER_CONFIG"); val != "" {
		defaultConfig.File = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Link, "link", defaultConfig.Link, "Link to the reader: serial port, tcp://host:port or listen://:port.")
	flag.IntVar(&defaultConfig.Baud, "baud", defaultConfig.Baud, "Baud rate of serial port.")
	flag.StringVar(&defaultConfig.MQTTURL, "mqtt", defaultConfig.MQTTURL, "MQTT broker URL.")
	flag.StringVar(&defaultConfig.Node, "node", defaultConfig.Node, "Node ID, default is machine ID.")
	flag.StringVar(&defaultConfig.File, "config", defaultConfig.File, "Configuration file (TOML).")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	dev := *defaultConfig.Device
	conf.Device = &dev
	return &conf
}

// NodeID returns Node, or the machine ID if not specified.
func (c *Config) NodeID() string {
	if c.Node != "" {
		return c.Node
	}
	return MachineID()
}

type fileConfig struct {
	Link              string `toml:"link"`
	Baud              int    `toml:"baud"`
	MQTTURL           string `toml:"mqtt_url"`
	Node              string `toml:"node"`
	Identity          uint   `toml:"identity"`
	MaxMessageSize    int    `toml:"max_message_size"`
	CardCheckInterval string `toml:"card_check_interval"`
	IdleInterval      string `toml:"idle_interval"`
}

// Load loads File if specified. Values from flags set on command line
// are kept.
func (c *Config) Load() error {
	if c.File == "" {
		return nil
	}
	explicit := make(map[string]bool)
	if flag.Parsed() {
		flag.Visit(func(f *flag.Flag) {
			explicit[f.Name] = true
		})
	}
	return c.LoadFile(c.File, explicit)
}

// LoadFile overlays values defined in a TOML file, skipping keys whose
// flags are in explicit.
func (c *Config) LoadFile(path string, explicit map[string]bool) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config %s: %v", path, err)
	}
	defined := func(key, flagName string) bool {
		return meta.IsDefined(key) && !explicit[flagName]
	}
	if defined("link", "link") {
		c.Link = strings.TrimSpace(raw.Link)
	}
	if defined("baud", "baud") {
		c.Baud = raw.Baud
	}
	if defined("mqtt_url", "mqtt") {
		c.MQTTURL = strings.TrimSpace(raw.MQTTURL)
	}
	if defined("node", "node") {
		c.Node = strings.TrimSpace(raw.Node)
	}
	if c.Device == nil {
		c.Device = device.NewConfig()
	}
	if defined("identity", "identity") {
		c.Device.Identity = raw.Identity
	}
	if defined("max_message_size", "max-msg-size") {
		c.Device.MaxMessageSize = raw.MaxMessageSize
	}
	if defined("card_check_interval", "card-check-interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.CardCheckInterval))
		if err != nil {
			return fmt.Errorf("parse card_check_interval: %v", err)
		}
		c.Device.CardCheckInterval = d
	}
	if defined("idle_interval", "idle-interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.IdleInterval))
		if err != nil {
			return fmt.Errorf("parse idle_interval: %v", err)
		}
		c.Device.IdleInterval = d
	}
	if err := c.Device.Validate(); err != nil {
		return fmt.Errorf("load config %s: %v", path, err)
	}
	return nil
}
