// Package config loads phonebt's configuration through an ordered
// chain of options, matching how the teacher's gateway built its
// Config: defaults, then environment, then explicit flags, each
// layer free to override the one before it.
package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Config holds phonebt's runtime configuration.
type Config struct {
	// LogLevel sets the structured logger's level ("debug", "info",
	// "warn", "error").
	LogLevel string
	// ConnectTimeout bounds how long Connect waits for the SLC to come
	// up before failing.
	ConnectTimeout time.Duration
	// BusSubscriberDepth is the per-subscriber buffered-channel depth
	// new bus.Bus instances are constructed with.
	BusSubscriberDepth int
	// BluetoothAdapter is the BlueZ adapter object path to use (e.g.
	// "/org/bluez/hci0").
	BluetoothAdapter string
	// DeviceAddress is the paired phone's Bluetooth address
	// (AA:BB:CC:DD:EE:FF) or its BlueZ Device1 object path.
	DeviceAddress string
	// AudioBackend selects the audio.Router implementation
	// ("pulseaudio" or "none").
	AudioBackend string
}

// Option is a function that modifies a Config.
type Option func(*Config) error

// Load creates a new Config by applying the given options in order.
func Load(opts ...Option) (*Config, error) {
	c := &Config{}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// WithDefaults applies phonebt's default configuration values.
func WithDefaults() Option {
	return func(c *Config) error {
		c.LogLevel = "info"
		c.ConnectTimeout = 15 * time.Second
		c.BusSubscriberDepth = 64
		c.BluetoothAdapter = "/org/bluez/hci0"
		c.AudioBackend = "pulseaudio"
		return nil
	}
}

// WithEnv overrides Config fields from environment variables.
func WithEnv() Option {
	return func(c *Config) error {
		if level := os.Getenv("PHONEBT_LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}
		if timeout := os.Getenv("PHONEBT_CONNECT_TIMEOUT"); timeout != "" {
			if d, err := time.ParseDuration(timeout); err == nil {
				c.ConnectTimeout = d
			}
		}
		if depth := os.Getenv("PHONEBT_BUS_DEPTH"); depth != "" {
			if n, err := strconv.Atoi(depth); err == nil {
				c.BusSubscriberDepth = n
			}
		}
		if adapter := os.Getenv("PHONEBT_ADAPTER"); adapter != "" {
			c.BluetoothAdapter = adapter
		}
		if addr := os.Getenv("PHONEBT_DEVICE"); addr != "" {
			c.DeviceAddress = addr
		}
		if backend := os.Getenv("PHONEBT_AUDIO_BACKEND"); backend != "" {
			c.AudioBackend = backend
		}
		return nil
	}
}

// WithFlags overrides Config fields that were explicitly set on fSet.
func WithFlags(fSet *flag.FlagSet) Option {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "log-level":
				c.LogLevel = f.Value.String()
			case "connect-timeout":
				if d, err := time.ParseDuration(f.Value.String()); err == nil {
					c.ConnectTimeout = d
				}
			case "bus-depth":
				if n, err := strconv.Atoi(f.Value.String()); err == nil {
					c.BusSubscriberDepth = n
				}
			case "adapter":
				c.BluetoothAdapter = f.Value.String()
			case "device":
				c.DeviceAddress = f.Value.String()
			case "audio-backend":
				c.AudioBackend = f.Value.String()
			}
		})
		return nil
	}
}
