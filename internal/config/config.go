// Package config loads the reader configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/dht22-sensor/internal/dht22"
	"github.com/sweeney/dht22-sensor/internal/gpio"
	"github.com/sweeney/dht22-sensor/internal/lock"
	"github.com/sweeney/dht22-sensor/internal/mqtt"
	"github.com/sweeney/dht22-sensor/internal/session"
)

// Config represents the application configuration.
type Config struct {
	Pin       int    `yaml:"pin"`
	Tries     int    `yaml:"tries"`
	Numbering string `yaml:"numbering"` // wiringpi or bcm
	Backend   string `yaml:"backend"`   // chardev or periph
	Chip      string `yaml:"chip"`

	LockFile  string        `yaml:"lock_file"`
	LockRetry time.Duration `yaml:"lock_retry"`

	RetryDelay  time.Duration `yaml:"retry_delay"`
	SettleDelay time.Duration `yaml:"settle_delay"`

	Timing TimingConfig `yaml:"timing"`
	MQTT   MQTTConfig   `yaml:"mqtt"`

	LogLevel string `yaml:"log_level"`
}

// TimingConfig contains the protocol constants. Tick values are polling
// iterations, not microseconds. A zero value means "use the default"; in
// particular preamble: 0 is read as 4, since the first handshake edges are
// never data.
type TimingConfig struct {
	MaxTimings   int `yaml:"max_timings"`
	TimeoutTicks int `yaml:"timeout_ticks"`
	BitThreshold int `yaml:"bit_threshold"`
	Preamble     int `yaml:"preamble"`
	WakeMillis   int `yaml:"wake_ms"`
	TickMicros   int `yaml:"tick_us"`
}

// MQTTConfig contains the optional publisher settings. An empty broker
// disables publishing.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	t := dht22.DefaultTiming()
	return &Config{
		Pin:         gpio.DefaultPin,
		Tries:       session.DefaultTries,
		Numbering:   gpio.NumberingWiringPi,
		Backend:     gpio.BackendChardev,
		Chip:        "gpiochip0",
		LockFile:    lock.DefaultPath,
		LockRetry:   lock.DefaultRetry,
		RetryDelay:  session.DefaultRetryDelay,
		SettleDelay: session.DefaultSettleDelay,
		Timing: TimingConfig{
			MaxTimings:   t.MaxTimings,
			TimeoutTicks: int(t.TimeoutTicks),
			BitThreshold: int(t.BitThreshold),
			Preamble:     t.Preamble,
			WakeMillis:   t.WakeMillis,
			TickMicros:   t.TickMicros,
		},
		MQTT: MQTTConfig{
			Topic:    mqtt.DefaultTopic,
			ClientID: "dht22-sensor",
		},
		LogLevel: "info",
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// ensureDefaults fills string and timing fields left empty by the file.
// Tries is left alone so an explicit 0 is reported by Validate.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Numbering == "" {
		c.Numbering = def.Numbering
	}
	if c.Backend == "" {
		c.Backend = def.Backend
	}
	if c.Chip == "" {
		c.Chip = def.Chip
	}
	if c.LockFile == "" {
		c.LockFile = def.LockFile
	}
	if c.LockRetry == 0 {
		c.LockRetry = def.LockRetry
	}

	if c.Timing.MaxTimings == 0 {
		c.Timing.MaxTimings = def.Timing.MaxTimings
	}
	if c.Timing.TimeoutTicks == 0 {
		c.Timing.TimeoutTicks = def.Timing.TimeoutTicks
	}
	if c.Timing.BitThreshold == 0 {
		c.Timing.BitThreshold = def.Timing.BitThreshold
	}
	if c.Timing.Preamble == 0 {
		c.Timing.Preamble = def.Timing.Preamble
	}
	if c.Timing.WakeMillis == 0 {
		c.Timing.WakeMillis = def.Timing.WakeMillis
	}
	if c.Timing.TickMicros == 0 {
		c.Timing.TickMicros = def.Timing.TickMicros
	}

	if c.MQTT.Topic == "" {
		c.MQTT.Topic = def.MQTT.Topic
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
}

// Validate checks values that would make a session meaningless.
func (c *Config) Validate() error {
	if err := c.Session().Validate(); err != nil {
		return err
	}
	if c.Timing.TimeoutTicks < 1 || c.Timing.TimeoutTicks > 255 {
		return fmt.Errorf("timing.timeout_ticks must be within 1..255, got %d", c.Timing.TimeoutTicks)
	}
	if c.Timing.BitThreshold < 0 || c.Timing.BitThreshold >= c.Timing.TimeoutTicks {
		return fmt.Errorf("timing.bit_threshold must be below timeout_ticks, got %d", c.Timing.BitThreshold)
	}
	if c.Timing.Preamble < 0 || c.Timing.Preamble%2 != 0 {
		return fmt.Errorf("timing.preamble must be a non-negative even number, got %d", c.Timing.Preamble)
	}
	if c.Timing.MaxTimings < c.Timing.Preamble+2*dht22.FrameBits-1 {
		return fmt.Errorf("timing.max_timings %d cannot hold %d data bits", c.Timing.MaxTimings, dht22.FrameBits)
	}
	if c.Timing.MaxTimings > dht22.MaxTransitions {
		return fmt.Errorf("timing.max_timings must be at most %d, got %d", dht22.MaxTransitions, c.Timing.MaxTimings)
	}
	if c.Timing.WakeMillis < dht22.MinWakeMillis {
		return fmt.Errorf("timing.wake_ms must be at least %d, got %d", dht22.MinWakeMillis, c.Timing.WakeMillis)
	}
	if c.Timing.TickMicros < 0 {
		return fmt.Errorf("timing.tick_us must not be negative, got %d", c.Timing.TickMicros)
	}
	if c.RetryDelay < 0 || c.SettleDelay < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	return nil
}

// DHT returns the protocol timing.
func (c *Config) DHT() dht22.Timing {
	return dht22.Timing{
		MaxTimings:   c.Timing.MaxTimings,
		TimeoutTicks: uint8(c.Timing.TimeoutTicks),
		BitThreshold: uint8(c.Timing.BitThreshold),
		Preamble:     c.Timing.Preamble,
		WakeMillis:   c.Timing.WakeMillis,
		TickMicros:   c.Timing.TickMicros,
	}
}

// Session returns the retry policy.
func (c *Config) Session() session.Config {
	return session.Config{
		Tries:       c.Tries,
		RetryDelay:  c.RetryDelay,
		SettleDelay: c.SettleDelay,
	}
}
