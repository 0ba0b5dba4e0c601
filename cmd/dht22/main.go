// Command dht22 reads humidity and temperature from a DHT22/AM2302 sensor.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sweeney/dht22-sensor/internal/config"
	"github.com/sweeney/dht22-sensor/internal/dht22"
	"github.com/sweeney/dht22-sensor/internal/gpio"
	"github.com/sweeney/dht22-sensor/internal/lock"
	"github.com/sweeney/dht22-sensor/internal/mqtt"
	"github.com/sweeney/dht22-sensor/internal/privilege"
	"github.com/sweeney/dht22-sensor/internal/session"
)

// Exit codes.
const (
	exitFatal     = 1
	exitExhausted = 2
)

const usageText = `usage: %s [flags] <pin> [<tries>]
  pin    GPIO pin, wiringPi numbering unless -numbering=bcm (default 7, BCM GPIO 4)
  tries  attempts before giving up (default 100)
`

// options holds command-line overrides. Empty values keep the config file value.
type options struct {
	configPath string
	backend    string
	numbering  string
	lockFile   string
	broker     string
	verbose    bool
	args       []string
}

// deps are the side-effecting collaborators of run, replaced in tests.
type deps struct {
	openLine       func(backend, chip string, pin int) (gpio.Line, error)
	dropPrivileges func() error
	newPublisher   func(cfg config.MQTTConfig) (mqtt.Publisher, error)
	sleeper        session.Sleeper
	now            func() time.Time
}

func realDeps() deps {
	return deps{
		openLine:       gpio.Open,
		dropPrivileges: privilege.Drop,
		newPublisher: func(cfg config.MQTTConfig) (mqtt.Publisher, error) {
			return mqtt.NewRealPublisher(cfg.Broker, cfg.ClientID, cfg.Topic)
		},
		sleeper: session.TimeSleeper{},
		now:     time.Now,
	}
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "/etc/dht22.yaml", "YAML config file (defaults are used if missing)")
	flag.StringVar(&opts.backend, "backend", "", "GPIO backend: chardev or periph")
	flag.StringVar(&opts.numbering, "numbering", "", "Pin numbering: wiringpi or bcm")
	flag.StringVar(&opts.lockFile, "lock", "", "Lock file guarding the GPIO line")
	flag.StringVar(&opts.broker, "broker", "", "MQTT broker to publish the reading to (empty to disable)")
	flag.BoolVar(&opts.verbose, "v", false, "Debug logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usageText, os.Args[0])
		flag.PrintDefaults()
	}

	flag.Parse()
	opts.args = flag.Args()

	logger := newLogger(os.Stderr, opts.verbose)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, opts, os.Stdout, logger, realDeps())
	stop()

	if err != nil {
		if errors.Is(err, session.ErrExhausted) {
			logger.Errorf("no reading: %v", err)
			os.Exit(exitExhausted)
		}
		logger.Errorf("fatal: %v", err)
		os.Exit(exitFatal)
	}
}

func run(ctx context.Context, opts options, stdout io.Writer, logger *logrus.Logger, d deps) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(cfg, opts)

	if len(opts.args) == 0 {
		fmt.Fprintf(stdout, usageText, "dht22")
	}
	if err := applyArgs(cfg, opts.args); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if !opts.verbose {
		setLevel(logger, cfg.LogLevel)
	}

	bcm, err := gpio.ResolvePin(cfg.Numbering, cfg.Pin)
	if err != nil {
		return err
	}
	log := logger.WithFields(logrus.Fields{"pin": cfg.Pin, "bcm": bcm})

	guard, err := lock.Acquire(ctx, cfg.LockFile, cfg.LockRetry)
	if err != nil {
		return fmt.Errorf("acquire line: %w", err)
	}
	defer func() {
		if err := guard.Release(); err != nil {
			log.Errorf("release lock: %v", err)
		}
	}()

	line, err := d.openLine(cfg.Backend, cfg.Chip, bcm)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer line.Close()

	if err := d.dropPrivileges(); err != nil {
		return fmt.Errorf("dropping privileges failed: %w", err)
	}

	log.Debugf("started: backend=%s tries=%d lock=%s", cfg.Backend, cfg.Tries, guard.Path())

	reader := dht22.NewReader(line, cfg.DHT(), log)
	ctrl := session.NewController(cfg.Session(), reader, d.sleeper, log)
	rep, err := ctrl.Run(ctx)
	if err != nil {
		return err
	}

	printReading(stdout, *rep.Reading)

	if cfg.MQTT.Broker != "" {
		publish(d, cfg, rep, log)
	}
	return nil
}

// setLevel applies the configured level. Failed attempts are logged at warn
// and must always reach stderr, so quieter levels are raised to warn.
func setLevel(logger *logrus.Logger, name string) {
	lvl, err := logrus.ParseLevel(name)
	if err != nil {
		logger.Warnf("unknown log level %q, keeping %s", name, logger.GetLevel())
		return
	}
	if lvl < logrus.WarnLevel {
		lvl = logrus.WarnLevel
	}
	logger.SetLevel(lvl)
}

// applyFlags overrides config values with non-empty flags.
func applyFlags(cfg *config.Config, opts options) {
	if opts.backend != "" {
		cfg.Backend = opts.backend
	}
	if opts.numbering != "" {
		cfg.Numbering = opts.numbering
	}
	if opts.lockFile != "" {
		cfg.LockFile = opts.lockFile
	}
	if opts.broker != "" {
		cfg.MQTT.Broker = opts.broker
	}
	if opts.verbose {
		cfg.LogLevel = logrus.DebugLevel.String()
	}
}

// applyArgs reads the positional <pin> [<tries>] arguments.
func applyArgs(cfg *config.Config, args []string) error {
	if len(args) > 2 {
		return fmt.Errorf("too many arguments: %q", args[2:])
	}
	if len(args) >= 1 {
		pin, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid pin %q", args[0])
		}
		cfg.Pin = pin
	}
	if len(args) == 2 {
		tries, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%w: %q", session.ErrInvalidTries, args[1])
		}
		cfg.Tries = tries
	}
	return nil
}

func printReading(w io.Writer, r dht22.Reading) {
	fmt.Fprintf(w, "Humidity = %.2f %%\nTemperature = %.2f °C\n", r.Humidity, r.Temperature)
}

// publish sends the reading to MQTT. Failures are logged only: the reading
// has already been printed and the exit status reflects the sensor alone.
func publish(d deps, cfg *config.Config, rep session.Report, log logrus.FieldLogger) {
	pub, err := d.newPublisher(cfg.MQTT)
	if err != nil {
		log.Warnf("mqtt: %v", err)
		return
	}
	defer pub.Close()

	event := mqtt.ReadingEvent{
		Timestamp: d.now(),
		Pin:       cfg.Pin,
		Reading:   *rep.Reading,
		Attempts:  rep.Attempts,
	}
	if err := pub.Publish(event); err != nil {
		log.Warnf("mqtt publish: %v", err)
		return
	}
	log.Debugf("published reading to %s", cfg.MQTT.Topic)
}
