package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/dht22-sensor/internal/config"
	"github.com/sweeney/dht22-sensor/internal/dht22"
	"github.com/sweeney/dht22-sensor/internal/gpio"
	"github.com/sweeney/dht22-sensor/internal/lock"
	"github.com/sweeney/dht22-sensor/internal/mqtt"
	"github.com/sweeney/dht22-sensor/internal/session"
)

// harness wires run to simulated hardware.
type harness struct {
	line      *gpio.SimLine
	sleeper   *session.FakeSleeper
	publisher *mqtt.FakePublisher

	openedPin    int
	openCalls    int
	dropCalls    int
	dropErr      error
	publisherErr error
	opts         options
	stdout       bytes.Buffer
	logger       *logrus.Logger
	hook         *test.Hook
}

func newHarness(t *testing.T, waveforms ...[]gpio.Segment) *harness {
	t.Helper()
	dir := t.TempDir()
	logger, hook := test.NewNullLogger()
	return &harness{
		line:      gpio.NewSimLine(waveforms...),
		sleeper:   &session.FakeSleeper{},
		publisher: mqtt.NewFakePublisher(),
		opts: options{
			configPath: filepath.Join(dir, "missing.yaml"),
			lockFile:   filepath.Join(dir, "dht22.lock"),
		},
		logger: logger,
		hook:   hook,
	}
}

func (h *harness) deps() deps {
	return deps{
		openLine: func(backend, chip string, pin int) (gpio.Line, error) {
			h.openCalls++
			h.openedPin = pin
			return h.line, nil
		},
		dropPrivileges: func() error {
			h.dropCalls++
			return h.dropErr
		},
		newPublisher: func(cfg config.MQTTConfig) (mqtt.Publisher, error) {
			if h.publisherErr != nil {
				return nil, h.publisherErr
			}
			return h.publisher, nil
		},
		sleeper: h.sleeper,
		now: func() time.Time {
			return time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC)
		},
	}
}

func (h *harness) run(args ...string) error {
	h.opts.args = args
	return run(context.Background(), h.opts, &h.stdout, h.logger, h.deps())
}

func goodWave() []gpio.Segment {
	// 40.0 %RH, 30.0 °C
	return dht22.Waveform(dht22.NewFrame(0x01, 0x90, 0x01, 0x2C), dht22.DefaultWaveTiming())
}

func corruptWave() []gpio.Segment {
	return dht22.Waveform(dht22.Frame{0x01, 0x90, 0x01, 0x2C, 0x00}, dht22.DefaultWaveTiming())
}

func TestApplyArgs(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantPin   int
		wantTries int
		wantErr   bool
	}{
		{"none", nil, gpio.DefaultPin, session.DefaultTries, false},
		{"pin", []string{"0"}, 0, session.DefaultTries, false},
		{"pin and tries", []string{"7", "5"}, 7, 5, false},
		{"zero tries parses", []string{"7", "0"}, 7, 0, false},
		{"bad pin", []string{"seven"}, 0, 0, true},
		{"bad tries", []string{"7", "x"}, 0, 0, true},
		{"too many", []string{"7", "5", "1"}, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			err := applyArgs(cfg, tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPin, cfg.Pin)
			assert.Equal(t, tt.wantTries, cfg.Tries)
		})
	}
}

func TestApplyArgsBadTriesIsInvalidTries(t *testing.T) {
	err := applyArgs(config.Default(), []string{"7", "many"})
	assert.ErrorIs(t, err, session.ErrInvalidTries)
}

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	applyFlags(cfg, options{backend: "periph", numbering: "bcm", lockFile: "/tmp/x.lock", broker: "tcp://b:1883", verbose: true})

	assert.Equal(t, "periph", cfg.Backend)
	assert.Equal(t, "bcm", cfg.Numbering)
	assert.Equal(t, "/tmp/x.lock", cfg.LockFile)
	assert.Equal(t, "tcp://b:1883", cfg.MQTT.Broker)
	assert.Equal(t, "debug", cfg.LogLevel)

	cfg = config.Default()
	applyFlags(cfg, options{})
	assert.Equal(t, config.Default(), cfg)
}

func TestRunSuccess(t *testing.T) {
	h := newHarness(t, goodWave())

	err := h.run("7", "3")
	require.NoError(t, err)

	assert.Equal(t, "Humidity = 40.00 %\nTemperature = 30.00 °C\n", h.stdout.String())
	assert.Equal(t, 4, h.openedPin, "wiringPi 7 is BCM 4")
	assert.Equal(t, 1, h.dropCalls)
	assert.True(t, h.line.Closed)
	assert.Equal(t, []time.Duration{session.DefaultSettleDelay}, h.sleeper.Waits)
	assert.Empty(t, h.publisher.Events, "no broker configured")
}

func TestRunBCMNumbering(t *testing.T) {
	h := newHarness(t, goodWave())
	h.opts.numbering = gpio.NumberingBCM

	require.NoError(t, h.run("17", "1"))
	assert.Equal(t, 17, h.openedPin)
}

func TestRunRetriesThenSucceeds(t *testing.T) {
	h := newHarness(t, corruptWave(), goodWave())

	require.NoError(t, h.run("7", "5"))

	assert.Contains(t, h.stdout.String(), "Humidity = 40.00 %")
	assert.Equal(t, []time.Duration{session.DefaultRetryDelay, session.DefaultSettleDelay}, h.sleeper.Waits)

	var skips int
	for _, e := range h.hook.AllEntries() {
		if e.Message == "Data not good, skip" {
			skips++
		}
	}
	assert.Equal(t, 1, skips)
}

func TestRunExhausted(t *testing.T) {
	h := newHarness(t, corruptWave())

	err := h.run("7", "3")
	assert.ErrorIs(t, err, session.ErrExhausted)
	assert.Empty(t, h.stdout.String())
	assert.Len(t, h.sleeper.Waits, 3, "two retry waits and the settle")
	assert.True(t, h.line.Closed)
}

func TestRunInvalidTriesNeverTouchesLine(t *testing.T) {
	for _, tries := range []string{"0", "-1", "abc"} {
		t.Run(tries, func(t *testing.T) {
			h := newHarness(t, goodWave())

			err := h.run("7", tries)
			assert.ErrorIs(t, err, session.ErrInvalidTries)
			assert.Zero(t, h.openCalls)
			assert.Zero(t, h.line.Reads)
			assert.Empty(t, h.sleeper.Waits)
		})
	}
}

func TestRunInvalidPin(t *testing.T) {
	h := newHarness(t, goodWave())

	assert.Error(t, h.run("gpio4"))
	assert.Zero(t, h.openCalls)
}

func TestRunUnmappedWiringPiPin(t *testing.T) {
	h := newHarness(t, goodWave())

	assert.Error(t, h.run("99"))
	assert.Zero(t, h.openCalls)
}

func TestRunInvalidLevelIsFatalAndReleasesLock(t *testing.T) {
	h := newHarness(t, []gpio.Segment{{Raw: 1, Ticks: 10}, {Raw: 7, Ticks: 10}})

	err := h.run("7", "5")
	require.Error(t, err)
	assert.ErrorIs(t, err, gpio.ErrInvalidLevel)
	assert.NotErrorIs(t, err, session.ErrExhausted)
	assert.Empty(t, h.sleeper.Waits, "fatal errors skip retry and settle")
	assert.True(t, h.line.Closed)

	g, err := lock.TryAcquire(h.opts.lockFile)
	require.NoError(t, err)
	require.NotNil(t, g, "lock must be released")
	require.NoError(t, g.Release())
}

func TestRunReleasesLockOnSuccess(t *testing.T) {
	h := newHarness(t, goodWave())
	require.NoError(t, h.run("7", "1"))

	g, err := lock.TryAcquire(h.opts.lockFile)
	require.NoError(t, err)
	require.NotNil(t, g)
	require.NoError(t, g.Release())
}

func TestRunLockHeldElsewhere(t *testing.T) {
	h := newHarness(t, goodWave())

	held, err := lock.TryAcquire(h.opts.lockFile)
	require.NoError(t, err)
	require.NotNil(t, held)
	defer held.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	h.opts.args = []string{"7", "1"}
	err = run(ctx, h.opts, &h.stdout, h.logger, h.deps())
	assert.Error(t, err)
	assert.Zero(t, h.openCalls)
}

func TestRunPrivilegeDropFailure(t *testing.T) {
	h := newHarness(t, goodWave())
	h.dropErr = errors.New("setuid: operation not permitted")

	err := h.run("7", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dropping privileges failed")
	assert.Zero(t, h.line.Reads)
	assert.True(t, h.line.Closed)
}

func TestRunOpenFailure(t *testing.T) {
	h := newHarness(t)
	d := h.deps()
	d.openLine = func(string, string, int) (gpio.Line, error) {
		return nil, errors.New("no such chip")
	}
	h.opts.args = []string{"7", "1"}

	err := run(context.Background(), h.opts, &h.stdout, h.logger, d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init gpio")
	assert.Zero(t, h.dropCalls)
}

func TestRunPublishes(t *testing.T) {
	h := newHarness(t, corruptWave(), goodWave())
	h.opts.broker = "tcp://localhost:1883"

	require.NoError(t, h.run("7", "3"))

	require.Len(t, h.publisher.Events, 1)
	ev := h.publisher.Events[0]
	assert.Equal(t, 7, ev.Pin)
	assert.Equal(t, 2, ev.Attempts)
	assert.InDelta(t, 40.0, ev.Reading.Humidity, 1e-9)
	assert.InDelta(t, 30.0, ev.Reading.Temperature, 1e-9)
	assert.True(t, h.publisher.Closed)
	assert.Equal(t,
		`{"dht22":{"timestamp":"2026-02-02T22:18:12Z","pin":7,"humidity":40,"temperature":30,"attempts":2}}`,
		string(h.publisher.Payloads[0]))
}

func TestRunPublishFailureDoesNotFail(t *testing.T) {
	h := newHarness(t, goodWave())
	h.opts.broker = "tcp://localhost:1883"
	h.publisher.PublishError = errors.New("broker gone")

	require.NoError(t, h.run("7", "1"))
	assert.Contains(t, h.stdout.String(), "Humidity = 40.00 %")

	last := h.hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, logrus.WarnLevel, last.Level)
}

func TestRunPublisherConnectFailureDoesNotFail(t *testing.T) {
	h := newHarness(t, goodWave())
	h.opts.broker = "tcp://localhost:1883"
	h.publisherErr = errors.New("connection refused")

	require.NoError(t, h.run("7", "1"))
	assert.Empty(t, h.publisher.Events)
}

func TestRunNoArgsPrintsUsageAndReadsDefaultPin(t *testing.T) {
	h := newHarness(t, goodWave())

	require.NoError(t, h.run())

	out := h.stdout.String()
	assert.True(t, strings.HasPrefix(out, "usage: dht22 [flags] <pin> [<tries>]"), out)
	assert.Contains(t, out, "Humidity = 40.00 %")
	assert.Equal(t, 4, h.openedPin)
}

func TestRunConfigFile(t *testing.T) {
	h := newHarness(t, corruptWave())
	h.opts.configPath = filepath.Join(t.TempDir(), "dht22.yaml")
	yaml := "tries: 2\nretry_delay: 10ms\nsettle_delay: 20ms\n"
	require.NoError(t, os.WriteFile(h.opts.configPath, []byte(yaml), 0o644))

	err := h.run("7")
	assert.ErrorIs(t, err, session.ErrExhausted)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, h.sleeper.Waits)
}

func TestRunBadConfigFile(t *testing.T) {
	h := newHarness(t, goodWave())
	h.opts.configPath = filepath.Join(t.TempDir(), "dht22.yaml")
	require.NoError(t, os.WriteFile(h.opts.configPath, []byte("tries: [\n"), 0o644))

	err := h.run("7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, false)
	logger.WithField("attempt", 3).Warn("Data not good, skip")
	logger.Debug("hidden")

	assert.Equal(t, "Data not good, skip\n", buf.String())

	buf.Reset()
	logger = newLogger(&buf, true)
	logger.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestSetLevel(t *testing.T) {
	tests := []struct {
		name string
		want logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.WarnLevel},
		{"panic", logrus.WarnLevel},
		{"bogus", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := test.NewNullLogger()
			setLevel(logger, tt.name)
			assert.Equal(t, tt.want, logger.GetLevel())
		})
	}
}

func TestRunQuietLogLevelKeepsSkipLines(t *testing.T) {
	h := newHarness(t, corruptWave())
	h.opts.configPath = filepath.Join(t.TempDir(), "dht22.yaml")
	require.NoError(t, os.WriteFile(h.opts.configPath, []byte("log_level: error\n"), 0o644))

	err := h.run("7", "3")
	assert.ErrorIs(t, err, session.ErrExhausted)

	var skips int
	for _, e := range h.hook.AllEntries() {
		if e.Message == "Data not good, skip" {
			skips++
		}
	}
	assert.Equal(t, 3, skips)
}
