// Package mqtt provides MQTT publishing of readings with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"math"
	"time"

	"github.com/sweeney/dht22-sensor/internal/dht22"
)

// DefaultTopic is the MQTT topic for readings.
const DefaultTopic = "sensors/dht22/reading"

// Publisher publishes readings to MQTT.
type Publisher interface {
	// Publish sends a reading to the broker.
	// Returns error if publishing fails (should not change the exit status).
	Publish(event ReadingEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ReadingEvent is a validated reading with its acquisition context.
type ReadingEvent struct {
	Timestamp time.Time
	Pin       int
	Reading   dht22.Reading
	Attempts  int
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	DHT22 ReadingPayload `json:"dht22"`
}

// ReadingPayload contains the reading details.
type ReadingPayload struct {
	Timestamp   string  `json:"timestamp"`
	Pin         int     `json:"pin"`
	Humidity    float64 `json:"humidity"`
	Temperature float64 `json:"temperature"`
	Attempts    int     `json:"attempts"`
}

// FormatPayload creates the JSON payload for a reading.
// Values are rounded to the sensor's 0.1 resolution.
func FormatPayload(event ReadingEvent) ([]byte, error) {
	payload := Payload{
		DHT22: ReadingPayload{
			Timestamp:   event.Timestamp.UTC().Format(time.RFC3339),
			Pin:         event.Pin,
			Humidity:    round1(event.Reading.Humidity),
			Temperature: round1(event.Reading.Temperature),
			Attempts:    event.Attempts,
		},
	}
	return json.Marshal(payload)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
