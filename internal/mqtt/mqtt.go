// Package mqtt publishes charger telemetry with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/charge-controller/internal/logic"
)

// Topic is the MQTT topic for charger transition events.
const Topic = "power/charger/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "power/charger/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a charger transition event, stamped with the tick's
	// wall-clock time. Returns error if publishing fails (should not
	// crash the process).
	Publish(event logic.Event, at time.Time) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event
// (e.g., startup, shutdown, reset, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "RESET", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGHUP" (shutdown/reset only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload is the MQTT message envelope for charger events.
type Payload struct {
	Charger ChargerPayload `json:"charger"`
}

// ChargerPayload contains the transition details. Analog values are raw
// 12-bit ADC counts; consumers apply the board's scaling.
type ChargerPayload struct {
	Timestamp  string `json:"timestamp"`
	Event      string `json:"event"`
	Tick       uint64 `json:"tick"`
	State      string `json:"state"`
	PrevState  string `json:"prev_state"`
	Source     string `json:"source"`
	PrevSource string `json:"prev_source"`
	PWM        uint8  `json:"pwm"`
	BatteryRaw uint16 `json:"battery_raw"`
}

// FormatPayload creates the JSON payload for a charger event.
func FormatPayload(event logic.Event, at time.Time) ([]byte, error) {
	payload := Payload{
		Charger: ChargerPayload{
			Timestamp:  at.UTC().Format(time.RFC3339),
			Event:      string(event.Type),
			Tick:       event.Tick,
			State:      event.ToState.String(),
			PrevState:  event.FromState.String(),
			Source:     event.ToSource.String(),
			PrevSource: event.FromSource.String(),
			PWM:        event.PWM,
			BatteryRaw: event.Battery,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload is the MQTT message envelope for system events that don't
// carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full
// status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
