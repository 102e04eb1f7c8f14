package status

import (
	"encoding/json"
	"fmt"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string        `json:"event,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	ChargeState   string        `json:"charge_state"`
	Source        string        `json:"source"`
	PWM           uint8         `json:"pwm"`
	SysOutEnable  bool          `json:"sys_out_enable"`
	ChargeEnable  bool          `json:"charge_enable"`
	Charging      bool          `json:"charging"`
	Fault         bool          `json:"fault"`
	PowerGood     bool          `json:"power_good"`
	BatteryGood   bool          `json:"battery_good"`
	LEDStatus     string        `json:"led_status"`
	Telemetry     TelemetryJSON `json:"telemetry"`
	Ticks         uint64        `json:"ticks"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	MQTT          MQTTStatus    `json:"mqtt"`
	Counts        CountsJSON    `json:"event_counts"`
	Config        ConfigJSON    `json:"config"`
}

// TelemetryJSON carries the last sample's raw ADC counts.
type TelemetryJSON struct {
	USBVoltage     uint16 `json:"usb_voltage"`
	JackVoltage    uint16 `json:"jack_voltage"`
	BatteryVoltage uint16 `json:"battery_voltage"`
	BatteryCurrent uint16 `json:"battery_current"`
	BatteryTemp    uint16 `json:"battery_temp"`
	SystemCurrent  uint16 `json:"system_current"`
	USBDetected    bool   `json:"usb_detected"`
	JackDetected   bool   `json:"jack_detected"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Precharges    int `json:"precharges"`
	FastCharges   int `json:"fast_charges"`
	Completions   int `json:"completions"`
	Faults        int `json:"faults"`
	SourceChanges int `json:"source_changes"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickMs      int64  `json:"tick_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	WSBroker    string `json:"ws_broker,omitempty"`
	ADCDevice   string `json:"adc_device"`
}

func buildInner(snap Snapshot) StatusInner {
	return StatusInner{
		ChargeState:   snap.Outputs.Charge.String(),
		Source:        snap.Outputs.InputSelect.String(),
		PWM:           snap.Outputs.ChargePWM,
		SysOutEnable:  snap.Outputs.SysOutEnable,
		ChargeEnable:  snap.Outputs.ChargeEnable,
		Charging:      snap.Outputs.ChargingIndicator,
		Fault:         snap.Outputs.Fault,
		PowerGood:     snap.Outputs.PowerGood,
		BatteryGood:   snap.Outputs.BatteryGood,
		LEDStatus:     fmt.Sprintf("%04b", snap.Outputs.LEDStatus),
		Telemetry: TelemetryJSON{
			USBVoltage:     snap.Sample.USBVoltage,
			JackVoltage:    snap.Sample.JackVoltage,
			BatteryVoltage: snap.Sample.BatteryVoltage,
			BatteryCurrent: snap.Sample.BatteryCurrent,
			BatteryTemp:    snap.Sample.BatteryTemp,
			SystemCurrent:  snap.Sample.SystemCurrent,
			USBDetected:    snap.Sample.USBDetected,
			JackDetected:   snap.Sample.JackDetected,
		},
		Ticks:         snap.Ticks,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Precharges:    snap.Counts.Precharges,
			FastCharges:   snap.Counts.FastCharges,
			Completions:   snap.Counts.Completions,
			Faults:        snap.Counts.Faults,
			SourceChanges: snap.Counts.SourceChanges,
		},
		Config: ConfigJSON{
			TickMs:      snap.Config.TickMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			WSBroker:    snap.Config.WSBroker,
			ADCDevice:   snap.Config.ADCDevice,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
