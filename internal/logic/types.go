// Package logic contains the pure charge-control core: power-source
// arbitration, safety monitoring, the charge state machine, PWM ramping,
// and output composition. This package has NO external dependencies
// (no GPIO, ADC, MQTT, OS, or wall-clock time). One call to Tick is one
// control cycle; everything else is an adapter around it.
package logic

// InputSource identifies which power input feeds the system rail.
type InputSource uint8

const (
	SourceNone InputSource = iota
	SourceUSB
	SourceJack
)

// String returns the source name used in telemetry and status output.
func (s InputSource) String() string {
	switch s {
	case SourceUSB:
		return "MICRO_USB"
	case SourceJack:
		return "JACK"
	default:
		return "NONE"
	}
}

// ChargeState is the charge state machine's state.
type ChargeState uint8

const (
	Idle ChargeState = iota
	Precharge
	ConstCurrent
	ConstVoltage
	Complete
	Fault
)

// String returns the state name used in telemetry and status output.
func (s ChargeState) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Precharge:
		return "PRECHARGE"
	case ConstCurrent:
		return "CONST_CURRENT"
	case ConstVoltage:
		return "CONST_VOLTAGE"
	case Complete:
		return "COMPLETE"
	case Fault:
		return "FAULT"
	default:
		return "UNKNOWN"
	}
}

// Sample is one tick's worth of raw inputs. Analog fields are unsigned
// 12-bit ADC counts in [0, 4095], treated as opaque units (no physical
// conversion happens in this package). The fields are uint16 so that
// full-scale-plus references like InputVoltageGood (4096) stay comparable.
type Sample struct {
	USBDetected    bool
	JackDetected   bool
	USBVoltage     uint16
	JackVoltage    uint16
	BatteryVoltage uint16
	BatteryCurrent uint16
	BatteryTemp    uint16
	SystemCurrent  uint16
}

// State is the controller's registered state: everything that persists
// from one tick to the next. It is staged fresh each tick and committed
// as a whole, never field-by-field.
type State struct {
	ActiveInput InputSource
	Charge      ChargeState
	// StateTimer counts ticks spent in the current charging state
	// (Precharge/ConstCurrent/ConstVoltage). It is zero in Idle, Complete
	// and Fault, and resets on every state change. Wraps at 24 bits.
	StateTimer uint32
	ChargePWM  uint8
}

// Outputs are the tick-visible output signals, derived from the state
// committed at the end of the same tick.
type Outputs struct {
	SysOutEnable      bool
	InputSelect       InputSource
	ChargeEnable      bool
	ChargePWM         uint8
	Charge            ChargeState
	PowerGood         bool
	BatteryGood       bool
	ChargingIndicator bool
	LEDStatus         uint8 // low 4 bits
	Fault             bool
}

// EventType classifies a controller event.
type EventType string

const (
	EventStateChange  EventType = "STATE_CHANGE"
	EventSourceChange EventType = "SOURCE_CHANGE"
)

// Event records a transition observed at a tick commit. Timestamps are
// attached by the caller when the event is published; the core stays
// free of wall-clock time.
type Event struct {
	Tick       uint64
	Type       EventType
	FromState  ChargeState
	ToState    ChargeState
	FromSource InputSource
	ToSource   InputSource
	PWM        uint8
	Battery    uint16 // battery voltage ADC count at the transition
}

// Counts tracks state entries and source changes since startup.
type Counts struct {
	Precharges    int
	FastCharges   int
	Completions   int
	Faults        int
	SourceChanges int
}
