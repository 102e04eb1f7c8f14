package logic

// Threshold constants, all in raw 12-bit ADC counts. These mirror the
// board's resistor dividers and NTC network; do not retune them without
// re-measuring the hardware.
const (
	// Battery voltage thresholds.
	BatteryMin       = 2458 // below this the cell is deeply discharged
	BatteryPrecharge = 2867 // precharge/fast-charge boundary
	BatteryTarget    = 3440 // CV regulation point
	BatteryLow       = 2703 // minimum to run the system rail from battery

	// Charge current thresholds.
	CurrentPrecharge = 205  // precharge current limit, for the output stage
	CurrentFast      = 2048 // fast-charge current limit, for the output stage
	CurrentTaper     = 102  // below this in CV the charge is done

	// Battery temperature safe window (NTC counts).
	TempMin = 1024
	TempMax = 3072

	// Input voltage thresholds.
	InputVoltageMin  = 2458 // minimum usable input, for the output stage
	InputVoltageGood = 4096 // input qualifies as a power source at or above this

	// System load ceiling, for the output stage.
	SystemMax = 4095
)

// CurrentPrecharge, CurrentFast, InputVoltageMin and SystemMax are not
// consumed by the state machine itself; they are exported for the external
// current-limiting stage that shares this configuration.

// PWM duty targets per charging phase, out of 255.
const (
	PWMOff       = 0
	PWMPrecharge = 64  // ~25% duty
	PWMFast      = 204 // ~80% duty
)

// Derived transition points.
const (
	// ConstCurrent hands over to ConstVoltage slightly below target so the
	// CV loop takes control before the cell overshoots.
	cvEntryVoltage = BatteryTarget - 16
	// Complete drops back to Idle (and hence a recharge) only after the
	// cell has sagged well below target.
	rechargeVoltage = BatteryTarget - 164
)
