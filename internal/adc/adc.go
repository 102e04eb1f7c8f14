// Package adc reads the controller's analog channels with hardware
// abstraction. The real implementation reads raw counts from a Linux IIO
// device via sysfs. The fake implementation allows testing without
// hardware.
package adc

// Channels holds one reading of every analog input, as raw 12-bit
// ADC counts.
type Channels struct {
	USBVoltage     uint16
	JackVoltage    uint16
	BatteryVoltage uint16
	BatteryCurrent uint16
	BatteryTemp    uint16
	SystemCurrent  uint16
}

// Reader reads all analog channels for one tick.
type Reader interface {
	// Read samples every channel once. A failed read leaves the caller
	// free to skip the tick; it must not return partial data.
	Read() (Channels, error)

	// Close releases ADC resources.
	Close() error
}

// Default IIO channel indices on the PMU board's ADC.
const (
	ChanUSBVoltage     = 0
	ChanJackVoltage    = 1
	ChanBatteryVoltage = 2
	ChanBatteryCurrent = 3
	ChanBatteryTemp    = 4
	ChanSystemCurrent  = 5
)
