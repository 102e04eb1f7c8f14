// Package gpio wires the controller to its board pins with hardware
// abstraction: two detect inputs (USB and jack presence) and the
// indicator/enable output lines. The real implementation uses the Linux
// GPIO character device. The fake implementation allows testing without
// hardware.
package gpio

import "github.com/sweeney/charge-controller/internal/logic"

// Pins reads the detect inputs and mirrors controller outputs.
type Pins interface {
	// ReadDetect returns the raw USB and jack presence signals.
	ReadDetect() (usb, jack bool, err error)

	// Write mirrors the tick's outputs onto the output lines. Lines
	// whose value did not change since the last call are not rewritten.
	Write(out logic.Outputs) error

	// Close releases GPIO resources.
	Close() error
}

// PinConfig holds BCM pin numbers for every line.
type PinConfig struct {
	USBDetect    int
	JackDetect   int
	SysEnable    int
	ChargeEnable int
	ChargingLED  int
	FaultLED     int
	LED          [4]int // status bus, LED[0] = bit 0
	Select       [2]int // input select, Select[0] = bit 0
}

// DefaultPinConfig returns the PMU carrier board's pin assignment.
func DefaultPinConfig() PinConfig {
	return PinConfig{
		USBDetect:    23,
		JackDetect:   24,
		SysEnable:    25,
		ChargeEnable: 12,
		ChargingLED:  13,
		FaultLED:     19,
		LED:          [4]int{5, 6, 16, 26},
		Select:       [2]int{20, 21},
	}
}

// outputLineCount is the number of output lines a Pins implementation drives.
const outputLineCount = 10

// outputValues flattens the tick outputs into line values, in the order
// sysEnable, chargeEnable, chargingLED, faultLED, LED0-3, Select0-1.
func outputValues(out logic.Outputs) [outputLineCount]int {
	var v [outputLineCount]int
	if out.SysOutEnable {
		v[0] = 1
	}
	if out.ChargeEnable {
		v[1] = 1
	}
	if out.ChargingIndicator {
		v[2] = 1
	}
	if out.Fault {
		v[3] = 1
	}
	for i := 0; i < 4; i++ {
		v[4+i] = int(out.LEDStatus>>i) & 1
	}
	for i := 0; i < 2; i++ {
		v[8+i] = int(uint8(out.InputSelect)>>i) & 1
	}
	return v
}
