//go:build linux

package gpio

import (
	"fmt"

	"github.com/sweeney/charge-controller/internal/logic"
	"github.com/warthog618/go-gpiocdev"
)

// RealPins drives actual hardware using the Linux GPIO character device.
type RealPins struct {
	chip    *gpiocdev.Chip
	usbDet  *gpiocdev.Line
	jackDet *gpiocdev.Line

	outLines [outputLineCount]*gpiocdev.Line
	last     [outputLineCount]int
	written  bool
}

// NewRealPins requests all lines described by cfg on gpiochip0. Detect
// inputs get pull-downs so a floating connector reads as absent.
func NewRealPins(cfg PinConfig) (*RealPins, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	r := &RealPins{chip: chip}

	r.usbDet, err = chip.RequestLine(cfg.USBDetect, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("request usb detect pin %d: %w", cfg.USBDetect, err)
	}
	r.jackDet, err = chip.RequestLine(cfg.JackDetect, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("request jack detect pin %d: %w", cfg.JackDetect, err)
	}

	outPins := [outputLineCount]int{
		cfg.SysEnable, cfg.ChargeEnable, cfg.ChargingLED, cfg.FaultLED,
		cfg.LED[0], cfg.LED[1], cfg.LED[2], cfg.LED[3],
		cfg.Select[0], cfg.Select[1],
	}
	for i, pin := range outPins {
		line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request output pin %d: %w", pin, err)
		}
		r.outLines[i] = line
	}

	return r, nil
}

// ReadDetect returns the raw presence signals. Active high: the board's
// detect comparators drive the pin when a plug is inserted.
func (r *RealPins) ReadDetect() (bool, bool, error) {
	usbRaw, err := r.usbDet.Value()
	if err != nil {
		return false, false, fmt.Errorf("read usb detect: %w", err)
	}
	jackRaw, err := r.jackDet.Value()
	if err != nil {
		return false, false, fmt.Errorf("read jack detect: %w", err)
	}
	return usbRaw != 0, jackRaw != 0, nil
}

// Write mirrors the outputs, touching only lines whose value changed.
func (r *RealPins) Write(out logic.Outputs) error {
	vals := outputValues(out)
	for i, v := range vals {
		if r.written && r.last[i] == v {
			continue
		}
		if err := r.outLines[i].SetValue(v); err != nil {
			return fmt.Errorf("set output line %d: %w", i, err)
		}
		r.last[i] = v
	}
	r.written = true
	return nil
}

// Close drives every output low, then releases all lines. Leaving the
// rail-enable line in its last state across a daemon restart would hand
// control of the rail to a dead process.
func (r *RealPins) Close() error {
	var errs []error

	for _, line := range r.outLines {
		if line == nil {
			continue
		}
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear output: %w", err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close output: %w", err))
		}
	}
	if r.usbDet != nil {
		if err := r.usbDet.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close usb detect: %w", err))
		}
	}
	if r.jackDet != nil {
		if err := r.jackDet.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close jack detect: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
