package adc

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// IIOReader reads raw ADC counts from a Linux IIO device's sysfs files
// (in_voltageN_raw). Each Read opens and reads six small files; at tick
// rates in the tens of milliseconds this is well within budget.
type IIOReader struct {
	dir      string
	channels [6]int
}

// NewIIOReader creates a reader for the given IIO device directory, e.g.
// /sys/bus/iio/devices/iio:device0. The channel mapping defaults to
// ChanUSBVoltage..ChanSystemCurrent in order.
func NewIIOReader(dir string) (*IIOReader, error) {
	r := &IIOReader{
		dir: dir,
		channels: [6]int{
			ChanUSBVoltage, ChanJackVoltage, ChanBatteryVoltage,
			ChanBatteryCurrent, ChanBatteryTemp, ChanSystemCurrent,
		},
	}

	// Probe the first channel so a missing device fails at startup,
	// not on the first tick.
	if _, err := r.readChannel(r.channels[0]); err != nil {
		return nil, fmt.Errorf("probe adc device %s: %w", dir, err)
	}
	return r, nil
}

// Read samples all six channels.
func (r *IIOReader) Read() (Channels, error) {
	var raw [6]uint16
	for i, ch := range r.channels {
		v, err := r.readChannel(ch)
		if err != nil {
			return Channels{}, fmt.Errorf("read channel %d: %w", ch, err)
		}
		raw[i] = v
	}

	return Channels{
		USBVoltage:     raw[0],
		JackVoltage:    raw[1],
		BatteryVoltage: raw[2],
		BatteryCurrent: raw[3],
		BatteryTemp:    raw[4],
		SystemCurrent:  raw[5],
	}, nil
}

func (r *IIOReader) readChannel(ch int) (uint16, error) {
	path := filepath.Join(r.dir, fmt.Sprintf("in_voltage%d_raw", ch))
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 16)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return uint16(v), nil
}

// Close releases nothing; sysfs files are opened per read.
func (r *IIOReader) Close() error {
	return nil
}
