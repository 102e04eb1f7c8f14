//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/charge-controller/internal/logic"
)

// RealPins is not available on non-Linux platforms.
type RealPins struct{}

// NewRealPins returns an error on non-Linux platforms.
func NewRealPins(cfg PinConfig) (*RealPins, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// ReadDetect is not implemented on non-Linux platforms.
func (r *RealPins) ReadDetect() (bool, bool, error) {
	return false, false, errors.New("gpio: not supported")
}

// Write is not implemented on non-Linux platforms.
func (r *RealPins) Write(out logic.Outputs) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealPins) Close() error {
	return nil
}
