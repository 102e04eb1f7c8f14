package gpio

import (
	"errors"

	"github.com/sweeney/charge-controller/internal/logic"
)

// DetectSample is a single scripted reading of the detect inputs.
type DetectSample struct {
	USB  bool
	Jack bool
}

// FakePins is a test double: scripted detect inputs, recorded output writes.
type FakePins struct {
	// Samples contains scripted detect readings. Each call to ReadDetect
	// consumes the next; the last repeats once exhausted.
	Samples []DetectSample

	// index tracks current position in Samples
	index int

	// Writes records every Outputs value passed to Write.
	Writes []logic.Outputs

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by ReadDetect()
	ReadError error

	// WriteError, if set, will be returned by Write()
	WriteError error
}

// NewFakePins creates a FakePins with the given detect samples.
func NewFakePins(samples []DetectSample) *FakePins {
	return &FakePins{Samples: samples}
}

// ReadDetect returns the next scripted detect sample.
func (f *FakePins) ReadDetect() (bool, bool, error) {
	if f.ReadError != nil {
		return false, false, f.ReadError
	}

	if len(f.Samples) == 0 {
		return false, false, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample.USB, sample.Jack, nil
}

// Write records the outputs.
func (f *FakePins) Write(out logic.Outputs) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Writes = append(f.Writes, out)
	return nil
}

// LastWrite returns the most recently written outputs, or false if none.
func (f *FakePins) LastWrite() (logic.Outputs, bool) {
	if len(f.Writes) == 0 {
		return logic.Outputs{}, false
	}
	return f.Writes[len(f.Writes)-1], true
}

// Close marks the pins as closed.
func (f *FakePins) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds samples and clears recorded writes.
func (f *FakePins) Reset() {
	f.index = 0
	f.Writes = nil
	f.Closed = false
}
