package logic

// stateTimerMask limits StateTimer to 24 bits, matching the width of the
// hardware register it shadows.
const stateTimerMask = 0xFFFFFF

// Controller owns the registered controller state and advances it one
// tick at a time. It is not safe for concurrent use; the control loop is
// the single writer and readers get copies via State/Counts/Ticks.
type Controller struct {
	state  State
	ticks  uint64
	counts Counts
}

// NewController creates a controller in the reset state:
// no active input, Idle, timer 0, duty 0.
func NewController() *Controller {
	return &Controller{}
}

// Reset forces the controller back to its initial state immediately.
// The loop checks for reset requests ahead of normal tick evaluation.
func (c *Controller) Reset() {
	c.state = State{}
}

// State returns a copy of the current registered state.
func (c *Controller) State() State {
	return c.state
}

// Counts returns a copy of the event counts since startup.
func (c *Controller) Counts() Counts {
	return c.counts
}

// Ticks returns the number of ticks evaluated since startup.
func (c *Controller) Ticks() uint64 {
	return c.ticks
}

// Tick evaluates one control cycle: arbitrate the power source, derive
// safety signals, step the charge state machine, ramp the PWM duty, and
// compose outputs. The whole evaluation reads an immutable snapshot of
// the previous state and commits the staged next state atomically at the
// end; no field is updated mid-evaluation.
func (c *Controller) Tick(s Sample) (Outputs, []Event) {
	prev := c.state

	// Staged state, built fresh with explicit defaults so nothing stale
	// leaks through from the previous tick.
	next := State{
		ActiveInput: SourceNone,
		Charge:      Idle,
		StateTimer:  0,
		ChargePWM:   0,
	}

	// Stage 1: power-source arbitration. Jack beats USB; no hysteresis,
	// a source sitting exactly at the threshold will chatter.
	next.ActiveInput = selectSource(s)

	// Stage 2: safety monitor, fed the same-tick arbiter output.
	powerGood := next.ActiveInput != SourceNone
	batteryGood := s.BatteryVoltage >= BatteryMin &&
		s.BatteryTemp >= TempMin && s.BatteryTemp <= TempMax

	// Stage 3: charge state machine.
	nextCharge, targetPWM := nextChargeState(prev, s, powerGood, batteryGood)
	next.Charge = nextCharge

	// Stage 4: duty ramp, unconditional every tick. Even Idle/Complete/
	// Fault ramp down by 1/tick rather than snapping to 0.
	next.ChargePWM = rampPWM(prev.ChargePWM, targetPWM)

	// StateTimer runs only while sitting in a charging state.
	if nextCharge == prev.Charge && isCharging(nextCharge) {
		next.StateTimer = (prev.StateTimer + 1) & stateTimerMask
	}

	// Stage 5: outputs, derived from the state being committed.
	out := composeOutputs(next, s, powerGood, batteryGood)

	events := c.collectEvents(prev, next, s)

	// Commit.
	c.state = next
	c.ticks++
	return out, events
}

// selectSource picks the active input from this tick's raw signals.
// Jack has strict priority over USB.
func selectSource(s Sample) InputSource {
	if s.JackDetected && s.JackVoltage >= InputVoltageGood {
		return SourceJack
	}
	if s.USBDetected && s.USBVoltage >= InputVoltageGood {
		return SourceUSB
	}
	return SourceNone
}

// nextChargeState computes the next charge state and the duty target for
// this tick. The duty target comes from the current state's row, so a
// freshly entered state's target takes effect on the following tick.
func nextChargeState(prev State, s Sample, powerGood, batteryGood bool) (ChargeState, uint8) {
	next := prev.Charge
	var target uint8

	switch prev.Charge {
	case Idle:
		target = PWMOff
		if powerGood && batteryGood {
			switch {
			case s.BatteryVoltage < BatteryPrecharge:
				next = Precharge
			case s.BatteryVoltage < BatteryTarget:
				next = ConstCurrent
			default:
				next = Complete
			}
		} else if !batteryGood {
			next = Fault
		}

	case Precharge:
		target = PWMPrecharge
		switch {
		case !powerGood:
			next = Idle
		case s.BatteryVoltage >= BatteryPrecharge:
			next = ConstCurrent
		case s.BatteryVoltage < BatteryMin:
			next = Fault
		}

	case ConstCurrent:
		target = PWMFast
		switch {
		case !powerGood:
			next = Idle
		case s.BatteryVoltage >= cvEntryVoltage:
			next = ConstVoltage
		}

	case ConstVoltage:
		// Hold the duty where it is while current still flows; the ramp
		// is effectively frozen for the taper phase.
		if s.BatteryCurrent > CurrentTaper {
			target = prev.ChargePWM
		} else {
			target = PWMOff
			next = Complete
		}
		if !powerGood {
			next = Idle
		}

	case Complete:
		target = PWMOff
		if s.BatteryVoltage < rechargeVoltage {
			next = Idle
		}

	case Fault:
		target = PWMOff
		if batteryGood {
			next = Idle
		}

	default:
		// Unreachable by construction, but an unrecognized state always
		// falls back to Idle.
		target = PWMOff
		next = Idle
	}

	// Temperature override dominates whatever the per-state logic chose.
	if s.BatteryTemp < TempMin || s.BatteryTemp > TempMax {
		next = Fault
	}

	return next, target
}

// rampPWM moves the duty one step toward target per tick.
func rampPWM(pwm, target uint8) uint8 {
	switch {
	case pwm < target:
		return pwm + 1
	case pwm > target:
		return pwm - 1
	default:
		return pwm
	}
}

// isCharging reports whether the state actively drives the charger.
func isCharging(cs ChargeState) bool {
	return cs == Precharge || cs == ConstCurrent || cs == ConstVoltage
}

// LED bit patterns per state, on the 4-bit status bus.
const (
	ledIdle         = 0b0001
	ledPrecharge    = 0b0011
	ledConstCurrent = 0b0111
	ledConstVoltage = 0b1111
	ledComplete     = 0b1000
	ledFault        = 0b0101
)

// composeOutputs derives the tick-visible outputs from the staged state.
func composeOutputs(next State, s Sample, powerGood, batteryGood bool) Outputs {
	var (
		led      uint8
		charging bool
		enable   bool
		fault    bool
	)

	switch next.Charge {
	case Idle:
		led = ledIdle
	case Precharge:
		led, charging, enable = ledPrecharge, true, true
	case ConstCurrent:
		led, charging, enable = ledConstCurrent, true, true
	case ConstVoltage:
		led, charging, enable = ledConstVoltage, true, true
	case Complete:
		led = ledComplete
	case Fault:
		led, fault = ledFault, true
	}

	return Outputs{
		// The rail stays up on good external power, or on a sufficiently
		// charged, non-faulted battery.
		SysOutEnable:      powerGood || (s.BatteryVoltage >= BatteryLow && !fault),
		InputSelect:       next.ActiveInput,
		ChargeEnable:      enable,
		ChargePWM:         next.ChargePWM,
		Charge:            next.Charge,
		PowerGood:         powerGood,
		BatteryGood:       batteryGood,
		ChargingIndicator: charging,
		LEDStatus:         led,
		Fault:             fault,
	}
}

// collectEvents records transitions between the previous and staged state
// and bumps the startup counters.
func (c *Controller) collectEvents(prev, next State, s Sample) []Event {
	var events []Event

	if next.Charge != prev.Charge {
		switch next.Charge {
		case Precharge:
			c.counts.Precharges++
		case ConstCurrent:
			c.counts.FastCharges++
		case Complete:
			c.counts.Completions++
		case Fault:
			c.counts.Faults++
		}
		events = append(events, Event{
			Tick:       c.ticks,
			Type:       EventStateChange,
			FromState:  prev.Charge,
			ToState:    next.Charge,
			FromSource: prev.ActiveInput,
			ToSource:   next.ActiveInput,
			PWM:        next.ChargePWM,
			Battery:    s.BatteryVoltage,
		})
	}

	if next.ActiveInput != prev.ActiveInput {
		c.counts.SourceChanges++
		events = append(events, Event{
			Tick:       c.ticks,
			Type:       EventSourceChange,
			FromState:  prev.Charge,
			ToState:    next.Charge,
			FromSource: prev.ActiveInput,
			ToSource:   next.ActiveInput,
			PWM:        next.ChargePWM,
			Battery:    s.BatteryVoltage,
		})
	}

	return events
}
