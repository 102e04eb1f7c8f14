package logic

import "testing"

// jackSample returns a sample with a good jack input and the given
// battery telemetry. Temp 2000 is mid-window.
func jackSample(battV, battI uint16) Sample {
	return Sample{
		JackDetected:   true,
		JackVoltage:    4096,
		BatteryVoltage: battV,
		BatteryCurrent: battI,
		BatteryTemp:    2000,
	}
}

func TestNewControllerResetValues(t *testing.T) {
	c := NewController()
	st := c.State()
	if st.ActiveInput != SourceNone {
		t.Errorf("ActiveInput: got %s, want NONE", st.ActiveInput)
	}
	if st.Charge != Idle {
		t.Errorf("Charge: got %s, want IDLE", st.Charge)
	}
	if st.StateTimer != 0 {
		t.Errorf("StateTimer: got %d, want 0", st.StateTimer)
	}
	if st.ChargePWM != 0 {
		t.Errorf("ChargePWM: got %d, want 0", st.ChargePWM)
	}
}

func TestSourceArbitration(t *testing.T) {
	tests := []struct {
		name   string
		sample Sample
		want   InputSource
	}{
		{"nothing detected", Sample{}, SourceNone},
		{"jack good", Sample{JackDetected: true, JackVoltage: 4096}, SourceJack},
		{"jack detected but weak", Sample{JackDetected: true, JackVoltage: 4095}, SourceNone},
		{"jack voltage without detect", Sample{JackVoltage: 4096}, SourceNone},
		{"usb good", Sample{USBDetected: true, USBVoltage: 4096}, SourceUSB},
		{"usb detected but weak", Sample{USBDetected: true, USBVoltage: 2000}, SourceNone},
		{
			"jack beats usb",
			Sample{JackDetected: true, JackVoltage: 4096, USBDetected: true, USBVoltage: 4096},
			SourceJack,
		},
		{
			"weak jack falls back to usb",
			Sample{JackDetected: true, JackVoltage: 3000, USBDetected: true, USBVoltage: 4096},
			SourceUSB,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := selectSource(tt.sample); got != tt.want {
				t.Errorf("selectSource: got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestColdStart(t *testing.T) {
	// Scenario: reset with nothing attached and a flat battery.
	c := NewController()
	out, events := c.Tick(Sample{})

	if out.Charge != Idle {
		t.Errorf("Charge: got %s, want IDLE", out.Charge)
	}
	if out.ChargePWM != 0 {
		t.Errorf("ChargePWM: got %d, want 0", out.ChargePWM)
	}
	if out.InputSelect != SourceNone {
		t.Errorf("InputSelect: got %s, want NONE", out.InputSelect)
	}
	if out.SysOutEnable {
		t.Error("expected SysOutEnable=false on cold start")
	}
	if out.PowerGood {
		t.Error("expected PowerGood=false with no input")
	}
	if out.LEDStatus != 0b0001 {
		t.Errorf("LEDStatus: got %04b, want 0001", out.LEDStatus)
	}
	if len(events) != 0 {
		t.Errorf("expected no events on cold start, got %d", len(events))
	}
}

func TestPrechargeEntry(t *testing.T) {
	// Scenario: good jack, battery at 2500 (below precharge threshold).
	c := NewController()
	out, events := c.Tick(jackSample(2500, 0))

	if out.Charge != Precharge {
		t.Fatalf("Charge: got %s, want PRECHARGE", out.Charge)
	}
	if !out.ChargeEnable {
		t.Error("expected ChargeEnable=true in precharge")
	}
	if out.LEDStatus != 0b0011 {
		t.Errorf("LEDStatus: got %04b, want 0011", out.LEDStatus)
	}
	if !out.ChargingIndicator {
		t.Error("expected ChargingIndicator=true")
	}
	if len(events) != 2 {
		t.Fatalf("expected state+source events, got %d", len(events))
	}
	if events[0].Type != EventStateChange || events[0].ToState != Precharge {
		t.Errorf("event 0: got %s to %s", events[0].Type, events[0].ToState)
	}
	if events[1].Type != EventSourceChange || events[1].ToSource != SourceJack {
		t.Errorf("event 1: got %s to %s", events[1].Type, events[1].ToSource)
	}

	// Duty ramps toward 64 by 1/tick from here.
	for i := 1; i <= 5; i++ {
		out, _ = c.Tick(jackSample(2500, 0))
		if out.ChargePWM != uint8(i) {
			t.Fatalf("tick %d: ChargePWM got %d, want %d", i, out.ChargePWM, i)
		}
	}
}

func TestIdleEntryPoints(t *testing.T) {
	tests := []struct {
		name  string
		battV uint16
		want  ChargeState
	}{
		{"deeply discharged goes to precharge", 2500, Precharge},
		{"partly charged goes to fast charge", 3000, ConstCurrent},
		{"full battery goes straight to complete", 3500, Complete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController()
			out, _ := c.Tick(jackSample(tt.battV, 0))
			if out.Charge != tt.want {
				t.Errorf("Charge: got %s, want %s", out.Charge, tt.want)
			}
		})
	}
}

func TestIdleBadBatteryFaults(t *testing.T) {
	// Battery below BatteryMin means batteryGood=false even with no input.
	c := NewController()
	s := Sample{BatteryVoltage: 2000, BatteryTemp: 2000}
	out, _ := c.Tick(s)
	if out.Charge != Fault {
		t.Errorf("Charge: got %s, want FAULT", out.Charge)
	}
	if !out.Fault {
		t.Error("expected Fault output asserted")
	}
}

func TestPrechargeTransitions(t *testing.T) {
	tests := []struct {
		name   string
		sample Sample
		want   ChargeState
	}{
		{"stays while low", jackSample(2700, 0), Precharge},
		{"hands over to fast charge", jackSample(2867, 0), ConstCurrent},
		{"power loss returns to idle", Sample{BatteryVoltage: 2700, BatteryTemp: 2000}, Idle},
		{"collapsed cell faults", jackSample(2000, 0), Fault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController()
			c.state = State{ActiveInput: SourceJack, Charge: Precharge, ChargePWM: 30}
			out, _ := c.Tick(tt.sample)
			if out.Charge != tt.want {
				t.Errorf("Charge: got %s, want %s", out.Charge, tt.want)
			}
		})
	}
}

func TestConstCurrentTransitions(t *testing.T) {
	tests := []struct {
		name   string
		sample Sample
		want   ChargeState
	}{
		{"stays below handover", jackSample(3400, 1500), ConstCurrent},
		{"enters const voltage near target", jackSample(3424, 1500), ConstVoltage},
		{"power loss returns to idle", Sample{BatteryVoltage: 3400, BatteryTemp: 2000}, Idle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController()
			c.state = State{ActiveInput: SourceJack, Charge: ConstCurrent, ChargePWM: 100}
			out, _ := c.Tick(tt.sample)
			if out.Charge != tt.want {
				t.Errorf("Charge: got %s, want %s", out.Charge, tt.want)
			}
		})
	}
}

func TestConstVoltageFreezesDuty(t *testing.T) {
	c := NewController()
	c.state = State{ActiveInput: SourceJack, Charge: ConstVoltage, ChargePWM: 180}

	// Current above taper: duty holds exactly where it is, tick after tick.
	for i := 0; i < 10; i++ {
		out, _ := c.Tick(jackSample(3430, 500))
		if out.Charge != ConstVoltage {
			t.Fatalf("tick %d: Charge got %s, want CONST_VOLTAGE", i, out.Charge)
		}
		if out.ChargePWM != 180 {
			t.Fatalf("tick %d: ChargePWM got %d, want 180 (frozen)", i, out.ChargePWM)
		}
	}
}

func TestTaperCompletion(t *testing.T) {
	// Scenario: CV with battery current below taper threshold.
	c := NewController()
	c.state = State{ActiveInput: SourceJack, Charge: ConstVoltage, ChargePWM: 180}

	out, _ := c.Tick(jackSample(3440, 100))
	if out.Charge != Complete {
		t.Fatalf("Charge: got %s, want COMPLETE", out.Charge)
	}
	if out.ChargeEnable {
		t.Error("expected ChargeEnable=false in complete")
	}
	if out.LEDStatus != 0b1000 {
		t.Errorf("LEDStatus: got %04b, want 1000", out.LEDStatus)
	}
	if out.ChargePWM != 179 {
		t.Errorf("ChargePWM: got %d, want 179 (ramping down)", out.ChargePWM)
	}
}

func TestConstVoltagePowerLossOverridesComplete(t *testing.T) {
	// Taper condition met on the same tick the input disappears: power
	// loss wins and the state returns to Idle, not Complete.
	c := NewController()
	c.state = State{ActiveInput: SourceJack, Charge: ConstVoltage, ChargePWM: 180}

	out, _ := c.Tick(Sample{BatteryVoltage: 3440, BatteryCurrent: 50, BatteryTemp: 2000})
	if out.Charge != Idle {
		t.Errorf("Charge: got %s, want IDLE", out.Charge)
	}
}

func TestCompleteHolds(t *testing.T) {
	// Holding inputs at the stay condition leaves Complete indefinitely.
	c := NewController()
	c.state = State{ActiveInput: SourceJack, Charge: Complete}

	for i := 0; i < 100; i++ {
		out, _ := c.Tick(jackSample(3276, 0))
		if out.Charge != Complete {
			t.Fatalf("tick %d: Charge got %s, want COMPLETE", i, out.Charge)
		}
	}
}

func TestCompleteRecharges(t *testing.T) {
	c := NewController()
	c.state = State{ActiveInput: SourceJack, Charge: Complete}

	out, _ := c.Tick(jackSample(3275, 0))
	if out.Charge != Idle {
		t.Errorf("Charge: got %s, want IDLE", out.Charge)
	}
}

func TestTempFaultFromEveryState(t *testing.T) {
	// Out-of-window temperature forces Fault regardless of where the
	// state machine is.
	states := []ChargeState{Idle, Precharge, ConstCurrent, ConstVoltage, Complete, Fault}
	temps := []uint16{1023, 3073, 0, 4095}

	for _, st := range states {
		for _, temp := range temps {
			c := NewController()
			c.state = State{ActiveInput: SourceJack, Charge: st, ChargePWM: 100}
			s := jackSample(3000, 500)
			s.BatteryTemp = temp
			out, _ := c.Tick(s)
			if out.Charge != Fault {
				t.Errorf("from %s at temp %d: got %s, want FAULT", st, temp, out.Charge)
			}
		}
	}
}

func TestFaultMidCharge(t *testing.T) {
	// Scenario: fast-charging and the pack overheats for one tick.
	c := NewController()
	c.state = State{ActiveInput: SourceJack, Charge: ConstCurrent, ChargePWM: 150}

	s := jackSample(3000, 1500)
	s.BatteryTemp = 3200
	out, events := c.Tick(s)

	if out.Charge != Fault {
		t.Fatalf("Charge: got %s, want FAULT", out.Charge)
	}
	if !out.Fault {
		t.Error("expected Fault output asserted")
	}
	if out.LEDStatus != 0b0101 {
		t.Errorf("LEDStatus: got %04b, want 0101", out.LEDStatus)
	}
	if out.ChargeEnable {
		t.Error("expected ChargeEnable=false in fault")
	}
	if len(events) != 1 || events[0].ToState != Fault {
		t.Fatalf("expected one fault transition event, got %+v", events)
	}

	// Fault is self-healing: temperature back in window and a good cell
	// return to Idle on the next tick with no acknowledgment step.
	out, _ = c.Tick(jackSample(3000, 1500))
	if out.Charge != Idle {
		t.Errorf("recovery: got %s, want IDLE", out.Charge)
	}
}

func TestFaultPersistsWhileBatteryBad(t *testing.T) {
	c := NewController()
	c.state = State{Charge: Fault}

	for i := 0; i < 5; i++ {
		out, _ := c.Tick(Sample{BatteryVoltage: 2000, BatteryTemp: 2000})
		if out.Charge != Fault {
			t.Fatalf("tick %d: got %s, want FAULT", i, out.Charge)
		}
	}
}

func TestUnknownStateFallsBackToIdle(t *testing.T) {
	c := NewController()
	c.state = State{Charge: ChargeState(42)}

	out, _ := c.Tick(Sample{BatteryVoltage: 3000, BatteryTemp: 2000})
	if out.Charge != Idle {
		t.Errorf("Charge: got %s, want IDLE", out.Charge)
	}
}

func TestPWMRampInvariant(t *testing.T) {
	// Over a full charge/discharge excursion the duty never moves more
	// than one step per tick and never leaves [0,255].
	c := NewController()
	prev := c.State().ChargePWM

	script := []Sample{}
	for i := 0; i < 300; i++ {
		script = append(script, jackSample(2500, 500)) // precharge, ramp to 64
	}
	for i := 0; i < 300; i++ {
		script = append(script, jackSample(3000, 1500)) // fast charge, ramp to 204
	}
	for i := 0; i < 300; i++ {
		script = append(script, Sample{BatteryVoltage: 3000, BatteryTemp: 2000}) // power loss, ramp to 0
	}

	for i, s := range script {
		out, _ := c.Tick(s)
		diff := int(out.ChargePWM) - int(prev)
		if diff < -1 || diff > 1 {
			t.Fatalf("tick %d: duty moved by %d", i, diff)
		}
		prev = out.ChargePWM
	}
	if prev != 0 {
		t.Errorf("final duty: got %d, want 0", prev)
	}
}

func TestPWMRampTargets(t *testing.T) {
	c := NewController()

	// Ramp all the way to the precharge target and sit there.
	var out Outputs
	for i := 0; i < 100; i++ {
		out, _ = c.Tick(jackSample(2500, 500))
	}
	if out.ChargePWM != PWMPrecharge {
		t.Errorf("precharge duty: got %d, want %d", out.ChargePWM, PWMPrecharge)
	}

	// Move to fast charge and ramp to its target.
	for i := 0; i < 200; i++ {
		out, _ = c.Tick(jackSample(3000, 1500))
	}
	if out.ChargePWM != PWMFast {
		t.Errorf("fast-charge duty: got %d, want %d", out.ChargePWM, PWMFast)
	}
}

func TestStateTimer(t *testing.T) {
	c := NewController()

	// Entry tick: timer resets to 0 on the state change.
	c.Tick(jackSample(2500, 0))
	if st := c.State(); st.StateTimer != 0 {
		t.Errorf("entry tick: StateTimer got %d, want 0", st.StateTimer)
	}

	// Counts up while sitting in precharge.
	for i := 1; i <= 10; i++ {
		c.Tick(jackSample(2500, 0))
		if st := c.State(); st.StateTimer != uint32(i) {
			t.Fatalf("tick %d: StateTimer got %d, want %d", i, st.StateTimer, i)
		}
	}

	// Resets on handover to fast charge.
	c.Tick(jackSample(2900, 0))
	if st := c.State(); st.StateTimer != 0 {
		t.Errorf("after handover: StateTimer got %d, want 0", st.StateTimer)
	}

	// Zero in non-charging states.
	c.Tick(Sample{BatteryVoltage: 2900, BatteryTemp: 2000}) // power loss -> Idle
	c.Tick(Sample{BatteryVoltage: 2900, BatteryTemp: 2000})
	if st := c.State(); st.StateTimer != 0 {
		t.Errorf("idle: StateTimer got %d, want 0", st.StateTimer)
	}
}

func TestRailFallback(t *testing.T) {
	// Scenario: input lost with a healthy battery above BatteryLow keeps
	// the rail up; a sagging battery drops it.
	c := NewController()
	c.state = State{ActiveInput: SourceJack, Charge: ConstCurrent}

	out, _ := c.Tick(Sample{BatteryVoltage: 2800, BatteryTemp: 2000})
	if !out.SysOutEnable {
		t.Error("expected rail up on battery at 2800")
	}
	if out.PowerGood {
		t.Error("expected PowerGood=false after source loss")
	}

	out, _ = c.Tick(Sample{BatteryVoltage: 2700, BatteryTemp: 2000})
	if out.SysOutEnable {
		t.Error("expected rail down on battery at 2700")
	}
}

func TestRailDropsInFault(t *testing.T) {
	// In fault the battery branch of the rail decision is cut; only
	// external power keeps the rail up.
	c := NewController()
	c.state = State{Charge: ConstCurrent}
	s := Sample{BatteryVoltage: 3000, BatteryTemp: 3200}

	out, _ := c.Tick(s)
	if out.Charge != Fault {
		t.Fatalf("Charge: got %s, want FAULT", out.Charge)
	}
	if out.SysOutEnable {
		t.Error("expected rail down: no input and faulted")
	}

	// Same fault with external power present: rail stays up.
	c.state = State{ActiveInput: SourceJack, Charge: ConstCurrent}
	s = jackSample(3000, 500)
	s.BatteryTemp = 3200
	out, _ = c.Tick(s)
	if !out.SysOutEnable {
		t.Error("expected rail up on external power despite fault")
	}
}

func TestSourceChangeEventAndCounts(t *testing.T) {
	c := NewController()

	// Jack appears with a full battery: complete + source change.
	c.Tick(jackSample(3500, 0))
	// Jack swapped for USB.
	_, events := c.Tick(Sample{USBDetected: true, USBVoltage: 4096, BatteryVoltage: 3500, BatteryTemp: 2000})
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != EventSourceChange {
		t.Errorf("type: got %s, want SOURCE_CHANGE", events[0].Type)
	}
	if events[0].FromSource != SourceJack || events[0].ToSource != SourceUSB {
		t.Errorf("sources: got %s->%s", events[0].FromSource, events[0].ToSource)
	}

	counts := c.Counts()
	if counts.SourceChanges != 2 {
		t.Errorf("SourceChanges: got %d, want 2", counts.SourceChanges)
	}
	if counts.Completions != 1 {
		t.Errorf("Completions: got %d, want 1", counts.Completions)
	}
}

func TestReset(t *testing.T) {
	c := NewController()
	for i := 0; i < 50; i++ {
		c.Tick(jackSample(2500, 0))
	}
	if st := c.State(); st.Charge != Precharge || st.ChargePWM == 0 {
		t.Fatalf("setup failed: %+v", st)
	}

	c.Reset()
	st := c.State()
	if st.Charge != Idle || st.ChargePWM != 0 || st.StateTimer != 0 || st.ActiveInput != SourceNone {
		t.Errorf("after reset: %+v", st)
	}
}
