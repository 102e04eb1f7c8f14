package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/charge-controller/internal/logic"
	"github.com/sweeney/charge-controller/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		TickMs:      10,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPAddr:    ":8080",
		ADCDevice:   "/sys/bus/iio/devices/iio:device0",
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(
		logic.Outputs{
			Charge:            logic.Precharge,
			InputSelect:       logic.SourceJack,
			ChargePWM:         30,
			SysOutEnable:      true,
			ChargeEnable:      true,
			ChargingIndicator: true,
			PowerGood:         true,
			BatteryGood:       true,
			LEDStatus:         0b0011,
		},
		logic.Sample{JackDetected: true, JackVoltage: 4096, BatteryVoltage: 2500, BatteryTemp: 2000},
		logic.Counts{Precharges: 1, SourceChanges: 1},
		200,
	)
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.ChargeState != "PRECHARGE" {
		t.Errorf("charge_state: got %q, want PRECHARGE", sj.Status.ChargeState)
	}
	if sj.Status.Source != "JACK" {
		t.Errorf("source: got %q, want JACK", sj.Status.Source)
	}
	if sj.Status.PWM != 30 {
		t.Errorf("pwm: got %d, want 30", sj.Status.PWM)
	}
	if !sj.Status.SysOutEnable {
		t.Error("expected sys_out_enable=true")
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected mqtt.connected=true")
	}
	if sj.Status.Counts.Precharges != 1 {
		t.Errorf("precharges: got %d, want 1", sj.Status.Counts.Precharges)
	}
	if sj.Status.Config.TickMs != 10 {
		t.Errorf("tick_ms: got %d, want 10", sj.Status.Config.TickMs)
	}
}

func TestIndexPage(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(
		logic.Outputs{Charge: logic.ConstCurrent, InputSelect: logic.SourceUSB, ChargePWM: 204, LEDStatus: 0b0111},
		logic.Sample{USBDetected: true, USBVoltage: 4096, BatteryVoltage: 3000},
		logic.Counts{},
		1,
	)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	html := string(body)

	for _, want := range []string{"CONST_CURRENT", "MICRO_USB", "0111", "Charge Controller"} {
		if !strings.Contains(html, want) {
			t.Errorf("page missing %q", want)
		}
	}
	// WS broker unset: no live script.
	if strings.Contains(html, "mqtt.min.js") {
		t.Error("expected no live script without ws broker")
	}
}

func TestIndexPageFaultClass(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(
		logic.Outputs{Charge: logic.Fault, Fault: true, LEDStatus: 0b0101},
		logic.Sample{BatteryTemp: 3200},
		logic.Counts{Faults: 1},
		1,
	)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `class="fault"`) {
		t.Error("expected fault styling on state cell")
	}
}

func TestNotFound(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatalf("GET /nope: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}
