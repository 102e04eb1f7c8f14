package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/charge-controller/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"leds": func(v uint8) string {
		return fmt.Sprintf("%04b", v)
	},
	"duty": func(pwm uint8) string {
		return fmt.Sprintf("%d (%.0f%%)", pwm, float64(pwm)*100/255)
	},
	"stateClass": func(s string) string {
		switch s {
		case "FAULT":
			return "fault"
		case "COMPLETE":
			return "complete"
		case "IDLE":
			return "idle"
		default:
			return "charging"
		}
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Charge Controller</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.charging { color: green; font-weight: bold; }
.idle { color: #888; }
.complete { color: #06c; font-weight: bold; }
.fault { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Charge Controller{{if .Config.WSBroker}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Charger</h2>
<table>
<tr><th>State</th><td id="charge-state" class="{{stateClass .Outputs.Charge.String}}">{{.Outputs.Charge}}</td></tr>
<tr><th>Source</th><td id="source">{{.Outputs.InputSelect}}</td></tr>
<tr><th>Duty</th><td id="pwm">{{duty .Outputs.ChargePWM}}</td></tr>
<tr><th>System rail</th><td>{{if .Outputs.SysOutEnable}}enabled{{else}}disabled{{end}}</td></tr>
<tr><th>Charge enable</th><td>{{if .Outputs.ChargeEnable}}on{{else}}off{{end}}</td></tr>
<tr><th>LED status</th><td>{{leds .Outputs.LEDStatus}}</td></tr>
<tr><th>Power good</th><td>{{if .Outputs.PowerGood}}yes{{else}}no{{end}}</td></tr>
<tr><th>Battery good</th><td>{{if .Outputs.BatteryGood}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Telemetry (raw ADC counts)</h2>
<table>
<tr><th>USB voltage</th><td>{{.Sample.USBVoltage}}{{if .Sample.USBDetected}} (detected){{end}}</td></tr>
<tr><th>Jack voltage</th><td>{{.Sample.JackVoltage}}{{if .Sample.JackDetected}} (detected){{end}}</td></tr>
<tr><th>Battery voltage</th><td>{{.Sample.BatteryVoltage}}</td></tr>
<tr><th>Battery current</th><td>{{.Sample.BatteryCurrent}}</td></tr>
<tr><th>Battery temp</th><td>{{.Sample.BatteryTemp}}</td></tr>
<tr><th>System current</th><td>{{.Sample.SystemCurrent}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Precharges</th><td>{{.Counts.Precharges}}</td></tr>
<tr><th>Fast charges</th><td>{{.Counts.FastCharges}}</td></tr>
<tr><th>Completions</th><td>{{.Counts.Completions}}</td></tr>
<tr><th>Faults</th><td>{{.Counts.Faults}}</td></tr>
<tr><th>Source changes</th><td>{{.Counts.SourceChanges}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Ticks</th><td>{{.Ticks}}</td></tr>
<tr><th>Tick period</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>ADC device</th><td>{{.Config.ADCDevice}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
{{if .Config.WSBroker}}
<script src="/mqtt.min.js"></script>
<script>
(function() {
  var broker = "{{.Config.WSBroker}}";
  var topic = "power/charger/events";
  var dot = document.getElementById("live-dot");
  var stateEl = document.getElementById("charge-state");
  var sourceEl = document.getElementById("source");
  var pwmEl = document.getElementById("pwm");

  function stateClass(s) {
    if (s === "FAULT") return "fault";
    if (s === "COMPLETE") return "complete";
    if (s === "IDLE") return "idle";
    return "charging";
  }

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  var client = mqtt.connect(broker, { reconnectPeriod: 5000 });

  client.on("connect", function() {
    setDot("ok", "live");
    client.subscribe(topic);
  });

  client.on("reconnect", function() {
    setDot("pending", "reconnecting");
  });

  client.on("offline", function() {
    setDot("err", "offline");
  });

  client.on("error", function() {
    setDot("err", "error");
  });

  client.on("message", function(t, payload) {
    try {
      var msg = JSON.parse(payload.toString());
      if (msg.charger) {
        stateEl.textContent = msg.charger.state;
        stateEl.className = stateClass(msg.charger.state);
        sourceEl.textContent = msg.charger.source;
        pwmEl.textContent = msg.charger.pwm;
      }
    } catch (e) {}
  });
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
