package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/som-sequencer/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"duration": func(d time.Duration) string {
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
	"stateOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"onoff": func(on bool) string {
		if on {
			return "ON"
		}
		return "OFF"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>SOM Sequencer</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>SOM Sequencer{{if .Config.WSBroker}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>State</h2>
<table>
<tr><th>State</th><td id="seq-state" class="{{if .Sequencer.State}}on{{else}}unknown{{end}}">{{stateOrUnknown .Sequencer.State}}</td></tr>
<tr><th>In state</th><td>{{duration .InState}}</td></tr>
<tr><th>Transitions</th><td id="seq-transitions">{{.Sequencer.Transitions}}</td></tr>
<tr><th>Boot cause</th><td>{{.Sequencer.BootCause}}</td></tr>
<tr><th>Preidle</th><td>{{.Sequencer.PreidleDuration}}</td></tr>
</table>

<h2>Lines</h2>
<table>
{{with .Sequencer.Levels}}<tr><th>Button</th><td class="{{if .Button}}on{{else}}off{{end}}">{{onoff .Button}}</td></tr>
<tr><th>Rail</th><td class="{{if .Rail}}on{{else}}off{{end}}">{{onoff .Rail}}</td></tr>
<tr><th>Liveness</th><td class="{{if .Liveness}}on{{else}}off{{end}}">{{onoff .Liveness}}</td></tr>
<tr><th>Aux</th><td class="{{if .Aux}}on{{else}}off{{end}}">{{onoff .Aux}}</td></tr>
<tr><th>Buffer</th><td class="{{if .Buffer}}on{{else}}off{{end}}">{{onoff .Buffer}}</td></tr>
<tr><th>SOM power</th><td class="{{if .SOMPower}}on{{else}}off{{end}}">{{onoff .SOMPower}}</td></tr>
<tr><th>Sleep/wake</th><td class="{{if .SleepWake}}on{{else}}off{{end}}">{{onoff .SleepWake}}</td></tr>
<tr><th>UART disable</th><td class="{{if .UARTDisable}}on{{else}}off{{end}}">{{onoff .UARTDisable}}</td></tr>
<tr><th>Power LED</th><td class="{{if .PowerLED}}on{{else}}off{{end}}">{{onoff .PowerLED}}</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
<tr><th>Dropped</th><td>{{.Dropped}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{duration .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Watchdog</th><td>{{if .Config.Watchdog}}{{.Config.Watchdog}} ({{.Feeds}} feeds){{else}}disabled{{end}}</td></tr>
<tr><th>GPIO</th><td>{{.Config.Backend}}</td></tr>
<tr><th>Poll</th><td>{{if eq .Config.PollMs 0}}spin{{else}}{{.Config.PollMs}}ms{{end}}</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{.Config.HeartbeatMs}}ms</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
{{if .Config.WSBroker}}
<script src="/mqtt.min.js"></script>
<script>
(function() {
  var broker = "{{.Config.WSBroker}}";
  var topic = "som/sequencer/events";
  var dot = document.getElementById("live-dot");
  var stateEl = document.getElementById("seq-state");
  var countEl = document.getElementById("seq-transitions");

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
      if (msg.sequencer && msg.sequencer.to) {
        stateEl.textContent = msg.sequencer.to;
        stateEl.className = "on";
        countEl.textContent = String(parseInt(countEl.textContent, 10) + 1);
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
	// Snapshot has Uptime()/InState() methods but the template wants fields.
	data := struct {
		status.Snapshot
		Uptime  time.Duration
		InState time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		InState:  snap.InState(),
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("render status page: %v", err)
	}
}
