// Command som-sequencer drives the power sequencing of a system-on-module from
// its carrier board: one button, a rail monitor, a liveness line and the power
// outputs. State changes are published to MQTT and served over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/som-sequencer/internal/fsm"
	"github.com/sweeney/som-sequencer/internal/gpio"
	"github.com/sweeney/som-sequencer/internal/mqtt"
	"github.com/sweeney/som-sequencer/internal/resetcause"
	"github.com/sweeney/som-sequencer/internal/sequencer"
	"github.com/sweeney/som-sequencer/internal/status"
	"github.com/sweeney/som-sequencer/internal/timer"
	"github.com/sweeney/som-sequencer/internal/watchdog"
	"github.com/sweeney/som-sequencer/internal/web"
)

const publishQueueDepth = 64

type options struct {
	poll           time.Duration
	backend        string
	chip           string
	pins           gpio.Pins
	seq            sequencer.Config
	statusInterval time.Duration
	broker         string
	wsBroker       string
	httpAddr       string
	watchdogDevice string
	watchdogTO     time.Duration
	marker         string
	bootStatus     string
	printState     bool
}

func main() {
	def := sequencer.DefaultConfig()
	pins := gpio.DefaultPins()
	var o options

	flag.DurationVar(&o.poll, "poll", 5*time.Millisecond, "Loop polling interval (0 to spin)")
	flag.StringVar(&o.backend, "gpio", "cdev", `GPIO backend: "cdev" (character device) or "periph"`)
	flag.StringVar(&o.chip, "chip", "gpiochip0", "GPIO chip for the cdev backend")

	flag.IntVar(&pins.Button, "pin-button", gpio.DefaultPinButton, "BCM pin for the power button")
	flag.BoolVar(&pins.ButtonActiveLow, "button-active-low", true, "Button pulls its line low when pressed")
	flag.IntVar(&pins.Rail, "pin-rail", gpio.DefaultPinRail, "BCM pin for the SOM rail monitor")
	flag.IntVar(&pins.Liveness, "pin-liveness", gpio.DefaultPinLiveness, "BCM pin for the SOM liveness line")
	flag.IntVar(&pins.Aux, "pin-aux", gpio.DefaultPinAux, "BCM pin for the auxiliary input")
	flag.IntVar(&pins.Buffer, "pin-buffer", gpio.DefaultPinBuffer, "BCM pin for the isolation buffer enable")
	flag.IntVar(&pins.SOMPower, "pin-som-power", gpio.DefaultPinSOMPower, "BCM pin for the SOM power enable")
	flag.IntVar(&pins.SleepWake, "pin-sleep-wake", gpio.DefaultPinSleepWake, "BCM pin for the SOM sleep/wake request")
	flag.IntVar(&pins.UARTDisable, "pin-uart-disable", gpio.DefaultPinUARTDisable, "BCM pin for the UART disable")
	flag.IntVar(&pins.PowerLED, "pin-power-led", gpio.DefaultPinPowerLED, "BCM pin for the power LED")
	flag.IntVar(&pins.DebugLED, "pin-debug-led", gpio.DefaultPinDebugLED, "BCM pin for the heartbeat LED")

	flag.DurationVar(&def.Debounce, "debounce", def.Debounce, "Button hold pulse interval")
	flag.DurationVar(&def.Preidle, "preidle", def.Preidle, "Settling delay before the first real state")
	flag.DurationVar(&def.ColdBootCooldown, "cooldown", def.ColdBootCooldown, "Entry delay after restarting under a powered SOM")
	flag.DurationVar(&def.Halting, "halting", def.Halting, "Time the SOM gets to finish shutting down")
	flag.DurationVar(&def.Booting, "booting", def.Booting, "Time the SOM gets to boot")
	flag.DurationVar(&def.Heartbeat, "heartbeat", def.Heartbeat, "Watchdog feed and heartbeat LED interval")
	flag.IntVar(&def.KillHolds, "kill-holds", def.KillHolds, "Hold pulses that force power off while shutting down")
	flag.BoolVar(&def.PowerLEDInverted, "power-led-inverted", false, "Power LED is lit by driving its line low")
	flag.BoolVar(&def.DebugLEDInverted, "debug-led-inverted", false, "Heartbeat LED is lit by driving its line low")
	flag.BoolVar(&def.Debug, "debug", true, "Log state-graph notifications")

	flag.DurationVar(&o.statusInterval, "status-interval", 15*time.Minute, "MQTT status heartbeat interval (0 to disable)")
	flag.StringVar(&o.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address (empty to disable)")
	flag.StringVar(&o.wsBroker, "ws-broker", "=broker", `MQTT websocket URL for live UI ("=broker" derives from --broker, "off" disables)`)
	flag.StringVar(&o.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	flag.StringVar(&o.watchdogDevice, "watchdog", watchdog.DefaultDevice, "Watchdog device (empty to disable)")
	flag.DurationVar(&o.watchdogTO, "watchdog-timeout", watchdog.DefaultTimeout, "Watchdog timeout armed at startup")
	flag.StringVar(&o.marker, "marker", resetcause.DefaultMarkerPath, "Soft-restart marker file")
	flag.StringVar(&o.bootStatus, "bootstatus", resetcause.DefaultBootStatusPath, "Watchdog bootstatus file")
	flag.BoolVar(&o.printState, "print-state", false, "Print input line levels and exit")

	flag.Parse()

	o.pins = pins
	o.seq = def
	o.wsBroker = resolveWSBroker(o.wsBroker, o.broker)
	if err := run(o); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func openLines(backend, chip string, pins gpio.Pins) (*gpio.LineSet, error) {
	switch backend {
	case "cdev":
		return gpio.OpenCdev(chip, pins)
	case "periph":
		return gpio.OpenPeriph(pins)
	default:
		return nil, fmt.Errorf("unknown gpio backend %q", backend)
	}
}

func run(o options) error {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if o.seq.Heartbeat <= 0 {
		return fmt.Errorf("heartbeat must be positive, got %v", o.seq.Heartbeat)
	}
	if o.watchdogDevice != "" && o.seq.Heartbeat >= o.watchdogTO {
		return fmt.Errorf("heartbeat %v must be shorter than the watchdog timeout %v", o.seq.Heartbeat, o.watchdogTO)
	}

	// Initialize GPIO
	lines, err := openLines(o.backend, o.chip, o.pins)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer func() {
		if err := lines.Close(); err != nil {
			log.Printf("gpio close: %v", err)
		}
	}()

	// Print state mode
	if o.printState {
		return printLevels(lines)
	}

	reset := resetcause.NewSystem(o.marker, o.bootStatus)

	var wd watchdog.Watchdog = watchdog.Nop{}
	if o.watchdogDevice != "" {
		dev, err := watchdog.Open(o.watchdogDevice, o.watchdogTO)
		if err != nil {
			return fmt.Errorf("init watchdog: %w", err)
		}
		wd = dev
		log.Printf("watchdog %s armed: timeout=%v", o.watchdogDevice, o.watchdogTO)
	}

	// Initialize MQTT
	var inner mqtt.Publisher = mqtt.Discard{}
	if o.broker != "" {
		inner = mqtt.NewRealPublisher(o.broker)
	}
	publisher := mqtt.NewAsyncPublisher(inner, publishQueueDepth)
	defer teardown(wd, publisher)

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      o.poll.Milliseconds(),
		DebounceMs:  o.seq.Debounce.Milliseconds(),
		HeartbeatMs: o.seq.Heartbeat.Milliseconds(),
		Backend:     o.backend,
		Watchdog:    o.watchdogDevice,
		Broker:      o.broker,
		HTTPPort:    o.httpAddr,
		WSBroker:    o.wsBroker,
		Debug:       o.seq.Debug,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	seq := sequencer.New(o.seq, lines, reset, time.Now)
	hb := sequencer.NewHeartbeat(o.seq.Heartbeat, gpio.NewLED(lines.DebugLED, o.seq.DebugLEDInverted), wd, time.Now)
	tracker.Update(seq.Snapshot(), hb.Feeds())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	}

	// Start HTTP status server
	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", o.httpAddr)
	}

	log.Printf("started: gpio=%s poll=%v debounce=%v heartbeat=%v broker=%q",
		o.backend, o.poll, o.seq.Debounce, o.seq.Heartbeat, o.broker)

	var tick <-chan time.Time
	if o.poll > 0 {
		ticker := time.NewTicker(o.poll)
		defer ticker.Stop()
		tick = ticker.C
	}

	var report *timer.Timer
	if o.statusInterval > 0 {
		report = timer.New(o.statusInterval, time.Now)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := newLoop(seq, hb, publisher, tracker, report, time.Now)
	if err := runLoop(l, tick, sigCh); err != nil {
		return err
	}

	// The SOM keeps running across our restart; the marker tells the next
	// start that this was not a cold boot.
	if err := reset.MarkSoft(); err != nil {
		log.Printf("failed to write soft-restart marker: %v", err)
	}
	return nil
}

// teardown disarms the watchdog and then drains the publisher. Nothing feeds
// the watchdog once the loop has returned, and a drain against an unresponsive
// broker can outlast the watchdog timeout.
func teardown(wd watchdog.Watchdog, publisher mqtt.Publisher) {
	if err := wd.Close(); err != nil {
		log.Printf("watchdog close: %v", err)
	}
	if err := publisher.Close(); err != nil {
		log.Printf("mqtt close: %v", err)
	}
}

// loop owns one iteration of the control loop: heartbeat, sequencer step,
// status refresh and the periodic status report.
type loop struct {
	seq        *sequencer.Sequencer
	hb         *sequencer.Heartbeat
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	dropper    interface{ Dropped() int }
	tracker    *status.Tracker
	report     *timer.Timer // nil disables HEARTBEAT status events
	now        func() time.Time
}

// newLoop wires transition telemetry into seq. tracker and report may be nil.
func newLoop(seq *sequencer.Sequencer, hb *sequencer.Heartbeat, publisher mqtt.Publisher, tracker *status.Tracker, report *timer.Timer, now func() time.Time) *loop {
	l := &loop{
		seq:       seq,
		hb:        hb,
		publisher: publisher,
		tracker:   tracker,
		report:    report,
		now:       now,
	}
	l.mqttStatus, _ = publisher.(mqtt.ConnectionStatus)
	l.dropper, _ = publisher.(interface{ Dropped() int })

	seq.OnTransition(func(tr fsm.Transition) {
		if err := publisher.Publish(mqtt.TransitionEvent(tr)); err != nil {
			log.Printf("publish error: %v", err)
			// Don't stop the loop on publish failure
		}
	})
	return l
}

// iterate runs one tick: heartbeat, then one sequencer step.
func (l *loop) iterate() {
	l.hb.Tick()
	l.seq.Step()
	l.refresh()

	if l.report == nil || !l.report.RepeatExecution() {
		return
	}
	hbEvent := mqtt.SystemEvent{
		Timestamp: l.now(),
		Event:     "HEARTBEAT",
	}
	if l.tracker != nil {
		// Refresh network info for heartbeat
		if net := readNetworkInfo(); net != nil {
			l.tracker.SetNetwork(net)
		}
		snap := l.tracker.Snapshot()
		hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
	}
	if err := l.publisher.PublishSystem(hbEvent); err != nil {
		log.Printf("heartbeat publish error: %v", err)
	}
}

func (l *loop) refresh() {
	if l.tracker == nil {
		return
	}
	l.tracker.Update(l.seq.Snapshot(), l.hb.Feeds())
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
	if l.dropper != nil {
		l.tracker.SetDropped(l.dropper.Dropped())
	}
}

func (l *loop) shutdown(s os.Signal) {
	log.Printf("received %v, shutting down", s)
	signalName := "UNKNOWN"
	if s == syscall.SIGINT {
		signalName = "SIGINT"
	} else if s == syscall.SIGTERM {
		signalName = "SIGTERM"
	}
	event := mqtt.SystemEvent{
		Timestamp: l.now(),
		Event:     "SHUTDOWN",
		Reason:    signalName,
		Retained:  true,
	}
	if l.tracker != nil {
		l.refresh()
		snap := l.tracker.Snapshot()
		event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish shutdown event: %v", err)
	}
}

// runLoop iterates once per tick until a signal arrives. A nil tick channel
// spins without sleeping.
func runLoop(l *loop, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		if tick == nil {
			select {
			case s := <-sig:
				l.shutdown(s)
				return nil
			default:
			}
		} else {
			select {
			case s := <-sig:
				l.shutdown(s)
				return nil
			case <-tick:
			}
		}
		l.iterate()
	}
}

func printLevels(lines *gpio.LineSet) error {
	inputs := []struct {
		name string
		in   gpio.Input
	}{
		{"button", lines.Button},
		{"rail", lines.Rail},
		{"liveness", lines.Liveness},
		{"aux", lines.Aux},
	}
	for _, i := range inputs {
		v, err := i.in.Read()
		if err != nil {
			return fmt.Errorf("read %s: %w", i.name, err)
		}
		fmt.Printf("%s: %s\n", i.name, stateString(v))
	}
	return nil
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

func stateString(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

// resolveWSBroker converts the --ws-broker flag value into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; empty disables.
func resolveWSBroker(ws, broker string) string {
	if ws == "off" || (ws == "=broker" && broker == "") {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil {
		log.Printf("ws-broker: cannot parse --broker %q: %v", broker, err)
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
