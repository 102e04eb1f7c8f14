// Command charge-controller arbitrates the dual power inputs, runs the
// battery charge state machine each tick, mirrors the decisions onto the
// board's output lines, and publishes transitions to MQTT.
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

	"github.com/sweeney/charge-controller/internal/adc"
	"github.com/sweeney/charge-controller/internal/gpio"
	"github.com/sweeney/charge-controller/internal/logic"
	"github.com/sweeney/charge-controller/internal/mqtt"
	"github.com/sweeney/charge-controller/internal/status"
	"github.com/sweeney/charge-controller/internal/web"
)

const defaultADCDevice = "/sys/bus/iio/devices/iio:device0"

func main() {
	tick := flag.Duration("tick", 10*time.Millisecond, "Control loop tick period")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	adcDevice := flag.String("adc-device", defaultADCDevice, "IIO device directory for the ADC")
	pinUSB := flag.Int("pin-usb-detect", gpio.DefaultPinConfig().USBDetect, "BCM pin number for USB detect")
	pinJack := flag.Int("pin-jack-detect", gpio.DefaultPinConfig().JackDetect, "BCM pin number for jack detect")
	printState := flag.Bool("print-state", false, "Sample once, evaluate one tick, print the result and exit")
	httpAddr := flag.String("http", ":8080", "HTTP status address (empty to disable)")
	wsBroker := flag.String("ws-broker", "=broker", `MQTT websocket URL for live UI ("=broker" derives from --broker, "off" disables)`)

	flag.Parse()

	ws := resolveWSBroker(*wsBroker, *broker)
	if err := run(*tick, *broker, *heartbeat, *adcDevice, *pinUSB, *pinJack, *printState, *httpAddr, ws); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(tick time.Duration, broker string, heartbeat time.Duration, adcDevice string, pinUSB, pinJack int, printState bool, httpAddr, wsBroker string) error {
	// Initialize GPIO
	pinCfg := gpio.DefaultPinConfig()
	pinCfg.USBDetect = pinUSB
	pinCfg.JackDetect = pinJack
	pins, err := gpio.NewRealPins(pinCfg)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer pins.Close()

	// Initialize ADC
	adcReader, err := adc.NewIIOReader(adcDevice)
	if err != nil {
		return fmt.Errorf("init adc: %w", err)
	}
	defer adcReader.Close()

	// Print state mode
	if printState {
		sample, err := readSample(adcReader, pins)
		if err != nil {
			return fmt.Errorf("read sample: %w", err)
		}
		out, _ := logic.NewController().Tick(sample)
		fmt.Printf("state: %s, source: %s, pwm: %d, rail: %s, battery: %d\n",
			out.Charge, out.InputSelect, out.ChargePWM, onOff(out.SysOutEnable), sample.BatteryVoltage)
		return nil
	}

	// Initialize MQTT
	publisher := mqtt.NewRealPublisher(broker)
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		TickMs:      tick.Milliseconds(),
		HeartbeatMs: heartbeat.Milliseconds(),
		Broker:      broker,
		HTTPAddr:    httpAddr,
		WSBroker:    wsBroker,
		ADCDevice:   adcDevice,
	})

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
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if httpAddr != "" {
		srv := web.New(httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", httpAddr)
	}

	log.Printf("started: tick=%v broker=%s heartbeat=%v adc=%s", tick, broker, heartbeat, adcDevice)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	return runLoop(adcReader, pins, publisher, publisher, tracker, heartbeat, time.Now, ticker.C, sigCh)
}

// readSample composes one tick's inputs from the ADC channels and the
// detect pins.
func readSample(adcReader adc.Reader, pins gpio.Pins) (logic.Sample, error) {
	ch, err := adcReader.Read()
	if err != nil {
		return logic.Sample{}, fmt.Errorf("adc: %w", err)
	}
	usb, jack, err := pins.ReadDetect()
	if err != nil {
		return logic.Sample{}, fmt.Errorf("detect: %w", err)
	}
	return logic.Sample{
		USBDetected:    usb,
		JackDetected:   jack,
		USBVoltage:     ch.USBVoltage,
		JackVoltage:    ch.JackVoltage,
		BatteryVoltage: ch.BatteryVoltage,
		BatteryCurrent: ch.BatteryCurrent,
		BatteryTemp:    ch.BatteryTemp,
		SystemCurrent:  ch.SystemCurrent,
	}, nil
}

func runLoop(adcReader adc.Reader, pins gpio.Pins, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	controller := logic.NewController()
	lastHeartbeat := now()

	for {
		select {
		case s := <-sig:
			// Reset is asynchronous: it takes effect ahead of the next
			// tick's evaluation rather than being queued behind it.
			if s == syscall.SIGHUP {
				log.Printf("received SIGHUP, resetting controller")
				controller.Reset()
				event := mqtt.SystemEvent{
					Timestamp: now(),
					Event:     "RESET",
					Reason:    "SIGHUP",
				}
				if err := publisher.PublishSystem(event); err != nil {
					log.Printf("failed to publish reset event: %v", err)
				}
				continue
			}

			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			sample, err := readSample(adcReader, pins)
			if err != nil {
				log.Printf("sample error: %v", err)
				continue
			}

			out, events := controller.Tick(sample)

			for _, event := range events {
				log.Printf("event: %s %s->%s source=%s pwm=%d batt=%d",
					event.Type, event.FromState, event.ToState, event.ToSource, event.PWM, event.Battery)
				if err := publisher.Publish(event, t); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}

			if err := pins.Write(out); err != nil {
				log.Printf("gpio write error: %v", err)
			}

			// Update status tracker for HTTP/heartbeat consumers
			if tracker != nil {
				tracker.Update(out, sample, controller.Counts(), controller.Ticks())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}

			// Check for heartbeat
			if heartbeat > 0 && t.Sub(lastHeartbeat) >= heartbeat {
				lastHeartbeat = t
				hbEvent := mqtt.SystemEvent{
					Timestamp: t,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// resolveWSBroker converts the --ws-broker flag value into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; empty disables.
func resolveWSBroker(ws, broker string) string {
	if ws == "off" {
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
