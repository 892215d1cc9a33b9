package main

import (
	"os"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/okay-to-wake/internal/gpio"
	"github.com/sweeney/okay-to-wake/internal/logic"
	"github.com/sweeney/okay-to-wake/internal/metrics"
	"github.com/sweeney/okay-to-wake/internal/mqtt"
	"github.com/sweeney/okay-to-wake/internal/schedule"
	"github.com/sweeney/okay-to-wake/internal/status"
)

// classifier is the active schedule as seen by the loop.
type classifier interface {
	Classify(now schedule.Minutes, weekday int) logic.State
}

// loop holds everything the tick loop reads from or writes to. tracker,
// mqttStatus and metrics may be nil.
type loop struct {
	schedule   classifier
	writer     gpio.Writer
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	metrics    *metrics.Metrics
	logger     *zap.Logger
	location   *time.Location
	heartbeat  time.Duration
}

func (l loop) run(now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	detector := logic.NewDetector(startTime)

	for {
		select {
		case s := <-sig:
			l.logger.Info("shutting down", zap.Stringer("signal", s))
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
			if l.tracker != nil {
				l.refreshConnection()
				snap := l.tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := l.publisher.PublishSystem(event); err != nil {
				l.logger.Warn("failed to publish shutdown event", zap.Error(err))
			} else {
				l.logger.Info("published shutdown event")
			}
			return nil

		case <-tick:
			t := now().In(l.location)
			weekday := logic.WeekdayIndex(t)
			minute := logic.MinuteOfDay(t)
			state := l.schedule.Classify(minute, weekday)

			if event, ok := detector.Process(logic.Input{
				Time:    t,
				State:   state,
				Weekday: weekday,
				Minute:  int(minute),
			}); ok {
				l.apply(event)
			}

			// Check for heartbeat
			if hb := detector.CheckHeartbeat(t, l.heartbeat); hb != nil {
				l.logger.Info("heartbeat",
					zap.Duration("uptime", hb.Uptime),
					zap.Stringer("state", hb.State),
					zap.Int("doze", hb.Counts.Doze),
					zap.Int("wake", hb.Counts.Wake),
					zap.Int("day", hb.Counts.Day),
					zap.Int("sleep", hb.Counts.Sleep),
				)
				hbEvent := mqtt.SystemEvent{
					Timestamp: hb.Timestamp,
					Event:     "HEARTBEAT",
				}
				if l.tracker != nil {
					l.refreshConnection()
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						l.tracker.SetNetwork(net)
					}
					l.updateTracker(detector, weekday, int(minute))
					hbEvent.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := l.publisher.PublishSystem(hbEvent); err != nil {
					l.logger.Warn("heartbeat publish error", zap.Error(err))
				}
			}

			// Update status tracker for HTTP consumers
			if l.tracker != nil {
				l.updateTracker(detector, weekday, int(minute))
				l.refreshConnection()
			}
		}
	}
}

// apply drives the LED and announces a state change. Failures are logged;
// the loop keeps running.
func (l loop) apply(event logic.Event) {
	l.logger.Info("state change",
		zap.Stringer("from", event.From),
		zap.Stringer("to", event.To),
		zap.String("weekday", schedule.WeekdayName(event.Weekday)),
		zap.String("time", schedule.FromMinutes(schedule.Minutes(event.Minute)).String()),
	)
	if err := l.writer.Show(gpio.ColorFor(event.To)); err != nil {
		l.logger.Error("led write error", zap.Error(err))
	}
	l.metrics.ObserveTransition(event.To)
	if err := l.publisher.Publish(event); err != nil {
		l.logger.Warn("publish error", zap.Error(err))
	}
}

func (l loop) updateTracker(d *logic.Detector, weekday, minute int) {
	state, since := d.CurrentState()
	l.tracker.Update(state, since, weekday, minute, d.Counts())
}

func (l loop) refreshConnection() {
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
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
