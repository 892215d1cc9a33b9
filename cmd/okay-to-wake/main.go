// Command okay-to-wake drives an RGB wake-up light from a weekly schedule
// and accepts schedule updates over HTTP, MQTT, a polled URL or a watched file.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sweeney/okay-to-wake/internal/gpio"
	"github.com/sweeney/okay-to-wake/internal/ingest"
	"github.com/sweeney/okay-to-wake/internal/logging"
	"github.com/sweeney/okay-to-wake/internal/logic"
	"github.com/sweeney/okay-to-wake/internal/metrics"
	"github.com/sweeney/okay-to-wake/internal/mqtt"
	"github.com/sweeney/okay-to-wake/internal/parse"
	"github.com/sweeney/okay-to-wake/internal/source"
	"github.com/sweeney/okay-to-wake/internal/status"
	"github.com/sweeney/okay-to-wake/internal/store"
	"github.com/sweeney/okay-to-wake/internal/web"
)

var (
	configFilename string
	rootCmd        = cobra.Command{
		Use:          "okay-to-wake",
		Short:        "Wake-up light driven by a weekly schedule",
		RunE:         Main,
		SilenceUsage: true,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&configFilename, "config", "", "Configuration file")
	rootCmd.PersistentFlags().Bool("debug", false, "Log debug messages")
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	rootCmd.Flags().String("broker", "", "MQTT broker address (empty to disable)")
	_ = viper.BindPFlag("mqtt.broker", rootCmd.Flags().Lookup("broker"))
	rootCmd.Flags().String("http", "", "HTTP status address (empty to disable)")
	_ = viper.BindPFlag("http.addr", rootCmd.Flags().Lookup("http"))

	rootCmd.AddCommand(&validateCmd, &showCmd, &printStateCmd)
}

func initConfig() {
	if configFilename != "" {
		viper.SetConfigFile(configFilename)
	} else {
		viper.AddConfigPath("/etc/okay-to-wake/")
		viper.AddConfigPath("$HOME/.okay-to-wake")
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
	}

	setDefaults(viper.GetViper())

	viper.SetEnvPrefix("OKAY_TO_WAKE")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "failed to read config file: %v\n", err)
			os.Exit(1)
		}
	}
}

func newLogger(v *viper.Viper) (*zap.Logger, error) {
	level := "info"
	if v.GetBool("debug") {
		level = "debug"
	}
	return logging.New(level, v.GetString("log.format"))
}

// openStore picks redis when an address is configured, otherwise the
// backing image file.
func openStore(v *viper.Viper) (store.RecordStore, string) {
	if addr := v.GetString("storage.redis.addr"); addr != "" {
		return store.NewRedisStore(addr, v.GetString("storage.redis.key")), "redis://" + addr
	}
	path := v.GetString("storage.path")
	return store.NewFileStore(path, v.GetInt64("storage.offset")), path
}

// Main runs the daemon until SIGINT or SIGTERM.
func Main(_ *cobra.Command, _ []string) error {
	v := viper.GetViper()
	logger, err := newLogger(v)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(v, logger); err != nil {
		logger.Error("fatal", zap.Error(err))
		return err
	}
	return nil
}

func run(v *viper.Viper, logger *zap.Logger) error {
	tick := v.GetDuration("tick")
	heartbeat := v.GetDuration("heartbeat")
	if tick <= 0 {
		return fmt.Errorf("tick must be positive, got %v", tick)
	}
	loc, err := time.LoadLocation(v.GetString("clock.timezone"))
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Initialize LED, showing the boot color until the first classification
	writer := openWriter(v, logger)
	defer writer.Close()
	if err := writer.Show(gpio.Boot); err != nil {
		logger.Warn("failed to show boot color", zap.Error(err))
	}

	// Load the persisted schedule
	st, storageName := openStore(v)
	coord := ingest.New(st, logger.With(zap.String("component", "ingest")), m)
	boot, err := coord.Boot()
	if err != nil {
		logger.Error("failed to read stored schedule, using defaults", zap.Error(err))
	} else if boot.Corrupted {
		logger.Warn("stored schedule was corrupted, restored defaults")
	}

	broker := v.GetString("mqtt.broker")
	httpAddr := v.GetString("http.addr")
	tracker := status.NewTracker(time.Now(), status.Config{
		TickMs:      tick.Milliseconds(),
		HeartbeatMs: heartbeat.Milliseconds(),
		Timezone:    loc.String(),
		Broker:      broker,
		Topic:       v.GetString("mqtt.topic"),
		HTTPAddr:    httpAddr,
		Storage:     storageName,
		FetchURL:    v.GetString("fetch.url"),
		WatchPath:   v.GetString("watch.path"),
	})
	tracker.SetChecksum(coord.Active().Checksum)
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Initialize MQTT
	var publisher mqtt.Publisher = discardPublisher{}
	var mqttStatus mqtt.ConnectionStatus
	if broker != "" {
		client, err := mqtt.NewRealClient(mqtt.Config{
			Broker:   broker,
			ClientID: v.GetString("mqtt.client_id"),
			Prefix:   v.GetString("mqtt.topic"),
			OnSchedule: func(payload []byte, kind parse.Kind) {
				_, _ = coord.IngestFrom("mqtt", payload, kind)
			},
		}, logger)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer client.Close()
		publisher, mqttStatus = client, client
	}

	coord.Notify(scheduleObserver(tracker, publisher, mqttStatus, logger, time.Now))

	// Publish startup event with full status snapshot
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		logger.Warn("failed to publish startup event", zap.Error(err))
	}

	// Start HTTP status server
	if httpAddr != "" {
		srv := web.New(httpAddr, tracker, coord, reg, logger)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", zap.Error(err))
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info("http server listening", zap.String("addr", httpAddr))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := startSources(ctx, v, coord, logger, m); err != nil {
		return err
	}

	logger.Info("started",
		zap.Duration("tick", tick),
		zap.Duration("heartbeat", heartbeat),
		zap.String("timezone", loc.String()),
		zap.String("broker", broker),
		zap.String("storage", storageName),
	)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := loop{
		schedule:   coord,
		writer:     writer,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		metrics:    m,
		logger:     logger,
		location:   loc,
		heartbeat:  heartbeat,
	}
	return l.run(time.Now, ticker.C, sigCh)
}

// openWriter returns the LED writer, or a fake that only remembers colors
// when the GPIO chip is unavailable so the rest of the daemon still runs.
func openWriter(v *viper.Viper, logger *zap.Logger) gpio.Writer {
	pins := gpio.Pins{Red: v.GetInt("gpio.red"), Green: v.GetInt("gpio.green"), Blue: v.GetInt("gpio.blue")}
	w, err := gpio.NewRealWriter(v.GetString("gpio.chip"), pins)
	if err != nil {
		logger.Warn("gpio unavailable, LED output disabled", zap.Error(err))
		return gpio.NewFakeWriter()
	}
	return w
}

// startSources starts the URL poller and file watcher when configured. Both
// stop when ctx is cancelled.
func startSources(ctx context.Context, v *viper.Viper, ing source.Ingester, logger *zap.Logger, m *metrics.Metrics) error {
	if url := v.GetString("fetch.url"); url != "" {
		f, err := source.NewFetcher(url, v.GetString("fetch.kind"), v.GetDuration("fetch.timeout"))
		if err != nil {
			return fmt.Errorf("init fetch: %w", err)
		}
		p, err := source.NewPoller(f, ing, v.GetDuration("fetch.interval"), logger, m)
		if err != nil {
			return fmt.Errorf("init fetch: %w", err)
		}
		p.Start()
		go func() {
			<-ctx.Done()
			_ = p.Stop()
		}()
	}

	if path := v.GetString("watch.path"); path != "" {
		w, err := source.NewWatcher(path, ing, logger, m)
		if err != nil {
			return fmt.Errorf("init watch: %w", err)
		}
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}
	return nil
}

// scheduleObserver records every ingestion in the tracker and announces
// accepted changes on the system topic.
func scheduleObserver(tracker *status.Tracker, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, logger *zap.Logger, now func() time.Time) func(ingest.Report) {
	return func(r ingest.Report) {
		t := now()
		tracker.RecordIngest(r.Source, outcomeFor(r), r.Err, t)
		if r.Err != nil || !r.Result.Changed {
			return
		}
		tracker.SetChecksum(r.Result.Checksum)
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
		snap := tracker.Snapshot()
		event := mqtt.SystemEvent{
			Timestamp:  t,
			Event:      "SCHEDULE",
			Reason:     r.Source,
			RawPayload: status.FormatStatusEvent(snap, "SCHEDULE", r.Source),
		}
		if err := publisher.PublishSystem(event); err != nil {
			logger.Warn("failed to publish schedule event", zap.Error(err))
		}
	}
}

func outcomeFor(r ingest.Report) status.IngestOutcome {
	switch {
	case errors.Is(r.Err, ingest.ErrInvalid):
		return status.OutcomeRejected
	case r.Err != nil:
		return status.OutcomeFailed
	case r.Result.Changed:
		return status.OutcomeChanged
	default:
		return status.OutcomeUnchanged
	}
}

// discardPublisher stands in for MQTT when no broker is configured.
type discardPublisher struct{}

func (discardPublisher) Publish(logic.Event) error            { return nil }
func (discardPublisher) PublishSystem(mqtt.SystemEvent) error { return nil }
func (discardPublisher) Close() error                         { return nil }
