package source

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/sweeney/okay-to-wake/internal/metrics"
)

// Poller fetches the schedule immediately on Start and then every interval.
// Failures are logged and counted; the active schedule is left as it was.
type Poller struct {
	scheduler gocron.Scheduler
	fetcher   *Fetcher
	ingester  Ingester
	logger    *zap.Logger
	metrics   *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
}

// NewPoller schedules fetches of f every interval. m may be nil.
func NewPoller(f *Fetcher, ing Ingester, interval time.Duration, logger *zap.Logger, m *metrics.Metrics) (*Poller, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", interval)
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Poller{
		scheduler: s,
		fetcher:   f,
		ingester:  ing,
		logger:    logger.With(zap.String("component", "poller")),
		metrics:   m,
		ctx:       ctx,
		cancel:    cancel,
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { p.Poll(p.ctx) }),
		gocron.WithName("schedule-fetch"),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		s.Shutdown()
		return nil, fmt.Errorf("failed to create fetch job: %w", err)
	}
	return p, nil
}

// Start begins polling.
func (p *Poller) Start() {
	p.logger.Info("starting schedule poller", zap.String("url", p.fetcher.URL()))
	p.scheduler.Start()
}

// Stop cancels any fetch in flight and shuts the scheduler down.
func (p *Poller) Stop() error {
	p.cancel()
	return p.scheduler.Shutdown()
}

// Poll fetches once and hands the payload to the ingester.
func (p *Poller) Poll(ctx context.Context) error {
	payload, kind, err := p.fetcher.Fetch(ctx)
	if err != nil {
		p.metrics.ObserveSourceError(NameFetch)
		p.logger.Warn("schedule fetch failed", zap.Error(err))
		return err
	}

	res, err := p.ingester.IngestFrom(NameFetch, payload, kind)
	if err != nil {
		p.logger.Warn("fetched schedule not applied", zap.Error(err))
		return err
	}
	if res.Changed {
		p.logger.Info("fetched schedule applied", zap.String("checksum", fmt.Sprintf("%08x", res.Checksum)))
	}
	return nil
}
