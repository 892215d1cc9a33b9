// Package ingest owns the active schedule. It is the only path that writes
// the persisted record or replaces the schedule the classifier reads.
package ingest

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/sweeney/okay-to-wake/internal/logic"
	"github.com/sweeney/okay-to-wake/internal/metrics"
	"github.com/sweeney/okay-to-wake/internal/parse"
	"github.com/sweeney/okay-to-wake/internal/schedule"
	"github.com/sweeney/okay-to-wake/internal/store"
)

var (
	// ErrInvalid wraps a parse.Error: the payload was rejected.
	ErrInvalid = errors.New("invalid schedule")
	// ErrPersist wraps a storage failure or a failed read-back.
	ErrPersist = errors.New("persist schedule")
)

// Result describes a successful ingestion.
type Result struct {
	Changed  bool
	Checksum uint32
}

// BootResult describes how the active schedule was obtained at startup.
type BootResult struct {
	Corrupted bool
	Checksum  uint32
}

// Report describes one ingestion, for observers registered with Notify.
type Report struct {
	Source string
	Kind   parse.Kind
	Result Result
	Err    error
}

// Coordinator holds the active schedule and the record store behind it.
// Active and Classify never block; ingestions are serialized.
type Coordinator struct {
	store   store.RecordStore
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	active atomic.Pointer[schedule.Week]

	obsMu     sync.RWMutex
	observers []func(Report)
}

// New returns a Coordinator whose active schedule is DefaultWeek until Boot
// is called. m may be nil.
func New(st store.RecordStore, logger *zap.Logger, m *metrics.Metrics) *Coordinator {
	c := &Coordinator{store: st, logger: logger, metrics: m}
	c.swap(schedule.DefaultWeek())
	return c
}

// Boot loads the persisted record. A corrupted record is replaced by
// DefaultWeek, which is written back. If the store cannot be read the
// defaults stay active and the error is returned.
func (c *Coordinator) Boot() (BootResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, err := c.store.ReadRecord()
	if err != nil {
		def := schedule.DefaultWeek()
		c.swap(def)
		c.logger.Error("failed to read schedule, using defaults", zap.Error(err))
		return BootResult{Checksum: def.Checksum}, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	w, corrupted := schedule.Load(rec)
	if !corrupted {
		c.swap(w)
		c.logger.Info("loaded schedule from storage", zap.String("checksum", checksumString(w.Checksum)))
		return BootResult{Checksum: w.Checksum}, nil
	}

	c.logger.Warn("checksum mismatch, restoring default schedule",
		zap.String("stored", checksumString(w.Checksum)),
		zap.String("computed", checksumString(schedule.Checksum(w.Days))),
	)
	def := schedule.DefaultWeek()
	if err := c.commit(def); err != nil {
		c.swap(def)
		c.logger.Error("failed to persist default schedule", zap.Error(err))
		return BootResult{Corrupted: true, Checksum: def.Checksum}, err
	}
	return BootResult{Corrupted: true, Checksum: def.Checksum}, nil
}

// Ingest parses payload as kind and, if it differs from the active
// schedule, persists it and makes the read-back copy active. On any error
// the active schedule is unchanged.
func (c *Coordinator) Ingest(payload []byte, kind parse.Kind) (Result, error) {
	candidate, err := parse.Parse(kind, payload)
	if err != nil {
		c.metrics.ObserveIngest(string(kind), metrics.ResultInvalid)
		c.logger.Warn("rejected schedule", zap.String("kind", string(kind)), zap.Error(err))
		return Result{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if candidate.Checksum == c.active.Load().Checksum {
		c.metrics.ObserveIngest(string(kind), metrics.ResultUnchanged)
		c.logger.Debug("received schedule matches stored schedule", zap.String("checksum", checksumString(candidate.Checksum)))
		return Result{Checksum: candidate.Checksum}, nil
	}

	if err := c.commit(candidate); err != nil {
		c.metrics.ObserveIngest(string(kind), metrics.ResultPersist)
		c.logger.Error("failed to save schedule", zap.Error(err))
		return Result{}, err
	}
	c.metrics.ObserveIngest(string(kind), metrics.ResultChanged)
	c.logger.Info("saved new schedule", zap.String("kind", string(kind)), zap.String("checksum", checksumString(candidate.Checksum)))
	return Result{Changed: true, Checksum: candidate.Checksum}, nil
}

// Notify registers fn to be called after every IngestFrom, on the
// ingesting goroutine.
func (c *Coordinator) Notify(fn func(Report)) {
	c.obsMu.Lock()
	c.observers = append(c.observers, fn)
	c.obsMu.Unlock()
}

// IngestFrom is Ingest for a named source (http, mqtt, fetch, file). The
// outcome is passed to every registered observer.
func (c *Coordinator) IngestFrom(source string, payload []byte, kind parse.Kind) (Result, error) {
	res, err := c.Ingest(payload, kind)

	c.obsMu.RLock()
	observers := c.observers
	c.obsMu.RUnlock()
	for _, fn := range observers {
		fn(Report{Source: source, Kind: kind, Result: res, Err: err})
	}
	return res, err
}

// commit writes w, reads it back and swaps in the read-back copy if it
// verifies. Callers hold c.mu.
func (c *Coordinator) commit(w schedule.Week) error {
	rec := schedule.Encode(w)
	if err := c.store.WriteRecord(rec[:]); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	c.metrics.ObserveWrite()

	back, err := c.store.ReadRecord()
	if err != nil {
		return fmt.Errorf("%w: read back: %w", ErrPersist, err)
	}
	loaded, corrupted := schedule.Load(back)
	if corrupted {
		return fmt.Errorf("%w: read back: %w", ErrPersist, schedule.ErrChecksum)
	}
	if loaded.Checksum != w.Checksum {
		return fmt.Errorf("%w: read back checksum %s, wrote %s", ErrPersist, checksumString(loaded.Checksum), checksumString(w.Checksum))
	}
	c.swap(loaded)
	return nil
}

func (c *Coordinator) swap(w schedule.Week) {
	c.active.Store(&w)
	c.metrics.SetChecksum(w.Checksum)
}

// Active returns a copy of the active schedule.
func (c *Coordinator) Active() schedule.Week {
	return *c.active.Load()
}

// Classify returns the state for minute now on the given Monday-based weekday.
func (c *Coordinator) Classify(now schedule.Minutes, weekday int) logic.State {
	return logic.Classify(now, c.active.Load().Day(weekday))
}

// FormatSchedule returns the diagnostic dump of the active schedule.
func (c *Coordinator) FormatSchedule() string {
	return schedule.Format(c.Active())
}

func checksumString(sum uint32) string {
	return fmt.Sprintf("%08x", sum)
}
