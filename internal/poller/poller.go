package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ordercast/ordercast/internal/model"
	"github.com/ordercast/ordercast/internal/source"
	"github.com/ordercast/ordercast/internal/store"
)

// ChangeHandler receives adopted snapshots when the signature changes.
type ChangeHandler interface {
	HandleChange(snap *model.Snapshot)
}

// ChangeHandlerFunc is a function adapter for ChangeHandler.
type ChangeHandlerFunc func(*model.Snapshot)

func (f ChangeHandlerFunc) HandleChange(s *model.Snapshot) {
	f(s)
}

// Config holds poller configuration.
type Config struct {
	Interval time.Duration // Poll cadence (default: 5s)
	Timeout  time.Duration // Per-cycle fetch deadline (default: 20s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 5 * time.Second,
		Timeout:  20 * time.Second,
	}
}

// Poller periodically fetches the dataset and detects changes.
type Poller struct {
	cfg     Config
	src     source.Provider
	store   *store.Store
	handler ChangeHandler
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// inFlight guards against overlapping cycles when a fetch outlasts
	// the interval.
	inFlight atomic.Bool

	cycles atomic.Int64
	errs   atomic.Int64
}

// New creates a new Poller.
func New(cfg Config, src source.Provider, st *store.Store, handler ChangeHandler, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Poller{
		cfg:     cfg,
		src:     src,
		store:   st,
		handler: handler,
		logger:  logger,
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("poller started",
		"interval", p.cfg.Interval,
		"timeout", p.cfg.Timeout,
		"source", p.src.Name(),
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("poller stopped",
			"cycles", p.cycles.Load(),
			"errors", p.errs.Load(),
		)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the main polling loop. Poll immediately on start, then on every
// tick.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.pollOnce()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce()
		}
	}
}

// pollOnce runs a single fetch/compare/broadcast cycle. Single-flight:
// a cycle still running when the next tick fires wins, the tick loses.
func (p *Poller) pollOnce() {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.logger.Debug("previous cycle still in flight, skipping tick")
		return
	}
	defer p.inFlight.Store(false)

	p.cycles.Add(1)
	start := time.Now()

	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	orders, err := p.src.Fetch(ctx)
	if err != nil {
		// Contained: log and leave the previous snapshot authoritative.
		p.errs.Add(1)
		p.logger.Warn("poll cycle failed",
			"err", err,
			"timeout", source.IsTimeout(err),
			"duration", time.Since(start),
		)
		return
	}

	seeded := p.store.Seeded()
	changed := p.store.Replace(orders)

	switch {
	case !seeded:
		// First successful fetch after a cold start: adopt silently,
		// there are no subscribers expecting a delta.
		p.logger.Info("seeded initial snapshot",
			"orders", len(orders),
			"signature", p.store.Signature(),
			"duration", time.Since(start),
		)
	case changed:
		snap := p.store.Current()
		if p.handler != nil {
			p.handler.HandleChange(snap)
		}
		p.logger.Info("change detected",
			"orders", len(snap.Orders),
			"signature", snap.Signature,
			"duration", time.Since(start),
		)
	default:
		p.logger.Debug("poll cycle complete, no change",
			"orders", len(orders),
			"duration", time.Since(start),
		)
	}
}
