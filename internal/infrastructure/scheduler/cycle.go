package scheduler

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/resell/backoffice/internal/domain/channel"
	"github.com/resell/backoffice/internal/domain/shared"
)

// RunFunc executes one cycle run
type RunFunc func(ctx context.Context) error

// Cycle runs a job on an interval with a single-flight guard: at most one
// run is ever in flight, whether started by the timer or by a manual
// trigger. The settings store can override the interval and disable the
// cycle without a restart.
type Cycle struct {
	name            string
	defaultInterval time.Duration
	enabledKey      string
	intervalKey     string
	settings        channel.SettingsRepository
	run             RunFunc
	logger          *zap.Logger

	mu        sync.Mutex
	isRunning bool
	runCtx    context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	inFlight atomic.Bool
}

// NewCycle creates a Cycle. enabledKey and intervalKey may be empty when the
// cycle has no settings override.
func NewCycle(name string, defaultInterval time.Duration, enabledKey, intervalKey string, settings channel.SettingsRepository, run RunFunc, logger *zap.Logger) *Cycle {
	return &Cycle{
		name:            name,
		defaultInterval: defaultInterval,
		enabledKey:      enabledKey,
		intervalKey:     intervalKey,
		settings:        settings,
		run:             run,
		logger:          logger.Named("scheduler").With(zap.String("cycle", name)),
	}
}

// Start starts the interval loop
func (c *Cycle) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	ctx, cancel := context.WithCancel(ctx)
	c.runCtx = ctx
	c.cancel = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go c.loop(ctx)

	c.logger.Info("cycle started", zap.Duration("interval", c.defaultInterval))
	return nil
}

// Stop stops the loop and waits for an in-flight run to finish
func (c *Cycle) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("cycle stopped")
		return nil
	case <-ctx.Done():
		c.logger.Warn("cycle stop timed out")
		return ctx.Err()
	}
}

// TriggerNow starts one run immediately. It returns ErrAlreadyRunning when a
// run is already in flight; the run itself happens in the background under
// the cycle's lifecycle context, so it outlives the caller (an HTTP request
// context is dead as soon as the 202 is written) and is cancelled by Stop.
func (c *Cycle) TriggerNow() error {
	c.mu.Lock()
	running := c.isRunning
	runCtx := c.runCtx
	c.mu.Unlock()
	if !running {
		return ErrNotStarted
	}

	if !c.inFlight.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.inFlight.Store(false)
		c.execute(runCtx, "manual")
	}()
	return nil
}

// InFlight reports whether a run is currently executing
func (c *Cycle) InFlight() bool {
	return c.inFlight.Load()
}

// loop fires the cycle on its interval until the context is cancelled
func (c *Cycle) loop(ctx context.Context) {
	defer c.wg.Done()

	timer := time.NewTimer(c.interval(ctx))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if c.enabled(ctx) {
			if c.inFlight.CompareAndSwap(false, true) {
				c.execute(ctx, "timer")
				c.inFlight.Store(false)
			} else {
				c.logger.Debug("skipping tick, run already in flight")
			}
		}

		timer.Reset(c.interval(ctx))
	}
}

// execute runs the job once, containing panics
func (c *Cycle) execute(ctx context.Context, trigger string) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("cycle run panicked", zap.Any("panic", r))
		}
	}()

	started := time.Now()
	if err := c.run(ctx); err != nil {
		c.logger.Error("cycle run failed",
			zap.String("trigger", trigger),
			zap.Duration("duration", time.Since(started)),
			zap.Error(err),
		)
		return
	}
	c.logger.Debug("cycle run finished",
		zap.String("trigger", trigger),
		zap.Duration("duration", time.Since(started)),
	)
}

// enabled consults the settings toggle; a missing key means enabled
func (c *Cycle) enabled(ctx context.Context) bool {
	if c.enabledKey == "" {
		return true
	}
	raw, err := c.settings.Get(ctx, c.enabledKey)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			c.logger.Warn("failed to read enabled toggle", zap.Error(err))
		}
		return true
	}
	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		c.logger.Warn("unparseable enabled toggle", zap.String("value", raw))
		return true
	}
	return enabled
}

// interval returns the settings override when present, else the default
func (c *Cycle) interval(ctx context.Context) time.Duration {
	if c.intervalKey == "" {
		return c.defaultInterval
	}
	raw, err := c.settings.Get(ctx, c.intervalKey)
	if err != nil {
		return c.defaultInterval
	}
	interval, err := time.ParseDuration(raw)
	if err != nil || interval <= 0 {
		c.logger.Warn("unparseable interval override", zap.String("value", raw))
		return c.defaultInterval
	}
	return interval
}
