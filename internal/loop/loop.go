// Package loop drives the event manager from a fixed-rate clock. Inputs
// posted from other goroutines are queued and applied on the tick goroutine
// at the start of the next tick, in the order they were posted.
package loop

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tsani/sixteen-fifty/internal/script/command"
)

var (
	// ErrInboxFull is returned by Post when the tick's input limit is reached.
	ErrInboxFull = errors.New("input queue full")
	// ErrStarted is returned by Start on a loop that was already started.
	ErrStarted = errors.New("loop already started")
)

// Target is stepped once per tick.
type Target interface {
	Tick(t command.Tick) bool
}

// Config configures a Loop.
type Config struct {
	// TickRate is the fixed time between ticks, also used as each tick's
	// delta. Defaults to 60 ticks per second.
	TickRate time.Duration
	// MaxInputsPerTick bounds the inbox. Defaults to 64.
	MaxInputsPerTick int
}

// Loop is a fixed-rate tick source.
type Loop struct {
	target   Target
	logger   *zap.Logger
	tickRate time.Duration

	mu      sync.Mutex
	inbox   []func()
	tickNum uint64

	// held for the whole of a tick so Advance and the clock never overlap
	tickMu sync.Mutex

	started bool
	cancel  context.CancelFunc
	stopped chan struct{}
}

// New creates a stopped loop stepping target.
func New(target Target, cfg Config, logger *zap.Logger) *Loop {
	if cfg.TickRate <= 0 {
		cfg.TickRate = time.Second / 60
	}
	if cfg.MaxInputsPerTick <= 0 {
		cfg.MaxInputsPerTick = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		target:   target,
		logger:   logger,
		tickRate: cfg.TickRate,
		inbox:    make([]func(), 0, cfg.MaxInputsPerTick),
		stopped:  make(chan struct{}),
	}
}

// TickRate returns the time between ticks.
func (l *Loop) TickRate() time.Duration { return l.tickRate }

// Post queues fn to run on the tick goroutine before the next step. It is
// safe to call from any goroutine.
func (l *Loop) Post(fn func()) error {
	if fn == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.inbox) >= cap(l.inbox) {
		return ErrInboxFull
	}
	l.inbox = append(l.inbox, fn)
	return nil
}

// TickNumber returns the number of ticks run so far.
func (l *Loop) TickNumber() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tickNum
}

// Advance runs one tick synchronously with the given delta: queued inputs
// first, then one step of the target.
func (l *Loop) Advance(delta time.Duration) command.Tick {
	l.tickMu.Lock()
	defer l.tickMu.Unlock()

	l.mu.Lock()
	inputs := l.inbox
	l.inbox = make([]func(), 0, cap(inputs))
	l.tickNum++
	t := command.Tick{Number: l.tickNum, Delta: delta}
	l.mu.Unlock()

	for _, apply := range inputs {
		apply()
	}
	l.target.Tick(t)
	return t
}

// Start runs the clock on a new goroutine until ctx is cancelled or Stop is
// called.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return ErrStarted
	}
	l.started = true
	ctx, l.cancel = context.WithCancel(ctx)
	l.mu.Unlock()

	go l.run(ctx)
	l.logger.Info("tick loop started", zap.Duration("tick_rate", l.tickRate))
	return nil
}

// Stop halts the clock and waits for the current tick to finish. Stopping a
// loop that never started is a no-op.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-l.stopped
}

// Done is closed once the clock goroutine has exited.
func (l *Loop) Done() <-chan struct{} {
	return l.stopped
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.stopped)
	ticker := time.NewTicker(l.tickRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("tick loop stopped", zap.Uint64("ticks", l.TickNumber()))
			return
		case <-ticker.C:
			l.tick()
		}
	}
}

func (l *Loop) tick() {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("panic during tick",
				zap.Uint64("tick", l.TickNumber()),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			panic(r)
		}
	}()
	l.Advance(l.tickRate)
}
