package persist

import (
	"context"
	"errors"
	"time"

	"github.com/bassista/go_persist/internal/logger"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrInvalidInterval is returned for negative persist intervals.
var ErrInvalidInterval = errors.New("persist interval must not be negative")

type loopConfig struct {
	finalFlush bool
	skipClean  bool
}

// LoopOption tunes interval persistence.
type LoopOption func(*loopConfig)

// WithFinalFlush persists once more when the loop's context is cancelled.
// The result of that flush becomes the loop's result.
func WithFinalFlush() LoopOption {
	return func(c *loopConfig) { c.finalFlush = true }
}

// SkipClean skips ticks, and the final flush, when the value has not changed
// since it was last persisted or loaded.
func SkipClean() LoopOption {
	return func(c *loopConfig) { c.skipClean = true }
}

// Persist writes the value to the location.
//
// With a zero interval it persists exactly once and returns. With a positive
// interval it persists immediately and then on every tick, holding the read
// lock only while encoding. The loop ends when ctx is cancelled (returning
// nil, or the final flush result) or when a persist fails, in which case that
// error is returned and nothing is retried. Run it on its own goroutine, or
// use StartPersisting.
func (s *Shared[T]) Persist(ctx context.Context, interval time.Duration, opts ...LoopOption) error {
	if interval < 0 {
		return ErrInvalidInterval
	}
	if interval == 0 {
		return s.persistOnce(ctx)
	}

	var cfg loopConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return s.runLoop(ctx, interval, cfg, uuid.NewString())
}

func (s *Shared[T]) runLoop(ctx context.Context, interval time.Duration, cfg loopConfig, id string) error {
	log := logger.WithLocation("persist", s.location).WithField("loop", id)
	log.Debugf("persistence loop running with interval: %v", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return s.stopLoop(ctx, cfg, log)
		}

		if cfg.skipClean && !s.IsDirty() {
			log.Trace("value is clean, skipping persist")
		} else if err := s.persistOnce(ctx); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return s.stopLoop(ctx, cfg, log)
			}
			log.Debugf("persistence loop aborted: %v", err)
			return err
		} else {
			log.Trace("value persisted")
		}

		select {
		case <-ctx.Done():
			return s.stopLoop(ctx, cfg, log)
		case <-ticker.C:
		}
	}
}

func (s *Shared[T]) stopLoop(ctx context.Context, cfg loopConfig, log *logrus.Entry) error {
	if !cfg.finalFlush || (cfg.skipClean && !s.IsDirty()) {
		log.Debug("persistence loop stopped")
		return nil
	}
	err := s.persistOnce(context.WithoutCancel(ctx))
	log.Debugf("persistence loop stopped after final flush (err=%v)", err)
	return err
}

// Loop is a persistence loop running on its own goroutine.
type Loop struct {
	id       string
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
	err      error
}

// StartPersisting runs Persist on a new goroutine and returns its handle.
// Cancel ctx or call Stop to end it.
func (s *Shared[T]) StartPersisting(ctx context.Context, interval time.Duration, opts ...LoopOption) *Loop {
	ctx, cancel := context.WithCancel(ctx)
	l := &Loop{
		id:       uuid.NewString(),
		interval: interval,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	var cfg loopConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	go func() {
		defer close(l.done)
		defer cancel()
		switch {
		case interval < 0:
			l.err = ErrInvalidInterval
		case interval == 0:
			l.err = s.persistOnce(ctx)
		default:
			l.err = s.runLoop(ctx, interval, cfg, l.id)
		}
	}()
	return l
}

func (l *Loop) ID() string { return l.id }

func (l *Loop) Interval() time.Duration { return l.interval }

// Done is closed when the loop has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Running reports whether the loop has not returned yet.
func (l *Loop) Running() bool {
	select {
	case <-l.done:
		return false
	default:
		return true
	}
}

// Err returns the loop's result once Done is closed, nil before.
func (l *Loop) Err() error {
	select {
	case <-l.done:
		return l.err
	default:
		return nil
	}
}

// Wait blocks until the loop returns and reports its result.
func (l *Loop) Wait() error {
	<-l.done
	return l.err
}

// Stop cancels the loop, waits for it and reports its result.
func (l *Loop) Stop() error {
	l.cancel()
	return l.Wait()
}
