package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/kitchenboard/internal/board"
)

// Activator opens a fresh board generation for a source run. Events of
// earlier generations are ignored from then on.
type Activator interface {
	Activate(ctx context.Context, name string) (Sink, error)
}

type runnerActivator struct {
	runner *board.Runner
}

// RunnerActivator activates sources on a board runner.
func RunnerActivator(r *board.Runner) Activator {
	return runnerActivator{runner: r}
}

func (a runnerActivator) Activate(ctx context.Context, name string) (Sink, error) {
	gen, err := a.runner.Begin(ctx, name)
	if err != nil {
		return nil, err
	}
	return gen, nil
}

type FeedConfig struct {
	Strategy   Strategy
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// Feed keeps exactly one source feeding the board.
type Feed struct {
	push      Source
	poll      Source
	activator Activator
	cfg       FeedConfig
	logger    apt.Logger
}

func NewFeed(cfg FeedConfig, push, poll Source, activator Activator, logger apt.Logger) (*Feed, error) {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if activator == nil {
		return nil, errors.New("feed needs an activator")
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = time.Second
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = 30 * time.Second
	}

	switch cfg.Strategy {
	case StrategyPush:
		if push == nil {
			return nil, fmt.Errorf("strategy %s: push %w", cfg.Strategy, ErrNoSource)
		}
	case StrategyPoll:
		if poll == nil {
			return nil, fmt.Errorf("strategy %s: poll %w", cfg.Strategy, ErrNoSource)
		}
	case StrategyAuto:
		if push == nil || poll == nil {
			return nil, fmt.Errorf("strategy %s needs push and poll: %w", cfg.Strategy, ErrNoSource)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, cfg.Strategy)
	}

	return &Feed{
		push:      push,
		poll:      poll,
		activator: activator,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// Run drives the configured strategy until ctx is done.
func (f *Feed) Run(ctx context.Context) error {
	f.logger.Info("starting kitchen feed", "strategy", f.cfg.Strategy)

	switch f.cfg.Strategy {
	case StrategyPoll:
		return f.retry(ctx, f.poll)
	case StrategyPush:
		return f.retry(ctx, f.push)
	default:
		return f.auto(ctx)
	}
}

// retry reruns src with backoff whenever it fails.
func (f *Feed) retry(ctx context.Context, src Source) error {
	backoff := f.cfg.MinBackoff
	for {
		err := f.runSource(ctx, src)
		if done, stopErr := f.stopped(ctx, err); done {
			return stopErr
		}

		f.logger.Error("source failed", "source", src.Name(), "error", err, "retry_in", backoff)
		if !sleep(ctx, backoff) {
			return ctx.Err()
		}
		backoff = f.next(backoff)
	}
}

// auto runs push, falling back to poll for a backoff window whenever push fails.
func (f *Feed) auto(ctx context.Context) error {
	backoff := f.cfg.MinBackoff
	for {
		started := time.Now()
		err := f.runSource(ctx, f.push)
		if done, stopErr := f.stopped(ctx, err); done {
			return stopErr
		}
		if time.Since(started) > f.cfg.MaxBackoff {
			backoff = f.cfg.MinBackoff
		}

		f.logger.Error("push source failed, falling back to polling", "error", err, "retry_push_in", backoff)

		pollCtx, cancel := context.WithTimeout(ctx, backoff)
		err = f.runSource(pollCtx, f.poll)
		cancel()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, board.ErrRunnerStopped) {
			return err
		}
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			f.logger.Error("fallback poll source failed", "error", err)
		}

		backoff = f.next(backoff)
	}
}

func (f *Feed) runSource(ctx context.Context, src Source) error {
	sink, err := f.activator.Activate(ctx, src.Name())
	if err != nil {
		return err
	}
	return src.Run(ctx, sink)
}

func (f *Feed) stopped(ctx context.Context, err error) (bool, error) {
	if ctx.Err() != nil {
		return true, ctx.Err()
	}
	if errors.Is(err, board.ErrRunnerStopped) {
		return true, err
	}
	return false, nil
}

func (f *Feed) next(backoff time.Duration) time.Duration {
	backoff *= 2
	if backoff > f.cfg.MaxBackoff {
		backoff = f.cfg.MaxBackoff
	}
	return backoff
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
