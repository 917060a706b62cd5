package source

import (
	"context"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/kitchenboard/pkg/event"
)

// PollSource emits a BOARD_SNAPSHOT per tick. A fetch still running when the
// next tick fires is abandoned and its result discarded.
type PollSource struct {
	snapshotter Snapshotter
	interval    time.Duration
	timeout     time.Duration
	logger      apt.Logger
}

// NewPollSource creates a poll source. A non-positive timeout means one interval.
func NewPollSource(snapshotter Snapshotter, interval, timeout time.Duration, logger apt.Logger) *PollSource {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if timeout <= 0 || timeout > interval {
		timeout = interval
	}
	return &PollSource{
		snapshotter: snapshotter,
		interval:    interval,
		timeout:     timeout,
		logger:      logger.With("source", "poll"),
	}
}

func (p *PollSource) Name() string {
	return string(StrategyPoll)
}

type pollResult struct {
	seq  uint64
	snap event.BoardSnapshot
	err  error
}

func (p *PollSource) Run(ctx context.Context, sink Sink) error {
	if p.snapshotter == nil {
		return ErrNoSource
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan pollResult)
	var seq uint64
	cancelFetch := context.CancelFunc(func() {})
	defer func() { cancelFetch() }()

	fetch := func() {
		cancelFetch()
		seq++
		fetchCtx, fetchCancel := context.WithTimeout(runCtx, p.timeout)
		cancelFetch = fetchCancel

		go func(n uint64) {
			snap, err := p.snapshotter.Snapshot(fetchCtx)
			select {
			case results <- pollResult{seq: n, snap: snap, err: err}:
			case <-runCtx.Done():
			}
		}(seq)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("polling kitchen board", "interval", p.interval, "timeout", p.timeout)
	fetch()

	degraded := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			fetch()

		case res := <-results:
			if res.seq != seq {
				p.logger.Debug("discarding superseded poll result", "seq", res.seq, "current", seq)
				continue
			}
			if res.err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				p.logger.Error("kitchen board poll failed", "error", res.err)
				sink.Degraded(res.err)
				degraded = true
				continue
			}

			if err := sink.Emit(ctx, res.snap); err != nil {
				return err
			}
			if degraded {
				sink.Degraded(nil)
				degraded = false
			}
		}
	}
}
