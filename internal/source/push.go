package source

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/kitchenboard/internal/board"
	"github.com/appetiteclub/kitchenboard/pkg"
	"github.com/appetiteclub/kitchenboard/pkg/event"
)

// StatusReporter is implemented by subscribers that report transport
// disconnects and reconnects.
type StatusReporter interface {
	Status() <-chan pkg.ConnStatus
}

type PushConfig struct {
	Topic string
	// StaleAfter ends the run when the transport stays down longer. Zero waits forever.
	StaleAfter time.Duration
	Buffer     int
}

// PushSource forwards server-pushed kitchen events. It takes a fresh
// snapshot on start and after every reconnect before forwarding incremental
// events.
type PushSource struct {
	subscriber  events.Subscriber
	snapshotter Snapshotter
	cfg         PushConfig
	logger      apt.Logger
}

func NewPushSource(subscriber events.Subscriber, snapshotter Snapshotter, cfg PushConfig, logger apt.Logger) *PushSource {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if cfg.Topic == "" {
		cfg.Topic = event.KitchenBoardTopic
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	return &PushSource{
		subscriber:  subscriber,
		snapshotter: snapshotter,
		cfg:         cfg,
		logger:      logger.With("source", "push", "topic", cfg.Topic),
	}
}

func (p *PushSource) Name() string {
	return string(StrategyPush)
}

func (p *PushSource) Run(ctx context.Context, sink Sink) error {
	if p.subscriber == nil || p.snapshotter == nil {
		return ErrNoSource
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	incoming := make(chan []byte, p.cfg.Buffer)
	handler := func(_ context.Context, data []byte) error {
		select {
		case incoming <- data:
			return nil
		case <-runCtx.Done():
			return runCtx.Err()
		}
	}

	if err := p.subscriber.Subscribe(runCtx, p.cfg.Topic, handler); err != nil {
		return fmt.Errorf("subscribe %s: %w", p.cfg.Topic, err)
	}

	var status <-chan pkg.ConnStatus
	if r, ok := p.subscriber.(StatusReporter); ok {
		status = r.Status()
	}

	if err := p.resync(ctx, sink); err != nil {
		return err
	}
	p.logger.Info("push source live")

	var stale <-chan time.Time
	var staleTimer *time.Timer
	defer func() {
		if staleTimer != nil {
			staleTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-stale:
			return ErrPushStale

		case st := <-status:
			if !st.Connected {
				err := st.Err
				if err == nil {
					err = fmt.Errorf("push transport disconnected")
				}
				p.logger.Error("push transport disconnected", "error", err)
				sink.Degraded(err)
				if p.cfg.StaleAfter > 0 && staleTimer == nil {
					staleTimer = time.NewTimer(p.cfg.StaleAfter)
					stale = staleTimer.C
				}
				continue
			}

			if staleTimer != nil {
				staleTimer.Stop()
				staleTimer, stale = nil, nil
			}
			p.logger.Info("push transport reconnected, resyncing")
			if err := p.resync(ctx, sink); err != nil {
				return err
			}
			sink.Degraded(nil)

		case data := <-incoming:
			evt, err := event.Decode(data)
			if err != nil {
				board.EventsDropped.WithLabelValues(board.DropReasonDecode).Inc()
				p.logger.Error("dropping undecodable kitchen event", "error", err)
				continue
			}
			if err := sink.Emit(ctx, evt); err != nil {
				return err
			}
		}
	}
}

func (p *PushSource) resync(ctx context.Context, sink Sink) error {
	snap, err := p.snapshotter.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("push snapshot: %w", err)
	}
	return sink.Emit(ctx, snap)
}
