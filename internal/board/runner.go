package board

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/kitchenboard/pkg/event"
)

// ErrRunnerStopped is returned to sources emitting after the runner is gone.
var ErrRunnerStopped = errors.New("board runner stopped")

// RunnerConfig tunes the runner. Zero values pick defaults.
type RunnerConfig struct {
	QueueSize       int
	Retention       time.Duration
	PruneEvery      time.Duration
	HighlightWindow time.Duration
}

// Health describes the feed currently driving the board.
type Health struct {
	Source           string    `json:"source"`
	Generation       uint64    `json:"generation"`
	AwaitingSnapshot bool      `json:"awaitingSnapshot"`
	Degraded         string    `json:"degraded,omitempty"`
	SyncedAt         time.Time `json:"syncedAt"`
}

// Stale reports whether the board may lag behind the kitchen.
func (h Health) Stale() bool {
	return h.AwaitingSnapshot || h.Degraded != ""
}

type envelopeKind int

const (
	kindEvent envelopeKind = iota
	kindBegin
	kindHealth
)

type envelope struct {
	kind   envelopeKind
	gen    uint64
	source string
	evt    event.KitchenSourceEvent
	err    error
}

// Runner is the only writer of a Board. Events from the active source are
// queued and applied one at a time in receipt order.
type Runner struct {
	board       *Board
	broadcaster *Broadcaster
	cfg         RunnerConfig
	logger      apt.Logger

	in      chan envelope
	done    chan struct{}
	nextGen atomic.Uint64
	started atomic.Bool

	mu     sync.RWMutex
	health Health
}

// NewRunner creates a runner for board. broadcaster may be nil.
func NewRunner(board *Board, broadcaster *Broadcaster, cfg RunnerConfig, logger apt.Logger) *Runner {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.PruneEvery <= 0 {
		cfg.PruneEvery = 15 * time.Second
	}
	if cfg.HighlightWindow <= 0 {
		cfg.HighlightWindow = 10 * time.Second
	}
	return &Runner{
		board:       board,
		broadcaster: broadcaster,
		cfg:         cfg,
		logger:      logger,
		in:          make(chan envelope, cfg.QueueSize),
		done:        make(chan struct{}),
		health:      Health{AwaitingSnapshot: true},
	}
}

// Board returns the board the runner writes to.
func (r *Runner) Board() *Board {
	return r.board
}

// Run applies queued events until ctx is done. It may only be called once.
func (r *Runner) Run(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return errors.New("board runner already started")
	}
	defer close(r.done)

	prune := time.NewTicker(r.cfg.PruneEvery)
	defer prune.Stop()

	var current uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case now := <-prune.C:
			for _, id := range r.board.Prune(now, r.cfg.Retention) {
				r.publish(event.TicketRemove{ID: id}, ChangeRemoved)
			}
			TicketsOnBoard.Set(float64(r.board.Len()))

		case env := <-r.in:
			// select picks among ready cases at random; nothing is applied after teardown.
			if err := ctx.Err(); err != nil {
				return err
			}
			switch env.kind {
			case kindBegin:
				current = env.gen
				r.setHealth(func(h *Health) {
					*h = Health{Source: env.source, Generation: env.gen, AwaitingSnapshot: true, SyncedAt: h.SyncedAt}
				})
				SourceGenerations.WithLabelValues(env.source).Inc()
				r.logger.Info("board source activated", "source", env.source, "generation", env.gen)

			case kindHealth:
				if env.gen != current {
					continue
				}
				r.setDegraded(env.err)

			case kindEvent:
				if env.gen != current {
					EventsDropped.WithLabelValues(DropReasonStaleGeneration).Inc()
					continue
				}
				r.apply(env.evt)
			}
		}
	}
}

func (r *Runner) apply(evt event.KitchenSourceEvent) {
	if r.Health().AwaitingSnapshot {
		switch evt.(type) {
		case event.TicketUpsert, event.TicketRemove:
			EventsDropped.WithLabelValues(DropReasonAwaitSnapshot).Inc()
			r.logger.Debug("dropping incremental event before snapshot", "type", evt.Type())
			return
		}
	}

	change, err := r.board.Apply(evt)
	if err != nil {
		EventsDropped.WithLabelValues(DropReasonApply).Inc()
		r.logger.Error("cannot apply kitchen event", "error", err)
		return
	}

	EventsApplied.WithLabelValues(string(evt.Type()), change.String()).Inc()
	TicketsOnBoard.Set(float64(r.board.Len()))

	if _, ok := evt.(event.BoardSnapshot); ok {
		syncedAt := r.board.SyncedAt()
		r.setHealth(func(h *Health) {
			h.AwaitingSnapshot = false
			h.Degraded = ""
			h.SyncedAt = syncedAt
		})
		SourceDegraded.Set(0)
	}

	if change != ChangeNone {
		r.publish(evt, change)
	}
}

func (r *Runner) publish(evt event.KitchenSourceEvent, change Change) {
	if r.broadcaster != nil {
		r.broadcaster.Broadcast(Update{Event: evt, Change: change})
	}
}

func (r *Runner) setDegraded(err error) {
	if err == nil {
		r.setHealth(func(h *Health) { h.Degraded = "" })
		SourceDegraded.Set(0)
		return
	}
	r.setHealth(func(h *Health) { h.Degraded = err.Error() })
	SourceDegraded.Set(1)
}

func (r *Runner) setHealth(fn func(h *Health)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.health)
}

// Health returns the state of the active feed.
func (r *Runner) Health() Health {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.health
}

// View returns the board for rendering, marked stale when the feed lags.
func (r *Runner) View() View {
	v := r.board.View(r.cfg.HighlightWindow)
	v.Stale = r.Health().Stale()
	return v
}

// Begin opens a new generation for the source called name. From then on
// events of earlier generations are discarded and incremental ticket events
// are ignored until the new generation delivers a snapshot.
func (r *Runner) Begin(ctx context.Context, name string) (*Generation, error) {
	gen := r.nextGen.Add(1)
	if err := r.send(ctx, envelope{kind: kindBegin, gen: gen, source: name}); err != nil {
		return nil, err
	}
	return &Generation{runner: r, gen: gen, name: name}, nil
}

func (r *Runner) send(ctx context.Context, env envelope) error {
	select {
	case <-r.done:
		return ErrRunnerStopped
	default:
	}

	select {
	case r.in <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return ErrRunnerStopped
	}
}

// Generation is the handle a single source run emits through.
type Generation struct {
	runner *Runner
	gen    uint64
	name   string
}

// ID returns the generation number.
func (g *Generation) ID() uint64 {
	return g.gen
}

// Emit queues evt for the board.
func (g *Generation) Emit(ctx context.Context, evt event.KitchenSourceEvent) error {
	if evt == nil {
		return event.ErrMissingField
	}
	return g.runner.send(ctx, envelope{kind: kindEvent, gen: g.gen, evt: evt})
}

// Degraded marks the feed as failing (err != nil) or recovered (err == nil).
func (g *Generation) Degraded(err error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if sendErr := g.runner.send(ctx, envelope{kind: kindHealth, gen: g.gen, err: err}); sendErr != nil {
		g.runner.logger.Debug("cannot report source health", "source", g.name, "error", sendErr)
	}
}
