package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/kitchenboard/internal/board"
	"github.com/appetiteclub/kitchenboard/pkg/event"
)

// Snapshotter produces the full current board.
type Snapshotter interface {
	Snapshot(ctx context.Context) (event.BoardSnapshot, error)
}

// ListerSnapshotter builds snapshots from the kitchen service listing.
type ListerSnapshotter struct {
	lister TicketLister
}

func NewListerSnapshotter(lister TicketLister) *ListerSnapshotter {
	return &ListerSnapshotter{lister: lister}
}

func (s *ListerSnapshotter) Snapshot(ctx context.Context) (event.BoardSnapshot, error) {
	if s.lister == nil {
		return event.BoardSnapshot{}, fmt.Errorf("snapshot: %w", ErrNoSource)
	}

	page, err := s.lister.ListActiveTickets(ctx)
	if err != nil {
		return event.BoardSnapshot{}, err
	}

	serverTime := page.ServerTime
	if serverTime.IsZero() {
		serverTime = time.Now().UTC()
	}
	return event.BoardSnapshot{Items: page.Tickets, ServerTime: serverTime}, nil
}

// ErrReplayTruncated means the stream retains more events than a replay may
// read, so the folded board would miss the newest changes.
var ErrReplayTruncated = errors.New("kitchen stream replay truncated")

// replayGrowth bounds how far a replay grows past its configured limit.
const replayGrowth = 16

// ReplaySnapshotter rebuilds the board by folding the retained event stream
// into a scratch board.
type ReplaySnapshotter struct {
	stream events.StreamConsumer
	limit  int
	logger apt.Logger
}

func NewReplaySnapshotter(stream events.StreamConsumer, limit int, logger apt.Logger) *ReplaySnapshotter {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if limit <= 0 {
		limit = 1000
	}
	return &ReplaySnapshotter{stream: stream, limit: limit, logger: logger}
}

func (s *ReplaySnapshotter) Snapshot(ctx context.Context) (event.BoardSnapshot, error) {
	if s.stream == nil {
		return event.BoardSnapshot{}, fmt.Errorf("replay: %w", ErrNoSource)
	}

	messages, err := s.fetchAll(ctx)
	if err != nil {
		return event.BoardSnapshot{}, err
	}

	scratch := board.NewBoard(s.logger)
	var lastSeen time.Time
	applied, skipped := 0, 0
	for _, msg := range messages {
		if _, err := scratch.ApplyRaw(msg.Data); err != nil {
			board.EventsDropped.WithLabelValues(board.DropReasonDecode).Inc()
			skipped++
			continue
		}
		applied++
		if msg.Timestamp > 0 {
			lastSeen = time.Unix(0, msg.Timestamp).UTC()
		}
	}

	s.logger.Debug("kitchen stream replayed", "applied", applied, "skipped", skipped)

	serverTime := lastSeen
	if serverTime.IsZero() {
		serverTime = time.Now().UTC()
	}
	return event.BoardSnapshot{Items: scratch.Tickets(), ServerTime: serverTime}, nil
}

// fetchAll reads the whole retained stream. A full page may hide newer
// messages, so the request doubles until a page comes back short.
func (s *ReplaySnapshotter) fetchAll(ctx context.Context) ([]events.StreamMessage, error) {
	limit := s.limit
	for {
		messages, err := s.stream.Fetch(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("replay kitchen stream: %w", err)
		}
		if len(messages) < limit {
			return messages, nil
		}
		if limit >= s.limit*replayGrowth {
			return nil, fmt.Errorf("%w: more than %d retained events", ErrReplayTruncated, limit)
		}
		s.logger.Debug("kitchen stream replay filled its page, growing", "limit", limit)
		limit *= 2
	}
}
