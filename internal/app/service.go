package app

import (
	"context"
	"errors"
	"sync"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/kitchenboard/internal/board"
	"github.com/appetiteclub/kitchenboard/internal/source"
	"golang.org/x/sync/errgroup"
)

// BoardService runs the board runner and the kitchen feed for the lifetime
// of the service.
type BoardService struct {
	runner      *board.Runner
	feed        *source.Feed
	broadcaster *board.Broadcaster
	logger      apt.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
}

func NewBoardService(runner *board.Runner, feed *source.Feed, broadcaster *board.Broadcaster, logger apt.Logger) *BoardService {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &BoardService{
		runner:      runner,
		feed:        feed,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Start launches the runner and the feed. They keep running after ctx, the
// startup context, is done; Stop ends them.
func (s *BoardService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.group != nil {
		return errors.New("board service already started")
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		return s.runner.Run(gctx)
	})
	g.Go(func() error {
		err := s.feed.Run(gctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("kitchen feed stopped", "error", err)
		}
		return err
	})

	s.cancel, s.group = cancel, g
	s.logger.Info("board service started")
	return nil
}

// Stop cancels the feed and the runner and waits for both.
func (s *BoardService) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, g := s.cancel, s.group
	s.cancel, s.group = nil, nil
	s.mu.Unlock()

	if g == nil {
		return nil
	}
	cancel()

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	if s.broadcaster != nil {
		s.broadcaster.Close()
	}
	s.logger.Info("board service stopped")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
