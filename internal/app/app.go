package app

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	aptevents "github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/apt/middleware"
	"github.com/appetiteclub/kitchenboard/internal/board"
	"github.com/appetiteclub/kitchenboard/internal/source"
	"github.com/appetiteclub/kitchenboard/pkg"
	"github.com/google/uuid"
)

const (
	AppName    = "kitchenboard"
	AppVersion = "0.1.0"
)

// App encapsulates the kitchen board service
type App struct {
	config   *apt.Config
	logger   apt.Logger
	settings Settings
	micro    *apt.Micro
}

// New creates a new kitchen board application
func New(config *apt.Config, logger apt.Logger) (*App, error) {
	settings, err := LoadSettings(config)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &App{
		config:   config,
		logger:   logger,
		settings: settings,
	}, nil
}

// Initialize sets up all dependencies and components
func (a *App) Initialize(ctx context.Context) error {
	s := a.settings
	var lifecycles []interface{}

	// Snapshot source for polling and for push resyncs
	var lister source.TicketLister
	if s.KitchenURL != "" {
		lister = source.NewKitchenDataAccess(apt.NewServiceClient(s.KitchenURL), s.Session)
	}

	natsOpts := pkg.NATSOptions{
		URL:           s.NATSURL,
		Name:          AppName,
		Token:         s.Session.Token,
		ReconnectWait: 2 * time.Second,
	}

	var subscriber aptevents.Subscriber
	var stream aptevents.StreamConsumer

	if s.StreamEnabled {
		kitchenStream, err := pkg.NewNATSStream(pkg.NATSStreamConfig{
			NATSOptions:       natsOpts,
			StreamName:        s.StreamName,
			Topic:             s.NATSTopic,
			ConsumerName:      AppName + "-" + uuid.NewString()[:8],
			MaxAge:            24 * time.Hour,
			InactiveThreshold: time.Hour,
		})
		if err != nil {
			return err
		}
		a.logger.Info("NATS stream initialized", "stream", s.StreamName, "topic", s.NATSTopic)
		subscriber, stream = kitchenStream, kitchenStream
		lifecycles = append(lifecycles, apt.LifecycleHooks{
			OnStop: func(context.Context) error { return kitchenStream.Close() },
		})
	} else if s.Strategy != source.StrategyPoll {
		natsSub, err := pkg.NewNATSSubscriber(natsOpts)
		if err != nil {
			return err
		}
		subscriber = natsSub
		lifecycles = append(lifecycles, apt.LifecycleHooks{
			OnStop: func(context.Context) error { return natsSub.Close() },
		})
	}

	var snapshotter source.Snapshotter
	if lister != nil {
		snapshotter = source.NewListerSnapshotter(lister)
	} else {
		snapshotter = source.NewReplaySnapshotter(stream, s.ReplayLimit, a.logger)
	}

	var push, poll source.Source
	if subscriber != nil {
		push = source.NewPushSource(subscriber, snapshotter, source.PushConfig{
			Topic:      s.NATSTopic,
			StaleAfter: s.PushStaleAfter,
		}, a.logger)
	}
	poll = source.NewPollSource(snapshotter, s.PollInterval, s.PollTimeout, a.logger)

	// Board and its single writer
	broadcaster := board.NewBroadcaster(100, a.logger)
	runner := board.NewRunner(board.NewBoard(a.logger), broadcaster, board.RunnerConfig{
		Retention:       s.Retention,
		HighlightWindow: s.HighlightWindow,
	}, a.logger)

	feed, err := source.NewFeed(source.FeedConfig{Strategy: s.Strategy}, push, poll, source.RunnerActivator(runner), a.logger)
	if err != nil {
		return err
	}

	service := NewBoardService(runner, feed, broadcaster, a.logger)
	lifecycles = append([]interface{}{service}, lifecycles...)

	handler := board.NewHandler(board.HandlerDeps{
		Viewer:   runner,
		Streamer: broadcaster,
	}, a.logger)

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger: a.logger,
	})

	options := []apt.Option{
		apt.WithConfig(a.config),
		apt.WithLogger(a.logger),
		apt.WithHTTPMiddleware(stack...),
		apt.WithHTTPServerModules("web.port", handler),
		apt.WithLifecycle(lifecycles...),
		apt.WithHealthChecks(AppName),
	}

	a.micro = apt.NewMicro(options...)
	a.logger.Info("kitchen board initialized",
		"strategy", s.Strategy,
		"station", s.Session.Station,
		"stream", s.StreamEnabled,
	)
	return nil
}

// Run starts the application
func (a *App) Run(ctx context.Context) error {
	if a.micro == nil {
		return fmt.Errorf("%s not initialized", AppName)
	}
	a.logger.Infof("Starting %s(%s)", AppName, AppVersion)
	if err := a.micro.Run(ctx); err != nil {
		return err
	}
	a.logger.Infof("%s(%s) stopped", AppName, AppVersion)
	return nil
}
