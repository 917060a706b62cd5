package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/kitchenboard/cmd/utils/internal/seeding"
	"github.com/appetiteclub/kitchenboard/pkg"
	"github.com/appetiteclub/kitchenboard/pkg/event"
)

// PublishDemo connects to NATS and plays the demo kitchen script on the board topic.
func PublishDemo(ctx context.Context, config *apt.Config, logger apt.Logger) error {
	natsOpts := pkg.NATSOptions{
		URL:   config.GetStringOrDef("nats.url", "nats://localhost:4222"),
		Name:  "kitchenboard-utils",
		Token: config.GetStringOrDef("nats.token", ""),
	}
	topic := config.GetStringOrDef("nats.topic", event.KitchenBoardTopic)

	count, err := strconv.Atoi(config.GetStringOrDef("demo.tickets", "8"))
	if err != nil || count <= 0 {
		return fmt.Errorf("demo.tickets must be a positive number")
	}
	delay, err := time.ParseDuration(config.GetStringOrDef("demo.delay", "1s"))
	if err != nil {
		return fmt.Errorf("demo.delay: %w", err)
	}

	var publisher events.Publisher
	var closeFn func() error

	if config.GetStringOrDef("nats.stream.enabled", "false") == "true" {
		stream, err := pkg.NewNATSStream(pkg.NATSStreamConfig{
			NATSOptions:       natsOpts,
			StreamName:        config.GetStringOrDef("nats.stream.name", "KITCHEN_BOARD"),
			Topic:             topic,
			ConsumerName:      "kitchenboard-utils",
			MaxAge:            24 * time.Hour,
			InactiveThreshold: time.Minute,
		})
		if err != nil {
			return err
		}
		publisher, closeFn = stream, stream.Close
	} else {
		pub, err := pkg.NewNATSPublisher(natsOpts)
		if err != nil {
			return err
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := pub.Flush(flushCtx); err != nil {
				logger.Error("flush failed", "error", err)
			}
		}()
		publisher, closeFn = pub, pub.Close
	}
	defer closeFn()

	logger.Info("Publishing demo kitchen events", "topic", topic, "tickets", count)
	return PublishScript(ctx, publisher, topic, seeding.DemoScript(time.Now().UTC(), count), delay, logger)
}

// PublishScript publishes script in order, waiting delay between events.
func PublishScript(ctx context.Context, publisher events.Publisher, topic string, script []event.KitchenSourceEvent, delay time.Duration, logger apt.Logger) error {
	for i, evt := range script {
		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		data, err := event.Encode(evt)
		if err != nil {
			return fmt.Errorf("encode step %d: %w", i, err)
		}
		if err := publisher.Publish(ctx, topic, data); err != nil {
			return fmt.Errorf("publish %s: %w", evt.Type(), err)
		}
		logger.Info("Published kitchen event", "step", i+1, "type", evt.Type())
	}
	return nil
}
