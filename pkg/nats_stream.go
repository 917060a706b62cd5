package pkg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const replayBatch = 500

// NATSStream implements events.Stream on top of a JetStream stream. Live
// delivery goes through a durable consumer that only sees new messages;
// Fetch replays the retained history through a throwaway ordered consumer.
type NATSStream struct {
	conn     *nats.Conn
	js       jetstream.JetStream
	stream   jetstream.Stream
	consumer jetstream.Consumer
	topic    string
	status   chan ConnStatus
}

// NATSStreamConfig configures a NATSStream instance.
type NATSStreamConfig struct {
	NATSOptions
	StreamName   string        // JetStream stream name (e.g., "KITCHEN_BOARD")
	Topic        string        // Subject the stream captures (e.g., "kitchen.board")
	ConsumerName string        // Durable consumer name for this service
	MaxAge       time.Duration // How long to retain events
	MaxMsgs      int64         // Maximum number of messages to retain (0 = unlimited)
	// InactiveThreshold removes the durable consumer after this long without a subscriber.
	InactiveThreshold time.Duration
}

// NewNATSStream connects and ensures the stream and the durable consumer exist.
func NewNATSStream(cfg NATSStreamConfig) (*NATSStream, error) {
	s := &NATSStream{topic: cfg.Topic, status: make(chan ConnStatus, 16)}

	natsOpts := append(cfg.natsOptions(),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			s.notify(ConnStatus{Connected: false, Err: err})
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			s.notify(ConnStatus{Connected: true})
		}),
	)

	conn, err := nats.Connect(cfg.URL, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	streamConfig := jetstream.StreamConfig{
		Name:     cfg.StreamName,
		Subjects: []string{cfg.Topic},
		MaxAge:   cfg.MaxAge,
	}
	if cfg.MaxMsgs > 0 {
		streamConfig.MaxMsgs = cfg.MaxMsgs
	}

	stream, err := js.CreateOrUpdateStream(context.Background(), streamConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create/update stream %s: %w", cfg.StreamName, err)
	}

	consumerConfig := jetstream.ConsumerConfig{
		Name:              cfg.ConsumerName,
		Durable:           cfg.ConsumerName,
		AckPolicy:         jetstream.AckExplicitPolicy,
		DeliverPolicy:     jetstream.DeliverNewPolicy,
		FilterSubject:     cfg.Topic,
		InactiveThreshold: cfg.InactiveThreshold,
	}

	consumer, err := stream.CreateOrUpdateConsumer(context.Background(), consumerConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create/update consumer %s: %w", cfg.ConsumerName, err)
	}

	s.conn = conn
	s.js = js
	s.stream = stream
	s.consumer = consumer
	return s, nil
}

// Status delivers disconnect and reconnect notifications.
func (s *NATSStream) Status() <-chan ConnStatus {
	return s.status
}

func (s *NATSStream) notify(st ConnStatus) {
	select {
	case s.status <- st:
	default:
	}
}

// Publish publishes a message to the stream.
func (s *NATSStream) Publish(ctx context.Context, topic string, msg []byte) error {
	_, err := s.js.Publish(ctx, topic, msg)
	if err != nil {
		return fmt.Errorf("failed to publish to stream: %w", err)
	}
	return nil
}

// Fetch replays retained messages from the start of the stream, up to limit.
// It keeps reading batches until the replay has nothing pending, so fewer than
// limit messages means the whole stream was read.
func (s *NATSStream) Fetch(ctx context.Context, limit int) ([]events.StreamMessage, error) {
	if limit <= 0 {
		limit = 1000
	}

	info, err := s.stream.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read stream info: %w", err)
	}
	pending := info.State.Msgs

	replay, err := s.stream.OrderedConsumer(ctx, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{s.topic},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create replay consumer: %w", err)
	}

	var messages []events.StreamMessage
	for pending > 0 && len(messages) < limit {
		batch, err := replay.Fetch(min(limit-len(messages), replayBatch), jetstream.FetchMaxWait(2*time.Second))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch messages: %w", err)
		}

		received := 0
		for msg := range batch.Messages() {
			received++
			metadata, err := msg.Metadata()
			if err != nil {
				continue
			}
			pending = metadata.NumPending
			messages = append(messages, events.StreamMessage{
				Data:      msg.Data(),
				Sequence:  metadata.Sequence.Stream,
				Timestamp: metadata.Timestamp.UnixNano(),
			})
		}
		if err := batch.Error(); err != nil && !errors.Is(err, nats.ErrTimeout) {
			return nil, fmt.Errorf("replay interrupted: %w", err)
		}
		if received == 0 {
			return nil, fmt.Errorf("replay stalled with %d messages pending", pending)
		}
	}

	return messages, nil
}

// SubscribeStream delivers new messages until ctx is done. Handler errors
// cause redelivery.
func (s *NATSStream) SubscribeStream(ctx context.Context, handler events.HandlerFunc) error {
	cc, err := s.consumer.Consume(func(msg jetstream.Msg) {
		if err := handler(ctx, msg.Data()); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("failed to consume stream: %w", err)
	}

	go func() {
		<-ctx.Done()
		cc.Stop()
	}()
	return nil
}

// Subscribe implements events.Subscriber. The topic is fixed by the consumer.
func (s *NATSStream) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	return s.SubscribeStream(ctx, handler)
}

// Close closes the NATS connection.
func (s *NATSStream) Close() error {
	s.conn.Close()
	return nil
}
