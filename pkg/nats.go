package pkg

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt/events"
	"github.com/nats-io/nats.go"
)

// ConnStatus reports a transport state change observed by the NATS client.
type ConnStatus struct {
	Connected bool
	Err       error
}

// NATSOptions configures a NATS connection.
type NATSOptions struct {
	URL           string
	Name          string
	Token         string
	ReconnectWait time.Duration
}

func (o NATSOptions) natsOptions() []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
	}
	if o.Name != "" {
		opts = append(opts, nats.Name(o.Name))
	}
	if o.Token != "" {
		opts = append(opts, nats.Token(o.Token))
	}
	if o.ReconnectWait > 0 {
		opts = append(opts, nats.ReconnectWait(o.ReconnectWait))
	}
	return opts
}

type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(opts NATSOptions) (*NATSPublisher, error) {
	conn, err := nats.Connect(opts.URL, opts.natsOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	return p.conn.Publish(topic, msg)
}

// Flush waits until the server has processed everything published so far.
func (p *NATSPublisher) Flush(ctx context.Context) error {
	return p.conn.FlushWithContext(ctx)
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

// NATSSubscriber subscribes on core NATS. Each subscription lives as long as
// the context passed to Subscribe.
type NATSSubscriber struct {
	conn   *nats.Conn
	status chan ConnStatus
}

func NewNATSSubscriber(opts NATSOptions) (*NATSSubscriber, error) {
	s := &NATSSubscriber{status: make(chan ConnStatus, 16)}

	natsOpts := append(opts.natsOptions(),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			s.notify(ConnStatus{Connected: false, Err: err})
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			s.notify(ConnStatus{Connected: true})
		}),
	)

	conn, err := nats.Connect(opts.URL, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	s.conn = conn
	return s, nil
}

// Status delivers disconnect and reconnect notifications. Notifications are
// dropped when nobody reads them.
func (s *NATSSubscriber) Status() <-chan ConnStatus {
	return s.status
}

func (s *NATSSubscriber) notify(st ConnStatus) {
	select {
	case s.status <- st:
	default:
	}
}

func (s *NATSSubscriber) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	sub, err := s.conn.Subscribe(topic, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		_ = handler(ctx, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
	}()
	return nil
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}
