package source

import (
	"context"
	"sync"

	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/kitchenboard/pkg"
	"github.com/appetiteclub/kitchenboard/pkg/event"
)

// MockSink is a test mock for Sink
type MockSink struct {
	mu       sync.Mutex
	events   []event.KitchenSourceEvent
	degraded []error
	EmitFunc func(ctx context.Context, evt event.KitchenSourceEvent) error
	notify   chan struct{}
}

func NewMockSink() *MockSink {
	return &MockSink{notify: make(chan struct{}, 1024)}
}

func (m *MockSink) Emit(ctx context.Context, evt event.KitchenSourceEvent) error {
	if m.EmitFunc != nil {
		if err := m.EmitFunc(ctx, evt); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.events = append(m.events, evt)
	m.mu.Unlock()
	m.signal()
	return nil
}

func (m *MockSink) Degraded(err error) {
	m.mu.Lock()
	m.degraded = append(m.degraded, err)
	m.mu.Unlock()
	m.signal()
}

func (m *MockSink) signal() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

func (m *MockSink) Events() []event.KitchenSourceEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]event.KitchenSourceEvent(nil), m.events...)
}

func (m *MockSink) DegradedCalls() []error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]error(nil), m.degraded...)
}

// MockSnapshotter is a test mock for Snapshotter
type MockSnapshotter struct {
	mu           sync.Mutex
	calls        int
	SnapshotFunc func(ctx context.Context, call int) (event.BoardSnapshot, error)
}

func (m *MockSnapshotter) Snapshot(ctx context.Context) (event.BoardSnapshot, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.mu.Unlock()
	if m.SnapshotFunc != nil {
		return m.SnapshotFunc(ctx, call)
	}
	return event.BoardSnapshot{}, nil
}

func (m *MockSnapshotter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockSubscriber is a test mock for events.Subscriber that also reports
// connection status.
type MockSubscriber struct {
	mu            sync.Mutex
	handler       events.HandlerFunc
	handlerCtx    context.Context
	status        chan pkg.ConnStatus
	SubscribeFunc func(ctx context.Context, topic string, handler events.HandlerFunc) error
	subscribed    chan struct{}
}

func NewMockSubscriber() *MockSubscriber {
	return &MockSubscriber{
		status:     make(chan pkg.ConnStatus, 4),
		subscribed: make(chan struct{}, 1),
	}
}

func (m *MockSubscriber) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	if m.SubscribeFunc != nil {
		return m.SubscribeFunc(ctx, topic, handler)
	}
	m.mu.Lock()
	m.handler = handler
	m.handlerCtx = ctx
	m.mu.Unlock()
	select {
	case m.subscribed <- struct{}{}:
	default:
	}
	return nil
}

func (m *MockSubscriber) Status() <-chan pkg.ConnStatus {
	return m.status
}

// Deliver hands data to the registered handler as the transport would.
func (m *MockSubscriber) Deliver(data []byte) error {
	m.mu.Lock()
	h, ctx := m.handler, m.handlerCtx
	m.mu.Unlock()
	return h(ctx, data)
}

// MockTicketLister is a test mock for TicketLister
type MockTicketLister struct {
	ListActiveTicketsFunc func(ctx context.Context) (*ActiveTickets, error)
}

func (m *MockTicketLister) ListActiveTickets(ctx context.Context) (*ActiveTickets, error) {
	if m.ListActiveTicketsFunc != nil {
		return m.ListActiveTicketsFunc(ctx)
	}
	return &ActiveTickets{}, nil
}

// MockStreamConsumer is a test mock for events.StreamConsumer
type MockStreamConsumer struct {
	messages            []events.StreamMessage
	FetchFunc           func(ctx context.Context, maxMessages int) ([]events.StreamMessage, error)
	SubscribeStreamFunc func(ctx context.Context, handler events.HandlerFunc) error
}

func NewMockStreamConsumer() *MockStreamConsumer {
	return &MockStreamConsumer{messages: make([]events.StreamMessage, 0)}
}

func (m *MockStreamConsumer) Fetch(ctx context.Context, maxMessages int) ([]events.StreamMessage, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, maxMessages)
	}
	if maxMessages < len(m.messages) {
		return m.messages[:maxMessages], nil
	}
	return m.messages, nil
}

func (m *MockStreamConsumer) SubscribeStream(ctx context.Context, handler events.HandlerFunc) error {
	if m.SubscribeStreamFunc != nil {
		return m.SubscribeStreamFunc(ctx, handler)
	}
	return nil
}

func (m *MockStreamConsumer) AddMessage(data []byte, timestamp int64) {
	m.messages = append(m.messages, events.StreamMessage{
		Data:      data,
		Sequence:  uint64(len(m.messages) + 1),
		Timestamp: timestamp,
	})
}

// MockSource is a test mock for Source
type MockSource struct {
	name    string
	mu      sync.Mutex
	runs    int
	RunFunc func(ctx context.Context, sink Sink, run int) error
}

func NewMockSource(name string) *MockSource {
	return &MockSource{name: name}
}

func (m *MockSource) Name() string {
	return m.name
}

func (m *MockSource) Run(ctx context.Context, sink Sink) error {
	m.mu.Lock()
	m.runs++
	run := m.runs
	m.mu.Unlock()
	if m.RunFunc != nil {
		return m.RunFunc(ctx, sink, run)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *MockSource) Runs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs
}

// MockActivator is a test mock for Activator
type MockActivator struct {
	mu           sync.Mutex
	activations  []string
	sink         Sink
	ActivateFunc func(ctx context.Context, name string) (Sink, error)
}

func NewMockActivator(sink Sink) *MockActivator {
	return &MockActivator{sink: sink}
}

func (m *MockActivator) Activate(ctx context.Context, name string) (Sink, error) {
	m.mu.Lock()
	m.activations = append(m.activations, name)
	m.mu.Unlock()
	if m.ActivateFunc != nil {
		return m.ActivateFunc(ctx, name)
	}
	return m.sink, nil
}

func (m *MockActivator) Activations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.activations...)
}
