package messaging

import (
	"context"
	"maps"
	"strconv"
	"sync"
	"time"

	"go.uber.org/atomic"
)

const memoryMaxAttempts = 3

// Memory is an in-process broker for local runs and tests. Each Consume call
// on a topic receives every message published after it subscribed; nacked
// messages are redelivered to the same subscriber up to memoryMaxAttempts times.
type Memory struct {
	closer
	seq *atomic.Uint64

	mu   sync.RWMutex
	subs map[string][]chan *memoryMessage
	done chan struct{}
}

// NewMemory constructs an empty in-process broker.
func NewMemory() *Memory {
	return &Memory{
		closer: newCloser(),
		seq:    atomic.NewUint64(0),
		subs:   map[string][]chan *memoryMessage{},
		done:   make(chan struct{}),
	}
}

// Close stops all consumers.
func (m *Memory) Close() error {
	if m.markClosed() {
		close(m.done)
	}
	return nil
}

// Publish fans the message out to current subscribers of destination.
func (m *Memory) Publish(ctx context.Context, destination string, msg OutgoingMessage) error {
	if err := m.check(ctx); err != nil {
		return err
	}
	if destination == "" {
		return ErrDestinationRequired
	}

	m.mu.RLock()
	subs := append([]chan *memoryMessage{}, m.subs[destination]...)
	m.mu.RUnlock()

	id := strconv.FormatUint(m.seq.Inc(), 10)
	for _, ch := range subs {
		mm := &memoryMessage{
			id:        id,
			attempts:  1,
			body:      append([]byte{}, msg.Body...),
			headers:   maps.Clone(msg.Headers),
			timestamp: time.Now(),
			responder: newResponder(),
			requeue:   ch,
		}
		select {
		case ch <- mm:
		case <-ctx.Done():
			return ctx.Err()
		case <-m.done:
			return ErrClosed
		}
	}

	return nil
}

// Consume subscribes to source and runs handler until ctx is done or Close.
func (m *Memory) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if err := m.check(ctx); err != nil {
		return err
	}
	if err := validateConsume(source, handler); err != nil {
		return err
	}

	co := newConsumeOptions(opts...)
	buf := co.maxInFlight
	if buf < co.concurrency {
		buf = co.concurrency
	}
	ch := make(chan *memoryMessage, buf)

	m.mu.Lock()
	m.subs[source] = append(m.subs[source], ch)
	m.mu.Unlock()
	defer m.unsubscribe(source, ch)

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-m.done:
					return
				case mm := <-ch:
					//nolint:errcheck // outcome is logged by dispatch
					_ = dispatch(ctx, DriverMemory, handler, mm, mm.responded, co.autoAck)
				}
			}
		})
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func (m *Memory) unsubscribe(source string, ch chan *memoryMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()

	subs := m.subs[source]
	for i := range subs {
		if subs[i] == ch {
			m.subs[source] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

type memoryMessage struct {
	responder

	id        string
	attempts  int
	body      []byte
	headers   map[string]string
	timestamp time.Time
	requeue   chan *memoryMessage
}

func (m *memoryMessage) Body() []byte             { return m.body }
func (m *memoryMessage) Header(key string) string { return m.headers[key] }
func (m *memoryMessage) ID() string               { return m.id }
func (m *memoryMessage) Timestamp() time.Time     { return m.timestamp }

func (m *memoryMessage) Ack(ctx context.Context) error {
	return m.respond(ctx, func() error { return nil })
}

func (m *memoryMessage) Nack(ctx context.Context) error {
	return m.respond(ctx, func() error {
		if m.attempts >= memoryMaxAttempts {
			return nil
		}
		retry := *m
		retry.attempts++
		retry.responder = newResponder()
		select {
		case m.requeue <- &retry:
		default:
		}
		return nil
	})
}
