package messaging

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/atomic"
)

var (
	// ErrClosed is returned by Publish and Consume after Close.
	ErrClosed = errors.New("messaging: client is closed")
	// ErrDestinationRequired is returned when the topic, subject or subscription is empty.
	ErrDestinationRequired = errors.New("messaging: destination is required")
	// ErrHandlerRequired is returned when Consume is called with a nil handler.
	ErrHandlerRequired = errors.New("messaging: handler is required")
)

// Messaging is a broker client that can publish and consume.
type Messaging interface {
	io.Closer

	Publisher
	Consumer
}

// Publisher sends messages to a destination (topic or subject).
type Publisher interface {
	Publish(ctx context.Context, destination string, msg OutgoingMessage) error
}

// Consumer blocks delivering messages from source to handler until ctx is
// done or the client is closed.
type Consumer interface {
	Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error
}

// Handler processes one received message. With auto-ack enabled a nil error
// acks and a non-nil error nacks.
type Handler func(ctx context.Context, msg Message) error

// OutgoingMessage is a message to publish.
type OutgoingMessage struct {
	Body    []byte
	Key     []byte
	Headers map[string]string
}

// Message is a received message.
type Message interface {
	Body() []byte
	Header(key string) string
	ID() string
	Timestamp() time.Time

	Ack(ctx context.Context) error
	Nack(ctx context.Context) error
}

// closer tracks the closed state shared by all drivers.
type closer struct {
	closed *atomic.Bool
}

func newCloser() closer {
	return closer{closed: atomic.NewBool(false)}
}

// markClosed reports whether this call performed the transition.
func (c closer) markClosed() bool {
	return c.closed.CompareAndSwap(false, true)
}

func (c closer) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.closed.Load() {
		return ErrClosed
	}
	return nil
}

func validateConsume(source string, handler Handler) error {
	if source == "" {
		return ErrDestinationRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}
	return nil
}

// responder makes Ack and Nack idempotent across drivers.
type responder struct {
	done *atomic.Bool
}

func newResponder() responder {
	return responder{done: atomic.NewBool(false)}
}

func (r responder) respond(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.done.Swap(true) {
		return nil
	}
	return fn()
}

func (r responder) responded() bool {
	return r.done.Load()
}
