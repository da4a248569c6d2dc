package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/samber/lo"
)

// ErrNATSURLRequired is returned when the NATS server URL is missing.
var ErrNATSURLRequired = errors.New("messaging: nats url is required")

// NATSConfig configures the NATS implementation.
type NATSConfig struct {
	URL     string
	Options []nats.Option
}

// NATS is a messaging implementation backed by core NATS.
type NATS struct {
	closer
	conn *nats.Conn
}

// NewNATS connects to the NATS server.
func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		return nil, ErrNATSURLRequired
	}

	conn, err := nats.Connect(cfg.URL, cfg.Options...)
	if err != nil {
		return nil, fmt.Errorf("messaging: nats connect: %w", err)
	}

	return &NATS{closer: newCloser(), conn: conn}, nil
}

// Close drains subscriptions and closes the connection.
func (n *NATS) Close() error {
	if !n.markClosed() {
		return nil
	}
	return n.conn.Drain()
}

// Publish sends a message with headers to a subject.
func (n *NATS) Publish(ctx context.Context, destination string, msg OutgoingMessage) error {
	if err := n.check(ctx); err != nil {
		return err
	}
	if destination == "" {
		return ErrDestinationRequired
	}

	nmsg := nats.NewMsg(destination)
	nmsg.Data = msg.Body
	for k, v := range lo.OmitByKeys(msg.Headers, []string{""}) {
		nmsg.Header.Set(k, v)
	}

	if err := n.conn.PublishMsg(nmsg); err != nil {
		return fmt.Errorf("messaging: nats publish: %w", err)
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("messaging: nats flush: %w", err)
	}
	return nil
}

// Consume subscribes to subject source, load-balanced over WithQueueGroup.
func (n *NATS) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if err := n.check(ctx); err != nil {
		return err
	}
	if err := validateConsume(source, handler); err != nil {
		return err
	}

	co := newConsumeOptions(opts...)
	msgCh := make(chan *nats.Msg, max(co.maxInFlight, co.concurrency))

	sub, err := n.conn.ChanQueueSubscribe(source, co.queueGroup, msgCh)
	if err != nil {
		return fmt.Errorf("messaging: nats subscribe: %w", err)
	}

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case m, ok := <-msgCh:
					if !ok {
						return
					}
					msg := &natsMessage{responder: newResponder(), msg: m, receivedAt: time.Now()}
					//nolint:errcheck // outcome is logged by dispatch
					_ = dispatch(ctx, DriverNATS, handler, msg, msg.responded, co.autoAck)
				}
			}
		})
	}

	<-ctx.Done()
	uerr := sub.Unsubscribe()
	wg.Wait()

	if errors.Is(uerr, nats.ErrConnectionClosed) || errors.Is(uerr, nats.ErrBadSubscription) {
		uerr = nil
	}
	return errors.Join(ctx.Err(), uerr)
}

type natsMessage struct {
	responder

	msg        *nats.Msg
	receivedAt time.Time
}

func (m *natsMessage) Body() []byte             { return m.msg.Data }
func (m *natsMessage) Header(key string) string { return m.msg.Header.Get(key) }
func (m *natsMessage) ID() string               { return m.msg.Header.Get(nats.MsgIdHdr) }
func (m *natsMessage) Timestamp() time.Time     { return m.receivedAt }

func (m *natsMessage) Ack(ctx context.Context) error {
	return m.respond(ctx, func() error { return ignoreNoReply(m.msg.Ack()) })
}

func (m *natsMessage) Nack(ctx context.Context) error {
	return m.respond(ctx, func() error { return ignoreNoReply(m.msg.Nak()) })
}

// ignoreNoReply treats acks on core NATS messages, which have no ack
// subject, as successful.
func ignoreNoReply(err error) error {
	if errors.Is(err, nats.ErrMsgNoReply) || errors.Is(err, nats.ErrMsgNotBound) {
		return nil
	}
	return err
}
