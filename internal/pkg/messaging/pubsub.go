package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/samber/lo"
	"google.golang.org/api/option"
)

// ErrPubSubProjectIDRequired is returned when no project ID or client is configured.
var ErrPubSubProjectIDRequired = errors.New("messaging: pubsub project id is required")

// PubSubConfig configures the Google Pub/Sub implementation.
type PubSubConfig struct {
	ProjectID     string
	ClientOptions []option.ClientOption
}

// PubSub is a messaging implementation backed by Google Pub/Sub. Headers are
// carried as message attributes.
type PubSub struct {
	closer
	client *pubsub.Client

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewPubSub constructs a Pub/Sub messaging client.
func NewPubSub(ctx context.Context, cfg PubSubConfig) (*PubSub, error) {
	if cfg.ProjectID == "" {
		return nil, ErrPubSubProjectIDRequired
	}

	c, err := pubsub.NewClient(ctx, cfg.ProjectID, cfg.ClientOptions...)
	if err != nil {
		return nil, fmt.Errorf("messaging: pubsub new client: %w", err)
	}

	return &PubSub{closer: newCloser(), client: c, publishers: map[string]*pubsub.Publisher{}}, nil
}

// Close stops publishers and closes the client.
func (p *PubSub) Close() error {
	if !p.markClosed() {
		return nil
	}

	p.mu.Lock()
	pubs := lo.Values(p.publishers)
	p.publishers = nil
	p.mu.Unlock()

	for _, pub := range pubs {
		pub.Stop()
	}
	return p.client.Close()
}

// Publish sends a message to a topic and waits for the server ID.
func (p *PubSub) Publish(ctx context.Context, destination string, msg OutgoingMessage) error {
	if err := p.check(ctx); err != nil {
		return err
	}
	if destination == "" {
		return ErrDestinationRequired
	}

	pub, err := p.publisher(destination)
	if err != nil {
		return err
	}

	res := pub.Publish(ctx, &pubsub.Message{
		Data:       msg.Body,
		Attributes: lo.OmitByKeys(msg.Headers, []string{""}),
	})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("messaging: pubsub publish: %w", err)
	}
	return nil
}

// Consume receives from the WithSubscription subscription, or from source
// when no subscription option is given.
func (p *PubSub) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if err := p.check(ctx); err != nil {
		return err
	}
	if err := validateConsume(source, handler); err != nil {
		return err
	}

	co := newConsumeOptions(opts...)
	subscription := lo.Ternary(co.subscription != "", co.subscription, source)

	sub := p.client.Subscriber(subscription)
	sub.ReceiveSettings.NumGoroutines = co.concurrency
	if co.maxInFlight > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = co.maxInFlight
	}

	return sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		msg := &pubSubMessage{responder: newResponder(), msg: m}
		//nolint:errcheck // outcome is logged by dispatch
		_ = dispatch(ctx, DriverGooglePubSub, handler, msg, msg.responded, co.autoAck)
	})
}

func (p *PubSub) publisher(topic string) (*pubsub.Publisher, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.publishers == nil {
		return nil, ErrClosed
	}
	if pub, ok := p.publishers[topic]; ok {
		return pub, nil
	}
	pub := p.client.Publisher(topic)
	p.publishers[topic] = pub
	return pub, nil
}

type pubSubMessage struct {
	responder

	msg *pubsub.Message
}

func (m *pubSubMessage) Body() []byte             { return m.msg.Data }
func (m *pubSubMessage) Header(key string) string { return m.msg.Attributes[key] }
func (m *pubSubMessage) ID() string               { return m.msg.ID }
func (m *pubSubMessage) Timestamp() time.Time     { return m.msg.PublishTime }

func (m *pubSubMessage) Ack(ctx context.Context) error {
	return m.respond(ctx, func() error {
		m.msg.Ack()
		return nil
	})
}

func (m *pubSubMessage) Nack(ctx context.Context) error {
	return m.respond(ctx, func() error {
		m.msg.Nack()
		return nil
	})
}
