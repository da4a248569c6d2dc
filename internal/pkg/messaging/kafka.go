package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/segmentio/kafka-go"
)

var (
	// ErrKafkaBrokersRequired is returned when no Kafka brokers are configured.
	ErrKafkaBrokersRequired = errors.New("messaging: kafka brokers are required")
	// ErrKafkaGroupRequired is returned when Consume has no WithGroup option.
	ErrKafkaGroupRequired = errors.New("messaging: kafka consumer group is required")
)

// KafkaConfig configures the Kafka implementation.
type KafkaConfig struct {
	Brokers []string
	Dialer  *kafka.Dialer
}

// Kafka is a messaging implementation backed by kafka-go. One writer is kept
// per topic.
type Kafka struct {
	closer
	cfg KafkaConfig

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewKafka constructs a Kafka messaging client.
func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrKafkaBrokersRequired
	}

	return &Kafka{closer: newCloser(), cfg: cfg, writers: map[string]*kafka.Writer{}}, nil
}

// Close flushes and closes every writer. Running consumers stop when their
// context is canceled.
func (k *Kafka) Close() error {
	if !k.markClosed() {
		return nil
	}

	k.mu.Lock()
	writers := lo.Values(k.writers)
	k.writers = nil
	k.mu.Unlock()

	var err error
	for _, w := range writers {
		err = errors.Join(err, w.Close())
	}
	return err
}

// Publish writes a message with headers to a topic.
func (k *Kafka) Publish(ctx context.Context, destination string, msg OutgoingMessage) error {
	if err := k.check(ctx); err != nil {
		return err
	}
	if destination == "" {
		return ErrDestinationRequired
	}

	w, err := k.writer(destination)
	if err != nil {
		return err
	}

	err = w.WriteMessages(ctx, kafka.Message{
		Key:   msg.Key,
		Value: msg.Body,
		Time:  time.Now(),
		Headers: lo.MapToSlice(msg.Headers, func(key, value string) kafka.Header {
			return kafka.Header{Key: key, Value: []byte(value)}
		}),
	})
	if err != nil {
		return fmt.Errorf("messaging: kafka publish: %w", err)
	}
	return nil
}

// Consume reads topic source as member of the WithGroup consumer group.
// Offsets are committed on Ack; a Nack leaves the offset uncommitted.
func (k *Kafka) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if err := k.check(ctx); err != nil {
		return err
	}
	if err := validateConsume(source, handler); err != nil {
		return err
	}

	co := newConsumeOptions(opts...)
	if co.group == "" {
		return ErrKafkaGroupRequired
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  k.cfg.Brokers,
		GroupID:  co.group,
		Topic:    source,
		MaxBytes: 10e6,
		Dialer:   k.cfg.Dialer,
	})

	msgCh := make(chan kafka.Message)
	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for m := range msgCh {
				msg := &kafkaMessage{responder: newResponder(), reader: reader, msg: m}
				//nolint:errcheck // outcome is logged by dispatch
				_ = dispatch(ctx, DriverKafka, handler, msg, msg.responded, co.autoAck)
			}
		})
	}

	var fetchErr error
	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			fetchErr = err
			break
		}
		msgCh <- m
	}
	close(msgCh)
	wg.Wait()

	closeErr := reader.Close()
	if errors.Is(fetchErr, context.Canceled) || errors.Is(fetchErr, context.DeadlineExceeded) {
		return errors.Join(fetchErr, closeErr)
	}
	return errors.Join(fmt.Errorf("messaging: kafka consume: %w", fetchErr), closeErr)
}

func (k *Kafka) writer(topic string) (*kafka.Writer, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.writers == nil {
		return nil, ErrClosed
	}
	if w, ok := k.writers[topic]; ok {
		return w, nil
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(k.cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	if k.cfg.Dialer != nil {
		w.Transport = &kafka.Transport{
			TLS:  k.cfg.Dialer.TLS,
			SASL: k.cfg.Dialer.SASLMechanism,
		}
	}
	k.writers[topic] = w
	return w, nil
}

type kafkaMessage struct {
	responder

	reader *kafka.Reader
	msg    kafka.Message
}

func (m *kafkaMessage) Body() []byte { return m.msg.Value }

func (m *kafkaMessage) Header(key string) string {
	h, ok := lo.Find(m.msg.Headers, func(h kafka.Header) bool { return h.Key == key })
	if !ok {
		return ""
	}
	return string(h.Value)
}

func (m *kafkaMessage) ID() string {
	return fmt.Sprintf("%s/%d/%d", m.msg.Topic, m.msg.Partition, m.msg.Offset)
}

func (m *kafkaMessage) Timestamp() time.Time { return m.msg.Time }

func (m *kafkaMessage) Ack(ctx context.Context) error {
	return m.respond(ctx, func() error { return m.reader.CommitMessages(ctx, m.msg) })
}

func (m *kafkaMessage) Nack(ctx context.Context) error {
	return m.respond(ctx, func() error { return nil })
}
