package inbound

import (
	"context"
	"log/slog"
	"slices"

	"github.com/shandysiswandi/gotp/internal/pkg/config"
	"github.com/shandysiswandi/gotp/internal/pkg/goroutine"
	"github.com/shandysiswandi/gotp/internal/pkg/instrument"
	"github.com/shandysiswandi/gotp/internal/pkg/messaging"
	"github.com/shandysiswandi/gotp/internal/pkg/uid"
	"github.com/shandysiswandi/gotp/internal/shared/event"
)

type consumer struct {
	name               string
	topic              string // destination where publisher sent message
	nsqConsumerName    string // for nsq
	natsConsumerName   string // for nats
	kafkaConsumerName  string // for kafka
	pubsubConsumerName string // for google pubsub
	handler            messaging.Handler
}

func consumers(h *MQHandler) []consumer {
	return []consumer{
		{
			name:               event.AccountRegisteredConsumerNotification,
			topic:              event.AccountRegisteredDestination,
			nsqConsumerName:    event.AccountRegisteredConsumerNotification,
			natsConsumerName:   event.AccountRegisteredConsumerNotification,
			kafkaConsumerName:  event.AccountRegisteredConsumerNotification,
			pubsubConsumerName: event.AccountRegisteredConsumerNotification,
			handler:            h.AccountRegisteredNotification,
		},
		{
			name:               event.AccountSecretRotatedConsumerNotification,
			topic:              event.AccountSecretRotatedDestination,
			nsqConsumerName:    event.AccountSecretRotatedConsumerNotification,
			natsConsumerName:   event.AccountSecretRotatedConsumerNotification,
			kafkaConsumerName:  event.AccountSecretRotatedConsumerNotification,
			pubsubConsumerName: event.AccountSecretRotatedConsumerNotification,
			handler:            h.AccountSecretRotatedNotification,
		},
	}
}

// RegisterMQConsumer starts one consumer per name listed in
// modules.notification.consumer_names and returns how many were started.
func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	messenger messaging.Consumer,
	uuid uid.StringID,
	uc uc,
	ins instrument.Instrumentation,
) int {
	mqHandler := &MQHandler{uc: uc, uuid: uuid, ins: ins}

	enableConsumerNames := cfg.GetArray("modules.notification.consumer_names")
	concurrency := cfg.GetInt("modules.notification.concurrency")
	if concurrency <= 0 {
		concurrency = 1
	}

	started := 0
	for _, c := range consumers(mqHandler) {
		if !slices.Contains(enableConsumerNames, c.name) {
			continue
		}

		ok := routine.Go(ctx, func(pCtx context.Context) error {
			slog.InfoContext(ctx, "Running job for handling consumer", "consumer", c.name)
			return messenger.Consume(pCtx,
				c.topic,
				c.handler,
				messaging.WithChannel(c.nsqConsumerName),
				messaging.WithQueueGroup(c.natsConsumerName),
				messaging.WithGroup(c.kafkaConsumerName),
				messaging.WithSubscription(c.pubsubConsumerName),
				messaging.WithAutoAck(true),
				messaging.WithConcurrency(concurrency),
				messaging.WithMaxInFlight(concurrency),
			)
		})
		if !ok {
			slog.WarnContext(ctx, "consumer not started", "consumer", c.name)
			continue
		}
		started++
	}

	return started
}
