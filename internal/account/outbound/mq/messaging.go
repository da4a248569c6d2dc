package mq

import (
	"context"
	"encoding/json"

	"github.com/shandysiswandi/gotp/internal/account/entity"
	"github.com/shandysiswandi/gotp/internal/pkg/instrument"
	"github.com/shandysiswandi/gotp/internal/pkg/messaging"
	"github.com/shandysiswandi/gotp/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client messaging.Publisher
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Publisher, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) PublishAccountRegistered(ctx context.Context, ev entity.RegisteredEvent) error {
	ctx, span := m.ins.Tracer("account.outbound.mq").Start(ctx, "PublishAccountRegistered")
	defer span.End()

	return m.publish(ctx, span, event.AccountRegisteredDestination, ev.Identifier, event.AccountRegisteredMessage{
		AccountID:    ev.AccountID,
		Identifier:   ev.Identifier,
		RegisteredAt: ev.At.Unix(),
	})
}

func (m *Messaging) PublishAccountResetRequested(ctx context.Context, ev entity.ResetRequestedEvent) error {
	ctx, span := m.ins.Tracer("account.outbound.mq").Start(ctx, "PublishAccountResetRequested")
	defer span.End()

	return m.publish(ctx, span, event.AccountResetRequestedDestination, ev.Identifier, event.AccountResetRequestedMessage{
		AccountID:   ev.AccountID,
		Identifier:  ev.Identifier,
		Delivered:   ev.Delivered,
		RequestedAt: ev.At.Unix(),
	})
}

func (m *Messaging) PublishAccountSecretRotated(ctx context.Context, ev entity.SecretRotatedEvent) error {
	ctx, span := m.ins.Tracer("account.outbound.mq").Start(ctx, "PublishAccountSecretRotated")
	defer span.End()

	return m.publish(ctx, span, event.AccountSecretRotatedDestination, ev.Identifier, event.AccountSecretRotatedMessage{
		AccountID:  ev.AccountID,
		Identifier: ev.Identifier,
		RotatedAt:  ev.At.Unix(),
	})
}

// publish keys messages by identifier so partitioned brokers keep per-account order.
func (m *Messaging) publish(ctx context.Context, span trace.Span, destination, key string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := m.client.Publish(ctx, destination, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(key),
		Headers: map[string]string{keyOfCorrelationID: instrument.GetCorrelationID(ctx)},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
