package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shandysiswandi/gotp/internal/notification/usecase"
	"github.com/shandysiswandi/gotp/internal/pkg/instrument"
	"github.com/shandysiswandi/gotp/internal/pkg/messaging"
	"github.com/shandysiswandi/gotp/internal/pkg/uid"
	"github.com/shandysiswandi/gotp/internal/shared/event"
)

const keyOfCorrelationID string = "cID"

type MQHandler struct {
	uc   uc
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, msg messaging.Message) context.Context {
	if cID := msg.Header(keyOfCorrelationID); cID != "" {
		return instrument.SetCorrelationID(ctx, cID)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

func (h *MQHandler) AccountRegisteredNotification(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg)

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "AccountRegisteredNotification")
	defer span.End()

	body := msg.Body()
	slog.InfoContext(ctx, "consume: account registered notification", "msg_id", msg.ID())

	var payload event.AccountRegisteredMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of account registered notification", "msg_body", string(body), "error", err)
		return nil
	}

	if err := h.uc.ConsumeAccountRegistered(ctx, usecase.ConsumeAccountRegisteredInput{
		AccountID:    payload.AccountID,
		Identifier:   payload.Identifier,
		RegisteredAt: payload.RegisteredAt,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume account registered", "msg_id", msg.ID(), "error", err)
		return err
	}

	return nil
}

func (h *MQHandler) AccountSecretRotatedNotification(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg)

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "AccountSecretRotatedNotification")
	defer span.End()

	body := msg.Body()
	slog.InfoContext(ctx, "consume: account secret rotated notification", "msg_id", msg.ID())

	var payload event.AccountSecretRotatedMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of account secret rotated notification", "msg_body", string(body), "error", err)
		return nil
	}

	if err := h.uc.ConsumeAccountSecretRotated(ctx, usecase.ConsumeAccountSecretRotatedInput{
		AccountID:  payload.AccountID,
		Identifier: payload.Identifier,
		RotatedAt:  payload.RotatedAt,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume account secret rotated", "msg_id", msg.ID(), "error", err)
		return err
	}

	return nil
}
