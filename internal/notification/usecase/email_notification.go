package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shandysiswandi/gotp/internal/notification/entity"
)

// sendNotice renders the template of n and mails it to the account owner.
// A mail error is returned so the message is redelivered.
func (s *Usecase) sendNotice(ctx context.Context, n entity.Notice) error {
	tpl, ok := entity.TemplateFor(n.TriggerKey)
	if !ok {
		slog.WarnContext(ctx, "notification template not found", "trigger_key", n.TriggerKey.String())
		return nil
	}

	data := s.baseEmailTemplateData()
	data["identifier"] = n.Identifier
	data["at"] = n.At.UTC().Format(time.RFC1123)

	subject, err := s.renderTemplate("subject", tpl.Subject, data)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render email subject", "account_id", n.AccountID, "trigger_key", n.TriggerKey.String(), "error", err)
		return nil
	}

	body, err := s.renderTemplate("body", tpl.Body, data)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render email body", "account_id", n.AccountID, "trigger_key", n.TriggerKey.String(), "error", err)
		return nil
	}

	if err := s.repoMail.SendNotice(ctx, n.Identifier, subject, body); err != nil {
		slog.ErrorContext(ctx, "failed to send notification email", "account_id", n.AccountID, "trigger_key", n.TriggerKey.String(), "error", err)
		return fmt.Errorf("send %s notice: %w", n.TriggerKey, err)
	}

	slog.InfoContext(ctx, "notification email sent", "account_id", n.AccountID, "trigger_key", n.TriggerKey.String())
	return nil
}
