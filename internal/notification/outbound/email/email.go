package email

import (
	"context"

	"github.com/shandysiswandi/gotp/internal/pkg/instrument"
	"github.com/shandysiswandi/gotp/internal/pkg/mail"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// textFallback is the plain part for clients that do not render HTML.
const textFallback = "This security notice is best viewed in an HTML capable mail client. " +
	"If you did not expect it, contact support."

// Mail delivers security notices to account owners.
type Mail struct {
	client mail.Mail
	from   string
	ins    instrument.Instrumentation
}

func New(client mail.Mail, from string, ins instrument.Instrumentation) *Mail {
	return &Mail{client: client, from: from, ins: ins}
}

func (m *Mail) SendNotice(ctx context.Context, to, subject, htmlBody string) error {
	ctx, span := m.ins.Tracer("notification.outbound.email").Start(ctx, "SendNotice")
	defer span.End()

	span.SetAttributes(attribute.Int("mail.body_bytes", len(htmlBody)))

	if err := m.client.Send(ctx, mail.Message{
		From:     m.from,
		To:       []string{to},
		Subject:  subject,
		TextBody: textFallback,
		HTMLBody: htmlBody,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
