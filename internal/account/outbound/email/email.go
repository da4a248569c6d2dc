package email

import (
	"context"
	"fmt"
	"time"

	"github.com/shandysiswandi/gotp/internal/pkg/instrument"
	"github.com/shandysiswandi/gotp/internal/pkg/mail"
	"go.opentelemetry.io/otel/codes"
)

const (
	subjectCode     = "Your OTP!"
	subjectRecovery = "Your account recovery token"
)

type Mail struct {
	client mail.Mail
	from   string
	ins    instrument.Instrumentation
}

// New wraps client. An empty from leaves the transport default sender in place.
func New(client mail.Mail, from string, ins instrument.Instrumentation) *Mail {
	return &Mail{client: client, from: from, ins: ins}
}

func (m *Mail) SendCode(ctx context.Context, to, code string) error {
	return m.send(ctx, "SendCode", mail.Message{
		From:     m.from,
		To:       []string{to},
		Subject:  subjectCode,
		TextBody: "Your OTP is: " + code,
	})
}

func (m *Mail) SendRecoveryToken(ctx context.Context, to, token string, ttl time.Duration) error {
	return m.send(ctx, "SendRecoveryToken", mail.Message{
		From:    m.from,
		To:      []string{to},
		Subject: subjectRecovery,
		TextBody: fmt.Sprintf("Your recovery token is: %s\n\nIt expires in %s and can be used once.",
			token, ttl.Round(time.Minute)),
	})
}

func (m *Mail) send(ctx context.Context, op string, msg mail.Message) error {
	ctx, span := m.ins.Tracer("account.outbound.email").Start(ctx, op)
	defer span.End()

	if err := m.client.Send(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
