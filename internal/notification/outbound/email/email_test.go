package email

import (
	"context"
	"errors"
	"testing"

	"github.com/shandysiswandi/gotp/internal/pkg/instrument"
	"github.com/shandysiswandi/gotp/internal/pkg/mail"
)

type recordingMail struct {
	msgs []mail.Message
	err  error
}

func (r *recordingMail) Send(_ context.Context, msg mail.Message) error {
	r.msgs = append(r.msgs, msg)
	return r.err
}

func (r *recordingMail) Close() error { return nil }

func TestMail_SendNotice(t *testing.T) {
	client := &recordingMail{}
	m := New(client, "noreply@gotp.local", instrument.NewNoop())

	if err := m.SendNotice(context.Background(), "alice@example.com", "Welcome", "<p>hi</p>"); err != nil {
		t.Fatalf("SendNotice() error = %v", err)
	}

	if len(client.msgs) != 1 {
		t.Fatalf("sent = %d, want 1", len(client.msgs))
	}
	msg := client.msgs[0]
	if msg.From != "noreply@gotp.local" || msg.To[0] != "alice@example.com" || msg.Subject != "Welcome" {
		t.Fatalf("message = %+v", msg)
	}
	if msg.HTMLBody != "<p>hi</p>" || msg.TextBody == "" {
		t.Fatalf("bodies = %q / %q", msg.HTMLBody, msg.TextBody)
	}
}

func TestMail_SendNoticeError(t *testing.T) {
	want := errors.New("smtp down")
	m := New(&recordingMail{err: want}, "", instrument.NewNoop())

	if err := m.SendNotice(context.Background(), "alice@example.com", "s", "b"); !errors.Is(err, want) {
		t.Fatalf("SendNotice() error = %v, want %v", err, want)
	}
}
