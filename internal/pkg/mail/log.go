package mail

import (
	"context"
	"log/slog"
)

// Log is a development Mail that records the envelope and drops the body,
// which may hold codes or recovery tokens.
type Log struct {
	from string
}

// NewLog returns a Log transport with a default sender.
func NewLog(from string) *Log {
	return &Log{from: from}
}

// Send logs the envelope of msg.
func (l *Log) Send(ctx context.Context, msg Message) error {
	if len(msg.Recipients()) == 0 {
		return ErrSMTPNoRecipients
	}

	from := msg.From
	if from == "" {
		from = l.from
	}

	slog.InfoContext(ctx, "mail dropped by log transport", "from", from, "to", msg.To, "subject", msg.Subject)
	return nil
}

// Close implements io.Closer.
func (l *Log) Close() error {
	return nil
}
