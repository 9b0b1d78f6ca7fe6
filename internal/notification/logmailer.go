package notification

import (
	"context"
	"log/slog"
)

// LogMailer writes messages to the log instead of sending them. Used in
// development when no email API key is configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the message. The returned id is empty; there is no provider.
func (m *LogMailer) Send(ctx context.Context, msg Message) (string, error) {
	m.logger.InfoContext(ctx, "email suppressed (no provider configured)",
		"to", msg.To,
		"subject", msg.Subject,
	)
	return "", nil
}
