package notification

import "context"

//go:generate mockgen -source=mailer.go -destination=mocks/mock_mailer.go -package=mocks

// Mailer delivers one rendered message and returns the provider's message
// id. Implementations must not retry internally; the dispatcher records
// failures for an explicit retry.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}
