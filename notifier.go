package onboarding

import "context"

// Notifier dispatches onboarding email. Implementations are expected
// to be asynchronous or cheap; the caller treats every send as
// fire-and-forget and a dispatch failure never rolls back committed
// work.
type Notifier interface {
	SendVerification(ctx context.Context, email, token string) error
	SendMagicLink(ctx context.Context, email, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
	SendApplicationReceived(ctx context.Context, email string) error
}

type noopNotifier struct{}

func (noopNotifier) SendVerification(context.Context, string, string) error  { return nil }
func (noopNotifier) SendMagicLink(context.Context, string, string) error     { return nil }
func (noopNotifier) SendPasswordReset(context.Context, string, string) error { return nil }
func (noopNotifier) SendApplicationReceived(context.Context, string) error   { return nil }

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
