package onboarding

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess        ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure        ActivityEventType = "auth.login.failure"
	ActivityEventLoginLocked         ActivityEventType = "auth.login.locked"
	ActivityEventRegistration        ActivityEventType = "onboarding.registration.completed"
	ActivityEventCompensation        ActivityEventType = "onboarding.registration.compensated"
	ActivityEventTokenRedeemed       ActivityEventType = "auth.token.redeemed"
	ActivityEventPasswordReset       ActivityEventType = "auth.password.reset"
	ActivityEventSessionRefreshed    ActivityEventType = "auth.session.refreshed"
	ActivityEventLogout              ActivityEventType = "auth.logout"
	ActivityEventStatusChanged       ActivityEventType = "account.status.changed"
	ActivityEventApplicationApproved ActivityEventType = "onboarding.application.approved"
)

// ActorRef identifies who/what triggered an event or transition.
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	AccountID  string
	FromStatus AccountStatus
	ToStatus   AccountStatus
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// recordActivity fills event defaults and logs sink errors instead of
// surfacing them.
func recordActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := normalizeActivitySink(sink).Record(ctx, event); err != nil {
		if logger == nil {
			logger = defLogger{}
		}
		logger.Warn("activity sink record error: %v", err)
	}
}
