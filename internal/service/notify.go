package service

import (
	"context"
	"log/slog"

	"github.com/tempohq/tempo/api/internal/model"
)

// Notifier delivers booking notifications to participants. Delivery is best
// effort: the booking coordinator logs failures and never rolls back a
// committed booking because a notification could not be sent.
type Notifier interface {
	EventInvited(ctx context.Context, event *model.Event) error
	EventUpdated(ctx context.Context, event *model.Event) error
	EventCanceled(ctx context.Context, event *model.Event) error
}

// LogNotifier writes notifications to the structured log. It stands in for a
// real delivery channel (email, push) in deployments that have none
// configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier that logs instead of delivering.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) EventInvited(ctx context.Context, event *model.Event) error {
	n.logger.InfoContext(ctx, "event invitation",
		"event_id", event.ID,
		"title", event.Title,
		"recipients", recipientEmails(event),
	)
	return nil
}

func (n *LogNotifier) EventUpdated(ctx context.Context, event *model.Event) error {
	n.logger.InfoContext(ctx, "event updated notification",
		"event_id", event.ID,
		"recipients", recipientEmails(event),
	)
	return nil
}

func (n *LogNotifier) EventCanceled(ctx context.Context, event *model.Event) error {
	n.logger.InfoContext(ctx, "event canceled notification",
		"event_id", event.ID,
		"recipients", recipientEmails(event),
	)
	return nil
}

func recipientEmails(event *model.Event) []string {
	emails := make([]string, 0, len(event.Participants))
	for _, p := range event.Participants {
		if p.Status != model.ParticipantStatusDeclined {
			emails = append(emails, p.Email)
		}
	}
	return emails
}
