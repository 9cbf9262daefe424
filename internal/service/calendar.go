package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tempohq/tempo/api/internal/model"
)

// CalendarSync is the external calendar provider client. Insert returns the
// provider's ID for the created entry.
type CalendarSync interface {
	Insert(ctx context.Context, user *model.User, event *model.Event) (string, error)
	Update(ctx context.Context, user *model.User, event *model.Event) error
	Delete(ctx context.Context, user *model.User, event *model.Event) error
}

// CalendarOutbox is the slice of the outbox repository the scheduler needs.
type CalendarOutbox interface {
	Enqueue(ctx context.Context, op *model.CalendarOp) error
	MarkDone(ctx context.Context, opID string) error
}

// EventSyncStore is the slice of the event repository sync needs.
type EventSyncStore interface {
	Get(ctx context.Context, eventID string) (*model.Event, error)
	SetExternalID(ctx context.Context, eventID, externalID string) error
}

// UserGetter resolves the calendar owner.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// SyncScheduler drives external calendar synchronization through the outbox.
//
// Bookings never wait on the provider: Schedule persists the operation and
// tries one immediate dispatch; a failed dispatch leaves the row pending for
// the background job to retry. Provider failures therefore cannot fail or
// roll back a booking.
type SyncScheduler struct {
	outbox CalendarOutbox
	events EventSyncStore
	users  UserGetter
	sync   CalendarSync
	logger *slog.Logger
}

// NewSyncScheduler creates a new calendar sync scheduler. sync may be nil
// when no provider is configured; operations are then settled without
// dispatching.
func NewSyncScheduler(outbox CalendarOutbox, events EventSyncStore, users UserGetter, sync CalendarSync, logger *slog.Logger) *SyncScheduler {
	return &SyncScheduler{
		outbox: outbox,
		events: events,
		users:  users,
		sync:   sync,
		logger: logger,
	}
}

// Schedule enqueues a sync operation for the event and attempts one
// immediate dispatch. Best effort throughout: every failure is logged and
// left to the background job.
func (s *SyncScheduler) Schedule(ctx context.Context, event *model.Event, kind model.CalendarOpKind) {
	op := &model.CalendarOp{
		EventID: event.ID,
		UserID:  event.CreatorID,
		Op:      kind,
	}

	if err := s.outbox.Enqueue(ctx, op); err != nil {
		s.logger.ErrorContext(ctx, "calendar sync enqueue failed",
			"event_id", event.ID, "op", kind, "error", err)
		return
	}

	if err := s.Dispatch(ctx, op); err != nil {
		s.logger.WarnContext(ctx, "immediate calendar sync failed, left for retry",
			"event_id", event.ID, "op", kind, "error", err)
	}
}

// Dispatch performs one sync operation against the provider and settles the
// outbox row on success. A non-nil error leaves the row pending for retry.
func (s *SyncScheduler) Dispatch(ctx context.Context, op *model.CalendarOp) error {
	user, err := s.users.GetByID(ctx, op.UserID)
	if err != nil {
		return fmt.Errorf("resolve calendar owner: %w", err)
	}
	if user == nil || !user.Connected() || s.sync == nil {
		// Nothing to sync against; settle the row so it stops retrying.
		return s.settle(ctx, op)
	}

	event, err := s.events.Get(ctx, op.EventID)
	if err != nil {
		return fmt.Errorf("load event: %w", err)
	}
	if event == nil {
		return s.settle(ctx, op)
	}

	switch op.Op {
	case model.CalendarOpInsert:
		externalID, err := s.sync.Insert(ctx, user, event)
		if err != nil {
			return err
		}
		if err := s.events.SetExternalID(ctx, event.ID, externalID); err != nil {
			s.logger.ErrorContext(ctx, "failed to record external event id",
				"event_id", event.ID, "external_id", externalID, "error", err)
		}
	case model.CalendarOpUpdate:
		if event.ExternalEventID == nil {
			// Never inserted upstream; treat as an insert.
			externalID, err := s.sync.Insert(ctx, user, event)
			if err != nil {
				return err
			}
			if err := s.events.SetExternalID(ctx, event.ID, externalID); err != nil {
				s.logger.ErrorContext(ctx, "failed to record external event id",
					"event_id", event.ID, "external_id", externalID, "error", err)
			}
		} else if err := s.sync.Update(ctx, user, event); err != nil {
			return err
		}
	case model.CalendarOpDelete:
		if event.ExternalEventID != nil {
			if err := s.sync.Delete(ctx, user, event); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown calendar op %q", op.Op)
	}

	return s.settle(ctx, op)
}

func (s *SyncScheduler) settle(ctx context.Context, op *model.CalendarOp) error {
	if op.ID == "" {
		return nil
	}
	return s.outbox.MarkDone(ctx, op.ID)
}
