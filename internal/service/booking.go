package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/mail"
	"time"

	"github.com/tempohq/tempo/api/internal/database"
	"github.com/tempohq/tempo/api/internal/model"
)

// BookingRepository is the slice of the event repository the coordinator
// needs.
type BookingRepository interface {
	CreateChecked(ctx context.Context, event *model.Event) error
	UpdateChecked(ctx context.Context, eventID string, updates map[string]interface{}, emails []string, start, end time.Time) (*model.Event, error)
	Get(ctx context.Context, eventID string) (*model.Event, error)
	Update(ctx context.Context, eventID string, updates map[string]interface{}) (*model.Event, error)
	Cancel(ctx context.Context, eventID string) (*model.Event, error)
	List(ctx context.Context, userID, userEmail string, filters *model.EventFilters) ([]*model.Event, error)
}

// ListingCache caches serialized event listings. All methods are best
// effort.
type ListingCache interface {
	GetListing(ctx context.Context, creatorID string, filters *model.EventFilters) ([]byte, bool)
	PutListing(ctx context.Context, creatorID string, filters *model.EventFilters, payload []byte)
	Invalidate(ctx context.Context, creatorID string)
}

// SyncRequester schedules external calendar sync for a committed booking
// change.
type SyncRequester interface {
	Schedule(ctx context.Context, event *model.Event, kind model.CalendarOpKind)
}

// BookingService coordinates bookings: validation, conflict detection, the
// guarded write, and the side effects that follow a commit.
//
// Side effects (cache invalidation, notifications, calendar sync) run only
// after the write commits and are individually failure-isolated: a failed
// side effect is logged and never propagated to the caller, since the
// booking itself already holds.
type BookingService struct {
	repo     BookingRepository
	users    UserGetter
	overlap  *OverlapChecker
	cache    ListingCache
	notifier Notifier
	sync     SyncRequester
	logger   *slog.Logger
}

// BookingServiceConfig holds the coordinator's dependencies.
type BookingServiceConfig struct {
	Repo     BookingRepository
	Users    UserGetter
	Overlap  *OverlapChecker
	Cache    ListingCache
	Notifier Notifier
	Sync     SyncRequester
	Logger   *slog.Logger
}

// NewBookingService creates a new booking service
func NewBookingService(cfg BookingServiceConfig) *BookingService {
	return &BookingService{
		repo:     cfg.Repo,
		users:    cfg.Users,
		overlap:  cfg.Overlap,
		cache:    cfg.Cache,
		notifier: cfg.Notifier,
		sync:     cfg.Sync,
		logger:   cfg.Logger,
	}
}

// Create books a new event for the creator and participants, rejecting it if
// any affected email already has an active overlapping event. The conflict
// check runs twice: once up front for a readable error, and again inside the
// insert transaction so a concurrent booking cannot slip between check and
// write.
func (s *BookingService) Create(ctx context.Context, userID string, req *model.CreateEventRequest) (*model.Event, error) {
	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	creator, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if creator == nil {
		return nil, ErrUserNotFound
	}

	event := &model.Event{
		Title:          req.Title,
		Description:    req.Description,
		Location:       req.Location,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		CreatorID:      creator.ID,
		CreatorEmail:   creator.Email,
		IsRecurring:    req.IsRecurring,
		RecurringDates: req.RecurringDates,
		Participants:   buildParticipants(req.Participants, creator.Email),
	}

	if err := s.overlap.Check(ctx, event.Emails(), event.StartTime, event.EndTime, ""); err != nil {
		return nil, err
	}

	if err := s.repo.CreateChecked(ctx, event); err != nil {
		return nil, s.classifyWriteError(ctx, err, event.Emails(), event.StartTime, event.EndTime, "")
	}

	s.afterCommit(ctx, event, func(ctx context.Context) error {
		return s.notifier.EventInvited(ctx, event)
	})
	s.sync.Schedule(ctx, event, model.CalendarOpInsert)

	return event, nil
}

// Update applies a partial update. Only the creator or an admin may modify
// an event. When the update changes the event's interval, every affected
// email is re-checked for conflicts against the new window, excluding the
// event itself, and the write runs under the same transaction guards as a
// create.
func (s *BookingService) Update(ctx context.Context, userID, eventID string, req *model.UpdateEventRequest) (*model.Event, error) {
	event, err := s.authorizeMutation(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}

	updates, err := buildUpdates(req)
	if err != nil {
		return nil, err
	}

	var updated *model.Event
	if req.ChangesInterval() {
		start, end := event.StartTime, event.EndTime
		if req.StartTime != nil {
			start = *req.StartTime
		}
		if req.EndTime != nil {
			end = *req.EndTime
		}
		if !end.After(start) {
			return nil, ErrInvalidTimeRange
		}

		emails := event.Emails()
		if err := s.overlap.Check(ctx, emails, start, end, event.ID); err != nil {
			return nil, err
		}

		updated, err = s.repo.UpdateChecked(ctx, event.ID, updates, emails, start, end)
		if err != nil {
			return nil, s.classifyWriteError(ctx, err, emails, start, end, event.ID)
		}
	} else {
		updated, err = s.repo.Update(ctx, event.ID, updates)
		if err != nil {
			return nil, err
		}
	}

	s.afterCommit(ctx, updated, func(ctx context.Context) error {
		return s.notifier.EventUpdated(ctx, updated)
	})
	s.sync.Schedule(ctx, updated, model.CalendarOpUpdate)

	return updated, nil
}

// Cancel soft-deletes an event, freeing its interval for everyone involved.
// The record is retained. Canceling an already canceled event is a no-op.
func (s *BookingService) Cancel(ctx context.Context, userID, eventID string) (*model.Event, error) {
	event, err := s.loadForMutation(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}
	if event.Canceled {
		return event, nil
	}

	canceled, err := s.repo.Cancel(ctx, event.ID)
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, canceled, func(ctx context.Context) error {
		return s.notifier.EventCanceled(ctx, canceled)
	})
	s.sync.Schedule(ctx, canceled, model.CalendarOpDelete)

	return canceled, nil
}

// Get returns an event visible to the user: its creator, a participant, or
// an admin.
func (s *BookingService) Get(ctx context.Context, userID, userEmail, eventID string) (*model.Event, error) {
	event, err := s.repo.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, ErrEventNotFound
	}

	if event.CreatorID != userID && !event.HasParticipant(userEmail) {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if user == nil || !user.IsAdmin() {
			return nil, ErrNotAllowed
		}
	}

	return event, nil
}

// List returns the user's active events, cached per creator. A cache hit
// serves the stored listing; a miss queries the repository and repopulates.
// Cache failures degrade to repository reads.
func (s *BookingService) List(ctx context.Context, userID, userEmail string, filters *model.EventFilters) ([]*model.Event, error) {
	if payload, ok := s.cache.GetListing(ctx, userID, filters); ok {
		var events []*model.Event
		if err := json.Unmarshal(payload, &events); err == nil {
			return events, nil
		}
		s.logger.WarnContext(ctx, "discarding undecodable cache entry", "user_id", userID)
	}

	events, err := s.repo.List(ctx, userID, userEmail, filters)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(events); err == nil {
		s.cache.PutListing(ctx, userID, filters, payload)
	}

	return events, nil
}

// authorizeMutation loads an active event and verifies the user may modify
// it.
func (s *BookingService) authorizeMutation(ctx context.Context, userID, eventID string) (*model.Event, error) {
	event, err := s.loadForMutation(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}
	if event.Canceled {
		return nil, ErrEventCanceled
	}
	return event, nil
}

func (s *BookingService) loadForMutation(ctx context.Context, userID, eventID string) (*model.Event, error) {
	event, err := s.repo.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, ErrEventNotFound
	}

	if event.CreatorID != userID {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if user == nil || !user.IsAdmin() {
			return nil, ErrNotAllowed
		}
	}

	return event, nil
}

// classifyWriteError maps a guard rejection to a conflict error naming the
// blocking email. The guard only reports that some check failed, so the
// pre-check is re-run to identify the subject; if the conflicting event was
// itself canceled in the meantime, the first affected email is reported.
func (s *BookingService) classifyWriteError(ctx context.Context, err error, emails []string, start, end time.Time, excludeID string) error {
	if !errors.Is(err, database.ErrConflict) {
		return err
	}

	if checkErr := s.overlap.Check(ctx, emails, start, end, excludeID); checkErr != nil {
		var conflict *ConflictError
		if errors.As(checkErr, &conflict) {
			return conflict
		}
	}
	return &ConflictError{Subject: emails[0]}
}

// afterCommit runs a notification side effect for a committed booking.
// Failures are logged, never returned: the booking already holds.
func (s *BookingService) afterCommit(ctx context.Context, event *model.Event, notify func(context.Context) error) {
	s.cache.Invalidate(ctx, event.CreatorID)

	if err := notify(ctx); err != nil {
		s.logger.ErrorContext(ctx, "notification failed",
			"event_id", event.ID, "error", err)
	}
}

func validateCreateRequest(req *model.CreateEventRequest) error {
	if req.Title == "" {
		return ErrTitleRequired
	}
	if len(req.Title) > model.MaxEventTitleLength {
		return ErrTitleTooLong
	}
	if req.Description != nil && len(*req.Description) > model.MaxEventDescriptionLength {
		return ErrDescriptionTooLong
	}
	if req.StartTime.IsZero() {
		return ErrStartTimeRequired
	}
	if req.EndTime.IsZero() {
		return ErrEndTimeRequired
	}
	if !req.EndTime.After(req.StartTime) {
		return ErrInvalidTimeRange
	}
	if len(req.Participants) > model.MaxParticipantsPerEvent {
		return ErrTooManyParticipants
	}
	for _, email := range req.Participants {
		if _, err := mail.ParseAddress(email); err != nil {
			return ErrInvalidParticipantEmail
		}
	}
	if req.IsRecurring && len(req.RecurringDates) == 0 {
		return ErrRecurringDatesRequired
	}
	return nil
}

func buildUpdates(req *model.UpdateEventRequest) (map[string]interface{}, error) {
	updates := make(map[string]interface{})
	if req.Title != nil {
		if *req.Title == "" {
			return nil, ErrTitleRequired
		}
		if len(*req.Title) > model.MaxEventTitleLength {
			return nil, ErrTitleTooLong
		}
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		if len(*req.Description) > model.MaxEventDescriptionLength {
			return nil, ErrDescriptionTooLong
		}
		updates["description"] = *req.Description
	}
	if req.Location != nil {
		updates["location"] = *req.Location
	}
	if req.StartTime != nil {
		updates["start_time"] = *req.StartTime
	}
	if req.EndTime != nil {
		updates["end_time"] = *req.EndTime
	}
	if len(updates) == 0 {
		return nil, ErrNoFieldsToUpdate
	}
	return updates, nil
}

// buildParticipants dedupes the requested emails and drops the creator, who
// is tracked on the event row itself.
func buildParticipants(emails []string, creatorEmail string) []model.Participant {
	seen := map[string]bool{creatorEmail: true}
	participants := make([]model.Participant, 0, len(emails))
	for _, email := range emails {
		if seen[email] {
			continue
		}
		seen[email] = true
		participants = append(participants, model.Participant{
			Email:  email,
			Status: model.ParticipantStatusInvited,
		})
	}
	return participants
}
