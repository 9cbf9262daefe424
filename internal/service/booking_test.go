package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/tempohq/tempo/api/internal/database"
	"github.com/tempohq/tempo/api/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type bookingMocks struct {
	repo     *mockBookingRepo
	users    *mockUserRepo
	cache    *mockCache
	notifier *mockNotifier
	sync     *mockSync
}

func newBookingService(m *bookingMocks) *BookingService {
	if m.repo == nil {
		m.repo = &mockBookingRepo{}
	}
	if m.users == nil {
		m.users = &mockUserRepo{
			getByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
				return &model.User{ID: id, Email: "creator@example.com", Role: model.UserRoleUser}, nil
			},
		}
	}
	if m.cache == nil {
		m.cache = &mockCache{}
	}
	if m.notifier == nil {
		m.notifier = &mockNotifier{}
	}
	if m.sync == nil {
		m.sync = &mockSync{}
	}
	return NewBookingService(BookingServiceConfig{
		Repo:     m.repo,
		Users:    m.users,
		Overlap:  NewOverlapChecker(m.repo),
		Cache:    m.cache,
		Notifier: m.notifier,
		Sync:     m.sync,
		Logger:   testLogger(),
	})
}

func validCreateRequest() *model.CreateEventRequest {
	start, end := window(9, 10)
	return &model.CreateEventRequest{
		Title:        "Design review",
		StartTime:    start,
		EndTime:      end,
		Participants: []string{"bob@example.com", "carol@example.com"},
	}
}

func TestBookingCreate_Success(t *testing.T) {
	t.Parallel()

	m := &bookingMocks{}
	svc := newBookingService(m)

	event, err := svc.Create(context.Background(), "user:creator", validCreateRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if event.ID == "" {
		t.Error("expected event ID assigned by repository")
	}
	if event.CreatorEmail != "creator@example.com" {
		t.Errorf("expected creator email resolved, got %q", event.CreatorEmail)
	}
	if len(event.Participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(event.Participants))
	}
	for _, p := range event.Participants {
		if p.Status != model.ParticipantStatusInvited {
			t.Errorf("expected participant %s invited, got %s", p.Email, p.Status)
		}
	}
	if len(m.cache.invalidated) != 1 || m.cache.invalidated[0] != "user:creator" {
		t.Errorf("expected creator cache invalidated, got %v", m.cache.invalidated)
	}
	if len(m.sync.scheduled) != 1 || m.sync.scheduled[0] != model.CalendarOpInsert {
		t.Errorf("expected insert sync scheduled, got %v", m.sync.scheduled)
	}
}

func TestBookingCreate_DedupesParticipantsAndDropsCreator(t *testing.T) {
	t.Parallel()

	svc := newBookingService(&bookingMocks{})

	req := validCreateRequest()
	req.Participants = []string{"bob@example.com", "bob@example.com", "creator@example.com"}

	event, err := svc.Create(context.Background(), "user:creator", req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(event.Participants) != 1 || event.Participants[0].Email != "bob@example.com" {
		t.Errorf("expected single deduped participant, got %+v", event.Participants)
	}
}

func TestBookingCreate_ValidationErrors(t *testing.T) {
	t.Parallel()

	start, end := window(9, 10)
	longTitle := make([]byte, model.MaxEventTitleLength+1)
	for i := range longTitle {
		longTitle[i] = 'x'
	}

	tests := []struct {
		name    string
		mutate  func(req *model.CreateEventRequest)
		wantErr error
	}{
		{
			name:    "missing title",
			mutate:  func(req *model.CreateEventRequest) { req.Title = "" },
			wantErr: ErrTitleRequired,
		},
		{
			name:    "title too long",
			mutate:  func(req *model.CreateEventRequest) { req.Title = string(longTitle) },
			wantErr: ErrTitleTooLong,
		},
		{
			name:    "end before start",
			mutate:  func(req *model.CreateEventRequest) { req.StartTime, req.EndTime = end, start },
			wantErr: ErrInvalidTimeRange,
		},
		{
			name:    "zero duration",
			mutate:  func(req *model.CreateEventRequest) { req.EndTime = req.StartTime },
			wantErr: ErrInvalidTimeRange,
		},
		{
			name:    "missing start",
			mutate:  func(req *model.CreateEventRequest) { req.StartTime = time.Time{} },
			wantErr: ErrStartTimeRequired,
		},
		{
			name:    "bad participant email",
			mutate:  func(req *model.CreateEventRequest) { req.Participants = []string{"not-an-email"} },
			wantErr: ErrInvalidParticipantEmail,
		},
		{
			name:    "recurring without dates",
			mutate:  func(req *model.CreateEventRequest) { req.IsRecurring = true },
			wantErr: ErrRecurringDatesRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := newBookingService(&bookingMocks{})
			req := validCreateRequest()
			tt.mutate(req)

			_, err := svc.Create(context.Background(), "user:creator", req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestBookingCreate_PreCheckConflict_NamesBusyEmail(t *testing.T) {
	t.Parallel()

	m := &bookingMocks{
		repo: &mockBookingRepo{
			findOverlapFunc: func(ctx context.Context, email string, s, e time.Time, excludeID string) ([]*model.Event, error) {
				if email == "bob@example.com" {
					return []*model.Event{{ID: "event:busy"}}, nil
				}
				return nil, nil
			},
		},
	}
	svc := newBookingService(m)

	_, err := svc.Create(context.Background(), "user:creator", validCreateRequest())

	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.Subject != "bob@example.com" {
		t.Errorf("expected bob as subject, got %q", conflict.Subject)
	}
	if len(m.sync.scheduled) != 0 {
		t.Error("no sync must be scheduled for a rejected booking")
	}
	if len(m.cache.invalidated) != 0 {
		t.Error("no cache invalidation for a rejected booking")
	}
}

func TestBookingCreate_RaceCaughtByGuard_ReturnsConflict(t *testing.T) {
	t.Parallel()

	// The pre-check passes, then the transaction guard rejects the insert
	// because a concurrent booking committed in between. The re-check after
	// the guard identifies the now-busy email.
	raced := false
	m := &bookingMocks{
		repo: &mockBookingRepo{
			findOverlapFunc: func(ctx context.Context, email string, s, e time.Time, excludeID string) ([]*model.Event, error) {
				if raced && email == "carol@example.com" {
					return []*model.Event{{ID: "event:raced"}}, nil
				}
				return nil, nil
			},
			createCheckedFunc: func(ctx context.Context, event *model.Event) error {
				raced = true
				return database.ErrConflict
			},
		},
	}
	svc := newBookingService(m)

	_, err := svc.Create(context.Background(), "user:creator", validCreateRequest())

	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.Subject != "carol@example.com" {
		t.Errorf("expected carol as subject, got %q", conflict.Subject)
	}
}

func TestBookingCreate_GuardConflictWithCleanRecheck_StillConflicts(t *testing.T) {
	t.Parallel()

	// Guard fired but the conflicting event vanished before the re-check
	// (canceled in the race window). The booking still failed; report the
	// creator.
	m := &bookingMocks{
		repo: &mockBookingRepo{
			createCheckedFunc: func(ctx context.Context, event *model.Event) error {
				return database.ErrConflict
			},
		},
	}
	svc := newBookingService(m)

	_, err := svc.Create(context.Background(), "user:creator", validCreateRequest())

	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.Subject != "creator@example.com" {
		t.Errorf("expected creator as fallback subject, got %q", conflict.Subject)
	}
}

func TestBookingCreate_NotifierFailure_DoesNotFailBooking(t *testing.T) {
	t.Parallel()

	m := &bookingMocks{
		notifier: &mockNotifier{
			invitedFunc: func(ctx context.Context, event *model.Event) error {
				return errors.New("smtp down")
			},
		},
	}
	svc := newBookingService(m)

	event, err := svc.Create(context.Background(), "user:creator", validCreateRequest())
	if err != nil {
		t.Fatalf("booking must survive notification failure, got %v", err)
	}
	if event == nil {
		t.Fatal("expected event returned")
	}
}

func TestBookingCreate_UnknownUser_Fails(t *testing.T) {
	t.Parallel()

	m := &bookingMocks{
		users: &mockUserRepo{
			getByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
				return nil, nil
			},
		},
	}
	svc := newBookingService(m)

	_, err := svc.Create(context.Background(), "user:ghost", validCreateRequest())
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func existingEvent() *model.Event {
	start, end := window(9, 10)
	return &model.Event{
		ID:           "event:1",
		Title:        "Standup",
		StartTime:    start,
		EndTime:      end,
		CreatorID:    "user:creator",
		CreatorEmail: "creator@example.com",
		Participants: []model.Participant{
			{Email: "bob@example.com", Status: model.ParticipantStatusAccepted},
		},
	}
}

func TestBookingUpdate_TitleOnly_SkipsOverlapCheck(t *testing.T) {
	t.Parallel()

	overlapQueried := false
	m := &bookingMocks{
		repo: &mockBookingRepo{
			getFunc: func(ctx context.Context, eventID string) (*model.Event, error) {
				return existingEvent(), nil
			},
			findOverlapFunc: func(ctx context.Context, email string, s, e time.Time, excludeID string) ([]*model.Event, error) {
				overlapQueried = true
				return nil, nil
			},
			updateFunc: func(ctx context.Context, eventID string, updates map[string]interface{}) (*model.Event, error) {
				ev := existingEvent()
				ev.Title = updates["title"].(string)
				return ev, nil
			},
		},
	}
	svc := newBookingService(m)

	title := "Renamed"
	updated, err := svc.Update(context.Background(), "user:creator", "event:1", &model.UpdateEventRequest{Title: &title})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Title != "Renamed" {
		t.Errorf("expected title updated, got %q", updated.Title)
	}
	if overlapQueried {
		t.Error("title-only update must not run overlap checks")
	}
	if len(m.sync.scheduled) != 1 || m.sync.scheduled[0] != model.CalendarOpUpdate {
		t.Errorf("expected update sync scheduled, got %v", m.sync.scheduled)
	}
}

func TestBookingUpdate_Reschedule_ExcludesSelfFromCheck(t *testing.T) {
	t.Parallel()

	var gotExcludes []string
	var gotEmails []string
	m := &bookingMocks{
		repo: &mockBookingRepo{
			getFunc: func(ctx context.Context, eventID string) (*model.Event, error) {
				return existingEvent(), nil
			},
			findOverlapFunc: func(ctx context.Context, email string, s, e time.Time, excludeID string) ([]*model.Event, error) {
				gotEmails = append(gotEmails, email)
				gotExcludes = append(gotExcludes, excludeID)
				return nil, nil
			},
			updateCheckedFunc: func(ctx context.Context, eventID string, updates map[string]interface{}, emails []string, start, end time.Time) (*model.Event, error) {
				ev := existingEvent()
				ev.StartTime, ev.EndTime = start, end
				return ev, nil
			},
		},
	}
	svc := newBookingService(m)

	newStart, newEnd := window(10, 11)
	_, err := svc.Update(context.Background(), "user:creator", "event:1", &model.UpdateEventRequest{
		StartTime: &newStart,
		EndTime:   &newEnd,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(gotEmails) != 2 || gotEmails[0] != "creator@example.com" || gotEmails[1] != "bob@example.com" {
		t.Errorf("expected creator then participants checked, got %v", gotEmails)
	}
	for _, exclude := range gotExcludes {
		if exclude != "event:1" {
			t.Errorf("reschedule must exclude the event itself, got %q", exclude)
		}
	}
}

func TestBookingUpdate_RescheduleToTouchingSlot_Allowed(t *testing.T) {
	t.Parallel()

	// Another event runs 10-11. Moving this one to 9-10 touches it at the
	// boundary, which is not a conflict under half-open semantics. The mock
	// repository applies the same predicate the store does.
	other := existingEvent()
	other.ID = "event:2"
	other.StartTime, other.EndTime = window(10, 11)

	m := &bookingMocks{
		repo: &mockBookingRepo{
			getFunc: func(ctx context.Context, eventID string) (*model.Event, error) {
				return existingEvent(), nil
			},
			findOverlapFunc: func(ctx context.Context, email string, s, e time.Time, excludeID string) ([]*model.Event, error) {
				if other.Overlaps(s, e) && other.ID != excludeID {
					return []*model.Event{other}, nil
				}
				return nil, nil
			},
			updateCheckedFunc: func(ctx context.Context, eventID string, updates map[string]interface{}, emails []string, start, end time.Time) (*model.Event, error) {
				ev := existingEvent()
				ev.StartTime, ev.EndTime = start, end
				return ev, nil
			},
		},
	}
	svc := newBookingService(m)

	newStart, newEnd := window(9, 10)
	if _, err := svc.Update(context.Background(), "user:creator", "event:1", &model.UpdateEventRequest{
		StartTime: &newStart,
		EndTime:   &newEnd,
	}); err != nil {
		t.Fatalf("touching boundary must not conflict, got %v", err)
	}

	intoOther, pastOther := window(10, 12)
	_, err := svc.Update(context.Background(), "user:creator", "event:1", &model.UpdateEventRequest{
		StartTime: &intoOther,
		EndTime:   &pastOther,
	})
	if !errors.Is(err, ErrBookingConflict) {
		t.Fatalf("overlapping reschedule must conflict, got %v", err)
	}
}

func TestBookingUpdate_InvalidMergedRange_Fails(t *testing.T) {
	t.Parallel()

	m := &bookingMocks{
		repo: &mockBookingRepo{
			getFunc: func(ctx context.Context, eventID string) (*model.Event, error) {
				return existingEvent(), nil
			},
		},
	}
	svc := newBookingService(m)

	// New start is after the unchanged end.
	badStart, _ := window(11, 12)
	_, err := svc.Update(context.Background(), "user:creator", "event:1", &model.UpdateEventRequest{
		StartTime: &badStart,
	})
	if !errors.Is(err, ErrInvalidTimeRange) {
		t.Errorf("expected ErrInvalidTimeRange, got %v", err)
	}
}

func TestBookingUpdate_NotCreatorNotAdmin_Forbidden(t *testing.T) {
	t.Parallel()

	m := &bookingMocks{
		repo: &mockBookingRepo{
			getFunc: func(ctx context.Context, eventID string) (*model.Event, error) {
				return existingEvent(), nil
			},
		},
		users: &mockUserRepo{
			getByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
				return &model.User{ID: id, Email: "mallory@example.com", Role: model.UserRoleUser}, nil
			},
		},
	}
	svc := newBookingService(m)

	title := "Hijacked"
	_, err := svc.Update(context.Background(), "user:mallory", "event:1", &model.UpdateEventRequest{Title: &title})
	if !errors.Is(err, ErrNotAllowed) {
		t.Errorf("expected ErrNotAllowed, got %v", err)
	}
}

func TestBookingUpdate_AdminMayModify(t *testing.T) {
	t.Parallel()

	m := &bookingMocks{
		repo: &mockBookingRepo{
			getFunc: func(ctx context.Context, eventID string) (*model.Event, error) {
				return existingEvent(), nil
			},
			updateFunc: func(ctx context.Context, eventID string, updates map[string]interface{}) (*model.Event, error) {
				return existingEvent(), nil
			},
		},
		users: &mockUserRepo{
			getByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
				return &model.User{ID: id, Email: "root@example.com", Role: model.UserRoleAdmin}, nil
			},
		},
	}
	svc := newBookingService(m)

	title := "Moderated"
	if _, err := svc.Update(context.Background(), "user:admin", "event:1", &model.UpdateEventRequest{Title: &title}); err != nil {
		t.Errorf("admin update must succeed, got %v", err)
	}
}

func TestBookingUpdate_CanceledEvent_Rejected(t *testing.T) {
	t.Parallel()

	m := &bookingMocks{
		repo: &mockBookingRepo{
			getFunc: func(ctx context.Context, eventID string) (*model.Event, error) {
				ev := existingEvent()
				ev.Canceled = true
				return ev, nil
			},
		},
	}
	svc := newBookingService(m)

	title := "Too late"
	_, err := svc.Update(context.Background(), "user:creator", "event:1", &model.UpdateEventRequest{Title: &title})
	if !errors.Is(err, ErrEventCanceled) {
		t.Errorf("expected ErrEventCanceled, got %v", err)
	}
}

func TestBookingUpdate_NotFound(t *testing.T) {
	t.Parallel()

	svc := newBookingService(&bookingMocks{})

	title := "Ghost"
	_, err := svc.Update(context.Background(), "user:creator", "event:missing", &model.UpdateEventRequest{Title: &title})
	if !errors.Is(err, ErrEventNotFound) {
		t.Errorf("expected ErrEventNotFound, got %v", err)
	}
}

func TestBookingCancel_Success(t *testing.T) {
	t.Parallel()

	m := &bookingMocks{
		repo: &mockBookingRepo{
			getFunc: func(ctx context.Context, eventID string) (*model.Event, error) {
				return existingEvent(), nil
			},
			cancelFunc: func(ctx context.Context, eventID string) (*model.Event, error) {
				ev := existingEvent()
				ev.Canceled = true
				return ev, nil
			},
		},
	}
	svc := newBookingService(m)

	canceled, err := svc.Cancel(context.Background(), "user:creator", "event:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !canceled.Canceled {
		t.Error("expected event marked canceled")
	}
	if len(m.sync.scheduled) != 1 || m.sync.scheduled[0] != model.CalendarOpDelete {
		t.Errorf("expected delete sync scheduled, got %v", m.sync.scheduled)
	}
	if len(m.cache.invalidated) != 1 {
		t.Errorf("expected cache invalidated once, got %v", m.cache.invalidated)
	}
}

func TestBookingCancel_AlreadyCanceled_Idempotent(t *testing.T) {
	t.Parallel()

	cancelCalled := false
	m := &bookingMocks{
		repo: &mockBookingRepo{
			getFunc: func(ctx context.Context, eventID string) (*model.Event, error) {
				ev := existingEvent()
				ev.Canceled = true
				return ev, nil
			},
			cancelFunc: func(ctx context.Context, eventID string) (*model.Event, error) {
				cancelCalled = true
				return nil, nil
			},
		},
	}
	svc := newBookingService(m)

	event, err := svc.Cancel(context.Background(), "user:creator", "event:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !event.Canceled {
		t.Error("expected canceled event returned")
	}
	if cancelCalled {
		t.Error("second cancel must not hit the repository")
	}
	if len(m.sync.scheduled) != 0 {
		t.Error("second cancel must not schedule sync")
	}
}

func TestBookingGet_ParticipantMaySee(t *testing.T) {
	t.Parallel()

	m := &bookingMocks{
		repo: &mockBookingRepo{
			getFunc: func(ctx context.Context, eventID string) (*model.Event, error) {
				return existingEvent(), nil
			},
		},
	}
	svc := newBookingService(m)

	event, err := svc.Get(context.Background(), "user:bob", "bob@example.com", "event:1")
	if err != nil {
		t.Fatalf("participant must see the event, got %v", err)
	}
	if event.ID != "event:1" {
		t.Errorf("unexpected event %q", event.ID)
	}
}

func TestBookingGet_Stranger_Forbidden(t *testing.T) {
	t.Parallel()

	m := &bookingMocks{
		repo: &mockBookingRepo{
			getFunc: func(ctx context.Context, eventID string) (*model.Event, error) {
				return existingEvent(), nil
			},
		},
		users: &mockUserRepo{
			getByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
				return &model.User{ID: id, Email: "eve@example.com", Role: model.UserRoleUser}, nil
			},
		},
	}
	svc := newBookingService(m)

	_, err := svc.Get(context.Background(), "user:eve", "eve@example.com", "event:1")
	if !errors.Is(err, ErrNotAllowed) {
		t.Errorf("expected ErrNotAllowed, got %v", err)
	}
}

func TestBookingList_CacheHit_SkipsRepository(t *testing.T) {
	t.Parallel()

	cached := []*model.Event{existingEvent()}
	payload, _ := json.Marshal(cached)

	repoQueried := false
	m := &bookingMocks{
		repo: &mockBookingRepo{
			listFunc: func(ctx context.Context, userID, userEmail string, filters *model.EventFilters) ([]*model.Event, error) {
				repoQueried = true
				return nil, nil
			},
		},
		cache: &mockCache{
			getFunc: func(ctx context.Context, creatorID string, filters *model.EventFilters) ([]byte, bool) {
				return payload, true
			},
		},
	}
	svc := newBookingService(m)

	events, err := svc.List(context.Background(), "user:creator", "creator@example.com", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].ID != "event:1" {
		t.Errorf("expected cached listing served, got %+v", events)
	}
	if repoQueried {
		t.Error("cache hit must not query the repository")
	}
}

func TestBookingList_CacheMiss_PopulatesCache(t *testing.T) {
	t.Parallel()

	var putPayload []byte
	m := &bookingMocks{
		repo: &mockBookingRepo{
			listFunc: func(ctx context.Context, userID, userEmail string, filters *model.EventFilters) ([]*model.Event, error) {
				return []*model.Event{existingEvent()}, nil
			},
		},
		cache: &mockCache{
			putFunc: func(ctx context.Context, creatorID string, filters *model.EventFilters, payload []byte) {
				putPayload = payload
			},
		},
	}
	svc := newBookingService(m)

	events, err := svc.List(context.Background(), "user:creator", "creator@example.com", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if putPayload == nil {
		t.Fatal("expected cache populated on miss")
	}

	var stored []*model.Event
	if err := json.Unmarshal(putPayload, &stored); err != nil || len(stored) != 1 {
		t.Errorf("expected decodable cached payload, got err=%v len=%d", err, len(stored))
	}
}

func TestBookingList_CorruptCacheEntry_FallsBackToRepository(t *testing.T) {
	t.Parallel()

	m := &bookingMocks{
		repo: &mockBookingRepo{
			listFunc: func(ctx context.Context, userID, userEmail string, filters *model.EventFilters) ([]*model.Event, error) {
				return []*model.Event{existingEvent()}, nil
			},
		},
		cache: &mockCache{
			getFunc: func(ctx context.Context, creatorID string, filters *model.EventFilters) ([]byte, bool) {
				return []byte("{not json"), true
			},
		},
	}
	svc := newBookingService(m)

	events, err := svc.List(context.Background(), "user:creator", "creator@example.com", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected repository fallback, got %d events", len(events))
	}
}
