package service

import (
	"context"
	"time"

	"github.com/tempohq/tempo/api/internal/model"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockBookingRepo struct {
	createCheckedFunc func(ctx context.Context, event *model.Event) error
	updateCheckedFunc func(ctx context.Context, eventID string, updates map[string]interface{}, emails []string, start, end time.Time) (*model.Event, error)
	getFunc           func(ctx context.Context, eventID string) (*model.Event, error)
	updateFunc        func(ctx context.Context, eventID string, updates map[string]interface{}) (*model.Event, error)
	cancelFunc        func(ctx context.Context, eventID string) (*model.Event, error)
	listFunc          func(ctx context.Context, userID, userEmail string, filters *model.EventFilters) ([]*model.Event, error)
	findOverlapFunc   func(ctx context.Context, email string, start, end time.Time, excludeID string) ([]*model.Event, error)
}

func (m *mockBookingRepo) CreateChecked(ctx context.Context, event *model.Event) error {
	if m.createCheckedFunc != nil {
		return m.createCheckedFunc(ctx, event)
	}
	event.ID = "event:created"
	return nil
}

func (m *mockBookingRepo) UpdateChecked(ctx context.Context, eventID string, updates map[string]interface{}, emails []string, start, end time.Time) (*model.Event, error) {
	if m.updateCheckedFunc != nil {
		return m.updateCheckedFunc(ctx, eventID, updates, emails, start, end)
	}
	return nil, nil
}

func (m *mockBookingRepo) Get(ctx context.Context, eventID string) (*model.Event, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, eventID)
	}
	return nil, nil
}

func (m *mockBookingRepo) Update(ctx context.Context, eventID string, updates map[string]interface{}) (*model.Event, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, eventID, updates)
	}
	return nil, nil
}

func (m *mockBookingRepo) Cancel(ctx context.Context, eventID string) (*model.Event, error) {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, eventID)
	}
	return nil, nil
}

func (m *mockBookingRepo) List(ctx context.Context, userID, userEmail string, filters *model.EventFilters) ([]*model.Event, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, userID, userEmail, filters)
	}
	return nil, nil
}

func (m *mockBookingRepo) FindActiveOverlapping(ctx context.Context, email string, start, end time.Time, excludeID string) ([]*model.Event, error) {
	if m.findOverlapFunc != nil {
		return m.findOverlapFunc(ctx, email, start, end, excludeID)
	}
	return nil, nil
}

type mockUserRepo struct {
	getByIDFunc func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

type mockCache struct {
	getFunc         func(ctx context.Context, creatorID string, filters *model.EventFilters) ([]byte, bool)
	putFunc         func(ctx context.Context, creatorID string, filters *model.EventFilters, payload []byte)
	invalidated     []string
	invalidatedFunc func(ctx context.Context, creatorID string)
}

func (m *mockCache) GetListing(ctx context.Context, creatorID string, filters *model.EventFilters) ([]byte, bool) {
	if m.getFunc != nil {
		return m.getFunc(ctx, creatorID, filters)
	}
	return nil, false
}

func (m *mockCache) PutListing(ctx context.Context, creatorID string, filters *model.EventFilters, payload []byte) {
	if m.putFunc != nil {
		m.putFunc(ctx, creatorID, filters, payload)
	}
}

func (m *mockCache) Invalidate(ctx context.Context, creatorID string) {
	m.invalidated = append(m.invalidated, creatorID)
	if m.invalidatedFunc != nil {
		m.invalidatedFunc(ctx, creatorID)
	}
}

type mockNotifier struct {
	invitedFunc  func(ctx context.Context, event *model.Event) error
	updatedFunc  func(ctx context.Context, event *model.Event) error
	canceledFunc func(ctx context.Context, event *model.Event) error
}

func (m *mockNotifier) EventInvited(ctx context.Context, event *model.Event) error {
	if m.invitedFunc != nil {
		return m.invitedFunc(ctx, event)
	}
	return nil
}

func (m *mockNotifier) EventUpdated(ctx context.Context, event *model.Event) error {
	if m.updatedFunc != nil {
		return m.updatedFunc(ctx, event)
	}
	return nil
}

func (m *mockNotifier) EventCanceled(ctx context.Context, event *model.Event) error {
	if m.canceledFunc != nil {
		return m.canceledFunc(ctx, event)
	}
	return nil
}

type mockSync struct {
	scheduled []model.CalendarOpKind
}

func (m *mockSync) Schedule(ctx context.Context, event *model.Event, kind model.CalendarOpKind) {
	m.scheduled = append(m.scheduled, kind)
}

type mockOutbox struct {
	enqueueFunc  func(ctx context.Context, op *model.CalendarOp) error
	markDoneFunc func(ctx context.Context, opID string) error
	done         []string
}

func (m *mockOutbox) Enqueue(ctx context.Context, op *model.CalendarOp) error {
	if m.enqueueFunc != nil {
		return m.enqueueFunc(ctx, op)
	}
	op.ID = "calendar_op:pending"
	return nil
}

func (m *mockOutbox) MarkDone(ctx context.Context, opID string) error {
	m.done = append(m.done, opID)
	if m.markDoneFunc != nil {
		return m.markDoneFunc(ctx, opID)
	}
	return nil
}

type mockEventSyncStore struct {
	getFunc           func(ctx context.Context, eventID string) (*model.Event, error)
	setExternalIDFunc func(ctx context.Context, eventID, externalID string) error
	externalIDs       map[string]string
}

func (m *mockEventSyncStore) Get(ctx context.Context, eventID string) (*model.Event, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, eventID)
	}
	return nil, nil
}

func (m *mockEventSyncStore) SetExternalID(ctx context.Context, eventID, externalID string) error {
	if m.externalIDs == nil {
		m.externalIDs = make(map[string]string)
	}
	m.externalIDs[eventID] = externalID
	if m.setExternalIDFunc != nil {
		return m.setExternalIDFunc(ctx, eventID, externalID)
	}
	return nil
}

type mockCalendarSync struct {
	insertFunc func(ctx context.Context, user *model.User, event *model.Event) (string, error)
	updateFunc func(ctx context.Context, user *model.User, event *model.Event) error
	deleteFunc func(ctx context.Context, user *model.User, event *model.Event) error
}

func (m *mockCalendarSync) Insert(ctx context.Context, user *model.User, event *model.Event) (string, error) {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, user, event)
	}
	return "ext-1", nil
}

func (m *mockCalendarSync) Update(ctx context.Context, user *model.User, event *model.Event) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, user, event)
	}
	return nil
}

func (m *mockCalendarSync) Delete(ctx context.Context, user *model.User, event *model.Event) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, user, event)
	}
	return nil
}
