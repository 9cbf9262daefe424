package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tempohq/tempo/api/internal/database"
	"github.com/tempohq/tempo/api/internal/model"
)

// EventRepository handles event data access
type EventRepository struct {
	db database.Database
}

// NewEventRepository creates a new event repository
func NewEventRepository(db database.Database) *EventRepository {
	return &EventRepository{db: db}
}

// overlapGuard appends a guard statement for one email to the transaction
// batch. The guard re-runs the overlap check inside the transaction and
// throws when any active event for the email intersects [start, end), which
// aborts the whole batch. excludeID skips the event being rescheduled.
func overlapGuard(tb *database.TxBuilder, n int, email string, start, end time.Time, excludeID string) {
	vars := map[string]interface{}{
		"the_email": email,
		"win_start": start,
		"win_end":   end,
	}
	filter := `canceled = false
			AND start_time < $win_end AND end_time > $win_start
			AND (creator_email = $the_email OR participants.email CONTAINS $the_email)`
	if excludeID != "" {
		filter += ` AND id != type::record($skip)`
		vars["skip"] = excludeID
	}

	// $clash_N is a LET variable, not a bound parameter, so it is numbered
	// here rather than namespaced by the builder.
	guard := fmt.Sprintf(`LET $clash_%d = (SELECT VALUE id FROM event WHERE %s);
		IF array::len($clash_%d) > 0 { THROW "booking conflict: " + %s }`,
		n, filter, n, "$the_email")

	tb.Add(guard, vars)
}

// CreateChecked inserts a new event inside a single transaction that first
// re-verifies, per affected email, that no active event overlaps the new
// interval. Returns database.ErrConflict when a guard fires, so a booking
// that raced past the caller's pre-check still cannot commit.
func (r *EventRepository) CreateChecked(ctx context.Context, event *model.Event) error {
	tb := database.NewTxBuilder()

	for i, email := range event.Emails() {
		overlapGuard(tb, i, email, event.StartTime, event.EndTime, "")
	}

	vars := map[string]interface{}{
		"title":         event.Title,
		"start_time":    event.StartTime,
		"end_time":      event.EndTime,
		"participants":  participantMaps(event.Participants),
		"creator_id":    event.CreatorID,
		"creator_email": event.CreatorEmail,
		"is_recurring":  event.IsRecurring,
	}

	setClause := `
		title = $title,
		start_time = $start_time,
		end_time = $end_time,
		participants = $participants,
		creator_id = $creator_id,
		creator_email = $creator_email,
		is_recurring = $is_recurring,
		canceled = false,
		created_on = time::now(),
		updated_on = time::now()`

	if event.Description != nil {
		setClause += ", description = $description"
		vars["description"] = event.Description
	}
	if event.Location != nil {
		setClause += ", location = $location"
		vars["location"] = event.Location
	}
	if len(event.RecurringDates) > 0 {
		setClause += ", recurring_dates = $recurring_dates"
		vars["recurring_dates"] = event.RecurringDates
	}

	tb.Add("CREATE event SET "+setClause, vars)

	result, err := database.ExecuteTransaction(ctx, r.db, tb)
	if err != nil {
		return err
	}

	created, err := extractCreatedRecord(result)
	if err != nil {
		return err
	}

	event.ID = created.ID
	event.CreatedOn = created.CreatedOn
	event.UpdatedOn = created.UpdatedOn
	return nil
}

// UpdateChecked applies updates to an event inside a transaction guarded by
// fresh overlap checks for every email against [start, end), excluding the
// event itself. Used for reschedules, where the event's own old interval must
// not count as a conflict.
func (r *EventRepository) UpdateChecked(ctx context.Context, eventID string, updates map[string]interface{}, emails []string, start, end time.Time) (*model.Event, error) {
	tb := database.NewTxBuilder()

	for i, email := range emails {
		overlapGuard(tb, i, email, start, end, eventID)
	}

	query := `UPDATE event SET updated_on = time::now()`
	vars := map[string]interface{}{"event_id": eventID}
	for key, value := range updates {
		query += ", " + key + " = $" + key
		vars[key] = value
	}
	query += ` WHERE id = type::record($event_id) RETURN AFTER`
	tb.Add(query, vars)

	result, err := database.ExecuteTransaction(ctx, r.db, tb)
	if err != nil {
		return nil, err
	}

	data := unwrapSingle(lastResult(result))
	if data == nil {
		return nil, database.ErrNotFound
	}
	return r.parseEventResult(data)
}

// Get retrieves an event by ID
func (r *EventRepository) Get(ctx context.Context, eventID string) (*model.Event, error) {
	// Direct record access - more efficient than WHERE id =
	query := `SELECT * FROM type::record($event_id)`
	vars := map[string]interface{}{"event_id": eventID}

	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return r.parseEventResult(result)
}

// Update applies a partial update without overlap guards. Only safe for
// fields that cannot change the event's interval.
func (r *EventRepository) Update(ctx context.Context, eventID string, updates map[string]interface{}) (*model.Event, error) {
	query := `UPDATE event SET updated_on = time::now()`
	vars := map[string]interface{}{"event_id": eventID}

	for key, value := range updates {
		query += ", " + key + " = $" + key
		vars[key] = value
	}

	query += ` WHERE id = type::record($event_id) RETURN AFTER`

	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		return nil, err
	}

	return r.parseEventResult(result)
}

// Cancel soft-deletes an event. The record is retained for history and
// excluded from overlap checks and default listings.
func (r *EventRepository) Cancel(ctx context.Context, eventID string) (*model.Event, error) {
	return r.Update(ctx, eventID, map[string]interface{}{"canceled": true})
}

// List retrieves the events a user can see: those they created plus those
// they participate in. Canceled events are excluded.
func (r *EventRepository) List(ctx context.Context, userID, userEmail string, filters *model.EventFilters) ([]*model.Event, error) {
	query := `
		SELECT * FROM event
		WHERE canceled = false
		AND (creator_id = $user_id OR creator_email = $user_email OR participants.email CONTAINS $user_email)
	`
	vars := map[string]interface{}{
		"user_id":    userID,
		"user_email": userEmail,
	}

	if filters != nil {
		if filters.From != nil {
			query += ` AND end_time > $from`
			vars["from"] = *filters.From
		}
		if filters.To != nil {
			query += ` AND start_time < $to`
			vars["to"] = *filters.To
		}
		if filters.Participant != nil {
			query += ` AND (creator_email = $p_email OR participants.email CONTAINS $p_email)`
			vars["p_email"] = *filters.Participant
		}
	}

	query += ` ORDER BY start_time ASC`

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}

	return r.parseEventsResult(result)
}

// FindActiveOverlapping returns the active events for an email whose interval
// intersects [start, end). excludeID, when non-empty, skips that event so a
// reschedule does not collide with itself.
func (r *EventRepository) FindActiveOverlapping(ctx context.Context, email string, start, end time.Time, excludeID string) ([]*model.Event, error) {
	query := `
		SELECT * FROM event
		WHERE canceled = false
		AND start_time < $win_end AND end_time > $win_start
		AND (creator_email = $the_email OR participants.email CONTAINS $the_email)
	`
	vars := map[string]interface{}{
		"the_email": email,
		"win_start": start,
		"win_end":   end,
	}

	if excludeID != "" {
		query += ` AND id != type::record($skip)`
		vars["skip"] = excludeID
	}

	query += ` ORDER BY start_time ASC`

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}

	return r.parseEventsResult(result)
}

// SetExternalID records the external calendar provider's ID for an event
// after a successful sync.
func (r *EventRepository) SetExternalID(ctx context.Context, eventID, externalID string) error {
	query := `UPDATE event SET external_event_id = $external_id, updated_on = time::now() WHERE id = type::record($event_id)`
	vars := map[string]interface{}{
		"event_id":    eventID,
		"external_id": externalID,
	}
	return r.db.Execute(ctx, query, vars)
}

func participantMaps(participants []model.Participant) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(participants))
	for _, p := range participants {
		m := map[string]interface{}{
			"email":  p.Email,
			"status": string(p.Status),
		}
		if p.ExternalEventID != nil {
			m["external_event_id"] = *p.ExternalEventID
		}
		out = append(out, m)
	}
	return out
}

func lastResult(result []interface{}) interface{} {
	for i := len(result) - 1; i >= 0; i-- {
		if resp, ok := result[i].(map[string]interface{}); ok {
			if inner, ok := resp["result"]; ok {
				if arr, ok := inner.([]interface{}); ok && len(arr) == 0 {
					continue
				}
				return inner
			}
		}
		if result[i] != nil {
			return result[i]
		}
	}
	return nil
}

func (r *EventRepository) parseEventResult(result interface{}) (*model.Event, error) {
	if result == nil {
		return nil, database.ErrNotFound
	}

	data, ok := result.(map[string]interface{})
	if !ok {
		return nil, errors.New("unexpected result format")
	}

	if id, ok := data["id"]; ok {
		data["id"] = convertSurrealID(id)
	}
	if cid, ok := data["creator_id"]; ok {
		if s := convertSurrealID(cid); s != "" {
			data["creator_id"] = s
		}
	}

	jsonBytes, err := json.Marshal(scrubNonJSON(data))
	if err != nil {
		return nil, err
	}

	var event model.Event
	if err := json.Unmarshal(jsonBytes, &event); err != nil {
		return nil, err
	}

	if t := getTime(data, "start_time"); t != nil {
		event.StartTime = *t
	}
	if t := getTime(data, "end_time"); t != nil {
		event.EndTime = *t
	}
	if t := getTime(data, "created_on"); t != nil {
		event.CreatedOn = *t
	}
	if t := getTime(data, "updated_on"); t != nil {
		event.UpdatedOn = *t
	}
	event.RecurringDates = getTimeSlice(data, "recurring_dates")

	if parts, ok := data["participants"].([]interface{}); ok {
		event.Participants = make([]model.Participant, 0, len(parts))
		for _, item := range parts {
			pm, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			p := model.Participant{
				Email:           getString(pm, "email"),
				Status:          model.ParticipantStatus(getString(pm, "status")),
				ExternalEventID: getStringPtr(pm, "external_event_id"),
			}
			if p.Status == "" {
				p.Status = model.ParticipantStatusInvited
			}
			event.Participants = append(event.Participants, p)
		}
	}

	return &event, nil
}

func (r *EventRepository) parseEventsResult(result []interface{}) ([]*model.Event, error) {
	events := make([]*model.Event, 0)
	for _, data := range unwrapList(result) {
		event, err := r.parseEventResult(data)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// scrubNonJSON drops values the CBOR decoder produces that json.Marshal
// cannot handle (datetimes, record IDs inside nested structures). The typed
// fields are re-read from the raw map afterwards.
func scrubNonJSON(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		if sv, ok := scrubValue(v); ok {
			out[k] = sv
		}
	}
	return out
}

func scrubValue(v interface{}) (interface{}, bool) {
	switch tv := v.(type) {
	case string, bool, float64, float32, int, int64, uint64, nil:
		return v, true
	case []interface{}:
		out := make([]interface{}, 0, len(tv))
		for _, item := range tv {
			if sv, ok := scrubValue(item); ok {
				out = append(out, sv)
			}
		}
		return out, true
	case map[string]interface{}:
		return scrubNonJSON(tv), true
	default:
		// CustomDateTime, RecordID and friends
		return nil, false
	}
}
