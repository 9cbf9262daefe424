package model

import "time"

// ParticipantStatus represents a participant's response to an invitation
type ParticipantStatus string

const (
	ParticipantStatusInvited  ParticipantStatus = "invited"
	ParticipantStatusAccepted ParticipantStatus = "accepted"
	ParticipantStatusDeclined ParticipantStatus = "declined"
)

// Participant is an invitee on an event, identified by email.
// Emails are not globally unique across events; the pair
// (participant email, active event) is what the overlap invariant ranges over.
type Participant struct {
	Email  string            `json:"email"`
	Status ParticipantStatus `json:"status"`
	// Per-participant mapping into the external calendar, when present.
	ExternalEventID *string `json:"external_event_id,omitempty"`
}

// Event represents a booked time slot for a creator and a set of participants.
//
// Events are never hard-deleted: cancellation sets Canceled and the record is
// retained for history. Canceled events are excluded from overlap checks and
// default listings.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Location    *string   `json:"location,omitempty"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`

	Participants []Participant `json:"participants"`

	// CreatorID references the owning user; CreatorEmail is denormalized onto
	// the event row so overlap queries resolve with a single indexed lookup.
	CreatorID    string `json:"creator_id"`
	CreatorEmail string `json:"creator_email"`

	// Recurrence metadata is stored and returned verbatim; the booking core
	// never expands it.
	IsRecurring    bool        `json:"is_recurring"`
	RecurringDates []time.Time `json:"recurring_dates,omitempty"`

	Canceled bool `json:"canceled"`

	// ExternalEventID maps to the external calendar provider's record.
	// Absent until a sync succeeds.
	ExternalEventID *string `json:"external_event_id,omitempty"`

	CreatedOn time.Time `json:"created_on"`
	UpdatedOn time.Time `json:"updated_on"`
}

// IsActive reports whether the event still occupies its participants' time.
func (e *Event) IsActive() bool {
	return !e.Canceled
}

// Overlaps reports whether [start, end) intersects the event's interval under
// half-open semantics. Touching boundaries do not overlap.
func (e *Event) Overlaps(start, end time.Time) bool {
	return e.StartTime.Before(end) && e.EndTime.After(start)
}

// Emails returns the distinct set of emails whose booking capacity this event
// consumes: the creator plus every participant, creator first, order preserved.
func (e *Event) Emails() []string {
	seen := map[string]bool{e.CreatorEmail: true}
	emails := []string{e.CreatorEmail}
	for _, p := range e.Participants {
		if !seen[p.Email] {
			seen[p.Email] = true
			emails = append(emails, p.Email)
		}
	}
	return emails
}

// HasParticipant reports whether the email is the creator or an invitee.
func (e *Event) HasParticipant(email string) bool {
	if e.CreatorEmail == email {
		return true
	}
	for _, p := range e.Participants {
		if p.Email == email {
			return true
		}
	}
	return false
}

// Constraints
const (
	MaxEventTitleLength       = 100
	MaxEventDescriptionLength = 2000
	MaxParticipantsPerEvent   = 100
)

// CreateEventRequest represents a request to book an event
type CreateEventRequest struct {
	Title          string      `json:"title"`
	Description    *string     `json:"description,omitempty"`
	StartTime      time.Time   `json:"start_time"`
	EndTime        time.Time   `json:"end_time"`
	Location       *string     `json:"location,omitempty"`
	Participants   []string    `json:"participants,omitempty"`
	IsRecurring    bool        `json:"is_recurring,omitempty"`
	RecurringDates []time.Time `json:"recurring_dates,omitempty"`
}

// UpdateEventRequest represents a partial update to an event.
// Nil fields are left unchanged. Changing StartTime or EndTime triggers a
// fresh overlap check for every affected email.
type UpdateEventRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
}

// ChangesInterval reports whether the update touches the event's times.
func (r *UpdateEventRequest) ChangesInterval() bool {
	return r.StartTime != nil || r.EndTime != nil
}

// EventFilters narrows event listings
type EventFilters struct {
	From        *time.Time `json:"from,omitempty"`
	To          *time.Time `json:"to,omitempty"`
	Participant *string    `json:"participant,omitempty"`
}
