package model

import "time"

// CalendarOpKind identifies the kind of external calendar operation.
type CalendarOpKind string

const (
	CalendarOpInsert CalendarOpKind = "insert"
	CalendarOpUpdate CalendarOpKind = "update"
	CalendarOpDelete CalendarOpKind = "delete"
)

// CalendarOp is one pending (or settled) sync operation against the external
// calendar provider. Rows are unique per (EventID, Op) while pending, so
// repeated enqueues collapse into a single dispatch.
type CalendarOp struct {
	ID          string         `json:"id"`
	EventID     string         `json:"event_id"`
	UserID      string         `json:"user_id"`
	Op          CalendarOpKind `json:"op"`
	Done        bool           `json:"done"`
	Attempts    int            `json:"attempts"`
	NextAttempt time.Time      `json:"next_attempt"`
	LastError   *string        `json:"last_error,omitempty"`
	CreatedOn   time.Time      `json:"created_on"`
}
