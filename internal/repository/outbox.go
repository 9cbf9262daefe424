package repository

import (
	"context"
	"errors"
	"time"

	"github.com/tempohq/tempo/api/internal/database"
	"github.com/tempohq/tempo/api/internal/model"
)

// OutboxRepository handles pending calendar sync operations.
//
// Each row records one operation (insert, update or delete) against the
// external calendar for one event. The pair (event, op) is unique: enqueueing
// the same operation again just reschedules the existing row, which keeps
// retries idempotent.
type OutboxRepository struct {
	db database.Database
}

// NewOutboxRepository creates a new outbox repository
func NewOutboxRepository(db database.Database) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Enqueue records a calendar operation for later dispatch and fills in the
// row's ID. If a pending row for the same event and op already exists it is
// reset to run immediately instead of duplicated. The existence check and the
// write run in one atomic batch so two concurrent enqueues for the same
// (event, op) cannot both take the CREATE branch.
func (r *OutboxRepository) Enqueue(ctx context.Context, op *model.CalendarOp) error {
	query := `
		LET $existing = (SELECT VALUE id FROM calendar_op
			WHERE event_id = $event_id AND op = $op AND done = false);
		IF array::len($existing) > 0 {
			UPDATE calendar_op SET attempts = 0, next_attempt = time::now(), last_error = NONE, updated_on = time::now()
				WHERE event_id = $event_id AND op = $op AND done = false
		} ELSE {
			CREATE calendar_op SET
				event_id = $event_id,
				user_id = $user_id,
				op = $op,
				done = false,
				attempts = 0,
				next_attempt = time::now(),
				created_on = time::now(),
				updated_on = time::now()
		}
	`
	vars := map[string]interface{}{
		"event_id": op.EventID,
		"user_id":  op.UserID,
		"op":       string(op.Op),
	}

	result, err := database.NewAtomicBatch().Add(query, vars).Execute(ctx, r.db)
	if err != nil {
		return err
	}

	for _, rec := range unwrapList(result) {
		if id, ok := rec["id"]; ok {
			op.ID = convertSurrealID(id)
		}
	}
	return nil
}

// Due returns pending operations whose next attempt time has passed, oldest
// first.
func (r *OutboxRepository) Due(ctx context.Context, limit int) ([]*model.CalendarOp, error) {
	query := `
		SELECT * FROM calendar_op
		WHERE done = false AND next_attempt <= time::now()
		ORDER BY next_attempt ASC
		LIMIT $limit
	`
	vars := map[string]interface{}{"limit": limit}

	result, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}

	ops := make([]*model.CalendarOp, 0)
	for _, data := range unwrapList(result) {
		op, err := parseCalendarOp(data)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// MarkDone marks an operation as dispatched.
func (r *OutboxRepository) MarkDone(ctx context.Context, opID string) error {
	query := `UPDATE calendar_op SET done = true, last_error = NONE, updated_on = time::now() WHERE id = type::record($op_id)`
	return r.db.Execute(ctx, query, map[string]interface{}{"op_id": opID})
}

// Reschedule records a failed attempt and pushes the next attempt out.
func (r *OutboxRepository) Reschedule(ctx context.Context, opID string, nextAttempt time.Time, lastError string) error {
	query := `
		UPDATE calendar_op SET
			attempts += 1,
			next_attempt = $next_attempt,
			last_error = $last_error,
			updated_on = time::now()
		WHERE id = type::record($op_id)
	`
	vars := map[string]interface{}{
		"op_id":        opID,
		"next_attempt": nextAttempt,
		"last_error":   lastError,
	}
	return r.db.Execute(ctx, query, vars)
}

// MarkFailed abandons an operation after the retry budget is exhausted. The
// row stays for inspection but is no longer picked up.
func (r *OutboxRepository) MarkFailed(ctx context.Context, opID string, lastError string) error {
	query := `UPDATE calendar_op SET done = true, last_error = $last_error, updated_on = time::now() WHERE id = type::record($op_id)`
	vars := map[string]interface{}{
		"op_id":      opID,
		"last_error": lastError,
	}
	return r.db.Execute(ctx, query, vars)
}

func parseCalendarOp(data map[string]interface{}) (*model.CalendarOp, error) {
	if data == nil {
		return nil, errors.New("unexpected result format")
	}

	op := &model.CalendarOp{
		ID:       convertSurrealID(data["id"]),
		EventID:  getString(data, "event_id"),
		UserID:   getString(data, "user_id"),
		Op:       model.CalendarOpKind(getString(data, "op")),
		Done:     getBool(data, "done"),
		Attempts: getInt(data, "attempts"),
	}
	op.LastError = getStringPtr(data, "last_error")
	if t := getTime(data, "next_attempt"); t != nil {
		op.NextAttempt = *t
	}
	if t := getTime(data, "created_on"); t != nil {
		op.CreatedOn = *t
	}
	return op, nil
}
