package service

import (
	"context"
	"time"

	"github.com/tempohq/tempo/api/internal/model"
)

// OverlapFinder is the slice of the event repository the checker needs.
type OverlapFinder interface {
	FindActiveOverlapping(ctx context.Context, email string, start, end time.Time, excludeID string) ([]*model.Event, error)
}

// OverlapChecker detects booking conflicts: an email attached to an active
// event whose interval intersects a candidate window under half-open
// semantics. An event ending exactly when the window starts is not a
// conflict.
type OverlapChecker struct {
	repo OverlapFinder
}

// NewOverlapChecker creates a new overlap checker
func NewOverlapChecker(repo OverlapFinder) *OverlapChecker {
	return &OverlapChecker{repo: repo}
}

// Check verifies that none of the emails has an active event overlapping
// [start, end). Emails are checked in the order given; the first conflicting
// email is reported, so callers pass the creator first. excludeID, when
// non-empty, is skipped so a reschedule does not conflict with itself.
//
// This is a pre-check: it can race with concurrent bookings, which is why
// writes re-run the same predicate inside transaction guards.
func (c *OverlapChecker) Check(ctx context.Context, emails []string, start, end time.Time, excludeID string) error {
	for _, email := range emails {
		overlapping, err := c.repo.FindActiveOverlapping(ctx, email, start, end, excludeID)
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return &ConflictError{Subject: email}
		}
	}
	return nil
}
