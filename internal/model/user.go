package model

import (
	"time"

	"golang.org/x/oauth2"
)

// UserRole represents the role of a user in the system
type UserRole string

const (
	UserRoleUser  UserRole = "user"  // Default role
	UserRoleAdmin UserRole = "admin" // May mutate any event
)

// User represents a user account. Registration and credential management live
// outside this service; the booking core reads users only to resolve the
// creator's email and calendar connection.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      UserRole  `json:"role"`
	CreatedOn time.Time `json:"created_on"`
	UpdatedOn time.Time `json:"updated_on"`

	// Calendar holds the user's external calendar connection, nil until the
	// user completes the provider's OAuth flow.
	Calendar *CalendarConnection `json:"calendar,omitempty"`
}

// IsAdmin returns true if the user has admin role
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// CalendarConnection is a user's credential bundle for the external calendar
// provider.
type CalendarConnection struct {
	CalendarID string        `json:"calendar_id"`
	Token      *oauth2.Token `json:"-"` // Never expose tokens
}

// Connected reports whether external sync can be attempted for this user.
func (u *User) Connected() bool {
	return u.Calendar != nil && u.Calendar.Token != nil
}
