package service

import (
	"context"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/tempohq/tempo/api/internal/model"
)

// TokenExchanger is the OAuth half of the calendar provider client.
type TokenExchanger interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// ConnectionStore persists a user's calendar credentials.
type ConnectionStore interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	SaveCalendarConnection(ctx context.Context, userID string, conn *model.CalendarConnection) error
}

// CalendarConnector runs the OAuth flow that links a user account to the
// external calendar provider. Until a user connects, sync operations for
// their bookings settle without dispatching.
type CalendarConnector struct {
	provider TokenExchanger
	users    ConnectionStore
	logger   *slog.Logger
}

// NewCalendarConnector creates a new calendar connector
func NewCalendarConnector(provider TokenExchanger, users ConnectionStore, logger *slog.Logger) *CalendarConnector {
	return &CalendarConnector{
		provider: provider,
		users:    users,
		logger:   logger,
	}
}

// AuthURL returns the provider consent URL for the user. The user ID rides
// along as the OAuth state parameter so the callback can be correlated.
func (c *CalendarConnector) AuthURL(ctx context.Context, userID string) (string, error) {
	user, err := c.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrUserNotFound
	}
	return c.provider.AuthCodeURL(userID), nil
}

// Connect exchanges the authorization code from the provider callback and
// stores the resulting credentials on the user. The primary calendar is used
// until the user picks another one.
func (c *CalendarConnector) Connect(ctx context.Context, userID, code string) error {
	if code == "" {
		return ErrAuthCodeRequired
	}

	user, err := c.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	token, err := c.provider.Exchange(ctx, code)
	if err != nil {
		c.logger.WarnContext(ctx, "calendar authorization code rejected",
			"user_id", userID, "error", err)
		return ErrInvalidAuthCode
	}

	conn := &model.CalendarConnection{Token: token}
	if err := c.users.SaveCalendarConnection(ctx, userID, conn); err != nil {
		return err
	}

	c.logger.InfoContext(ctx, "calendar connected", "user_id", userID)
	return nil
}
