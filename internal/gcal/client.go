package gcal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/tempohq/tempo/api/internal/model"
)

// Config holds the OAuth application credentials for the provider.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Client talks to the Google Calendar API on behalf of connected users. It
// implements the service layer's CalendarSync interface.
type Client struct {
	oauth  *oauth2.Config
	logger *slog.Logger
}

// NewClient creates a new Google Calendar client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{calendar.CalendarEventsScope},
			Endpoint:     google.Endpoint,
		},
		logger: logger,
	}
}

// AuthCodeURL returns the provider's consent page URL for the OAuth flow.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token bundle. Offline access
// is requested in AuthCodeURL, so the bundle includes a refresh token.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return token, nil
}

// Insert creates the event in the user's calendar and returns the provider's
// event ID.
func (c *Client) Insert(ctx context.Context, user *model.User, event *model.Event) (string, error) {
	svc, calendarID, err := c.serviceFor(ctx, user)
	if err != nil {
		return "", err
	}

	created, err := svc.Events.Insert(calendarID, toGoogleEvent(event)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert calendar event: %w", err)
	}

	c.logger.InfoContext(ctx, "calendar event inserted",
		"event_id", event.ID, "external_id", created.Id)
	return created.Id, nil
}

// Update pushes the event's current state to the provider.
func (c *Client) Update(ctx context.Context, user *model.User, event *model.Event) error {
	if event.ExternalEventID == nil {
		return fmt.Errorf("event %s has no external calendar id", event.ID)
	}

	svc, calendarID, err := c.serviceFor(ctx, user)
	if err != nil {
		return err
	}

	if _, err := svc.Events.Update(calendarID, *event.ExternalEventID, toGoogleEvent(event)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("update calendar event: %w", err)
	}
	return nil
}

// Delete removes the event from the user's calendar.
func (c *Client) Delete(ctx context.Context, user *model.User, event *model.Event) error {
	if event.ExternalEventID == nil {
		return fmt.Errorf("event %s has no external calendar id", event.ID)
	}

	svc, calendarID, err := c.serviceFor(ctx, user)
	if err != nil {
		return err
	}

	if err := svc.Events.Delete(calendarID, *event.ExternalEventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	return nil
}

// serviceFor builds an authenticated API client from the user's stored
// token. The oauth2 transport refreshes expired tokens transparently.
func (c *Client) serviceFor(ctx context.Context, user *model.User) (*calendar.Service, string, error) {
	if !user.Connected() {
		return nil, "", fmt.Errorf("user %s has no calendar connection", user.ID)
	}

	httpClient := c.oauth.Client(ctx, user.Calendar.Token)
	svc, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, "", fmt.Errorf("create calendar service: %w", err)
	}

	calendarID := user.Calendar.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}
	return svc, calendarID, nil
}

func toGoogleEvent(event *model.Event) *calendar.Event {
	g := &calendar.Event{
		Summary: event.Title,
		Start:   &calendar.EventDateTime{DateTime: event.StartTime.UTC().Format(time.RFC3339)},
		End:     &calendar.EventDateTime{DateTime: event.EndTime.UTC().Format(time.RFC3339)},
	}
	if event.Description != nil {
		g.Description = *event.Description
	}
	if event.Location != nil {
		g.Location = *event.Location
	}
	for _, p := range event.Participants {
		attendee := &calendar.EventAttendee{Email: p.Email}
		switch p.Status {
		case model.ParticipantStatusAccepted:
			attendee.ResponseStatus = "accepted"
		case model.ParticipantStatusDeclined:
			attendee.ResponseStatus = "declined"
		default:
			attendee.ResponseStatus = "needsAction"
		}
		g.Attendees = append(g.Attendees, attendee)
	}
	return g
}
