package repository

import (
	"context"
	"errors"

	"golang.org/x/oauth2"

	"github.com/tempohq/tempo/api/internal/database"
	"github.com/tempohq/tempo/api/internal/model"
)

// UserRepository handles user data access
type UserRepository struct {
	db database.Database
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.Database) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT * FROM type::record($id)`
	vars := map[string]interface{}{"id": id}

	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return parseUserResult(result)
}

// SaveCalendarConnection stores the user's external calendar credentials.
// Token material lives only on the user row; it is never serialized into API
// responses.
func (r *UserRepository) SaveCalendarConnection(ctx context.Context, userID string, conn *model.CalendarConnection) error {
	calendarID := conn.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}

	query := `
		UPDATE user SET
			calendar_id = $calendar_id,
			calendar_token = $calendar_token,
			updated_on = time::now()
		WHERE id = type::record($user_id)
	`
	vars := map[string]interface{}{
		"user_id":     userID,
		"calendar_id": calendarID,
		"calendar_token": map[string]interface{}{
			"access_token":  conn.Token.AccessToken,
			"refresh_token": conn.Token.RefreshToken,
			"token_type":    conn.Token.TokenType,
			"expiry":        conn.Token.Expiry,
		},
	}
	return r.db.Execute(ctx, query, vars)
}

func parseUserResult(result interface{}) (*model.User, error) {
	if result == nil {
		return nil, database.ErrNotFound
	}

	data, ok := result.(map[string]interface{})
	if !ok {
		return nil, errors.New("unexpected result format")
	}

	user := &model.User{
		ID:    convertSurrealID(data["id"]),
		Email: getString(data, "email"),
		Role:  model.UserRole(getString(data, "role")),
	}
	if user.Role == "" {
		user.Role = model.UserRoleUser
	}
	if t := getTime(data, "created_on"); t != nil {
		user.CreatedOn = *t
	}
	if t := getTime(data, "updated_on"); t != nil {
		user.UpdatedOn = *t
	}

	if calID := getString(data, "calendar_id"); calID != "" {
		conn := &model.CalendarConnection{CalendarID: calID}
		if tok, ok := data["calendar_token"].(map[string]interface{}); ok {
			conn.Token = &oauth2.Token{
				AccessToken:  getString(tok, "access_token"),
				RefreshToken: getString(tok, "refresh_token"),
				TokenType:    getString(tok, "token_type"),
			}
			if t := getTime(tok, "expiry"); t != nil {
				conn.Token.Expiry = *t
			}
		}
		user.Calendar = conn
	}

	return user, nil
}
