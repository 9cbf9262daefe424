package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tempohq/tempo/api/internal/middleware"
	"github.com/tempohq/tempo/api/internal/model"
	"github.com/tempohq/tempo/api/internal/service"
)

// EventHandler handles event endpoints
type EventHandler struct {
	bookings *service.BookingService
}

// NewEventHandler creates a new event handler
func NewEventHandler(bookings *service.BookingService) *EventHandler {
	return &EventHandler{bookings: bookings}
}

// CreateEvent handles POST /v1/events - book a new event
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	var req model.CreateEventRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	event, err := h.bookings.Create(r.Context(), userID, &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusCreated, event, map[string]string{
		"self": "/v1/events/" + event.ID,
	})
}

// ListEvents handles GET /v1/events - list the user's events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	filters, err := parseEventFilters(r)
	if err != nil {
		WriteError(w, model.NewBadRequestError(err.Error()))
		return
	}

	events, err := h.bookings.List(r.Context(), userID, middleware.GetUserEmail(r.Context()), filters)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteCollection(w, http.StatusOK, events, nil)
}

// GetEvent handles GET /v1/events/{eventId} - get event details
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	eventID := r.PathValue("eventId")
	if eventID == "" {
		WriteError(w, model.NewBadRequestError("event ID required"))
		return
	}

	event, err := h.bookings.Get(r.Context(), userID, middleware.GetUserEmail(r.Context()), eventID)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, event, map[string]string{
		"self": "/v1/events/" + event.ID,
	})
}

// UpdateEvent handles PATCH /v1/events/{eventId} - partially update an event
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	eventID := r.PathValue("eventId")
	if eventID == "" {
		WriteError(w, model.NewBadRequestError("event ID required"))
		return
	}

	var req model.UpdateEventRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	event, err := h.bookings.Update(r.Context(), userID, eventID, &req)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, event, map[string]string{
		"self": "/v1/events/" + event.ID,
	})
}

// CancelEvent handles DELETE /v1/events/{eventId} - cancel an event
func (h *EventHandler) CancelEvent(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	eventID := r.PathValue("eventId")
	if eventID == "" {
		WriteError(w, model.NewBadRequestError("event ID required"))
		return
	}

	if _, err := h.bookings.Cancel(r.Context(), userID, eventID); err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"message": "event canceled",
	})
}

func parseEventFilters(r *http.Request) (*model.EventFilters, error) {
	q := r.URL.Query()
	filters := &model.EventFilters{}

	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("invalid from filter: must be RFC 3339")
		}
		filters.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("invalid to filter: must be RFC 3339")
		}
		filters.To = &t
	}
	if v := q.Get("participant"); v != "" {
		filters.Participant = &v
	}

	if filters.From == nil && filters.To == nil && filters.Participant == nil {
		return nil, nil
	}
	return filters, nil
}
