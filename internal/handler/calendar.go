package handler

import (
	"net/http"

	"github.com/tempohq/tempo/api/internal/middleware"
	"github.com/tempohq/tempo/api/internal/model"
	"github.com/tempohq/tempo/api/internal/service"
)

// CalendarHandler handles external calendar connection endpoints
type CalendarHandler struct {
	connector *service.CalendarConnector
}

// NewCalendarHandler creates a new calendar handler
func NewCalendarHandler(connector *service.CalendarConnector) *CalendarHandler {
	return &CalendarHandler{connector: connector}
}

// ConnectURL handles GET /v1/calendar/connect - start the provider OAuth flow
func (h *CalendarHandler) ConnectURL(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	url, err := h.connector.AuthURL(r.Context(), userID)
	if err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteData(w, http.StatusOK, map[string]string{"url": url}, nil)
}

// Callback handles POST /v1/calendar/callback - finish the provider OAuth flow
func (h *CalendarHandler) Callback(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	if err := h.connector.Connect(r.Context(), userID, req.Code); err != nil {
		WriteError(w, MapServiceError(err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"message": "calendar connected",
	})
}
