package handlers

import (
	"net/http"

	"kidshield/internal/service"
)

type okResponse struct {
	OK bool `json:"ok"`
}

// EventHandler serves /events
type EventHandler struct {
	eventService *service.EventService
}

// NewEventHandler creates a new event handler
func NewEventHandler(eventService *service.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// RecordEvent stores a usage event for the authenticated family
func (h *EventHandler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var req service.RecordEventInput
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, msgInvalidJSON, nil)
		return
	}

	if err := h.eventService.Record(r.Context(), claims.FamilyID, req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, okResponse{OK: true})
}

// Health reports liveness. It does not touch the database.
func Health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, okResponse{OK: true})
}
