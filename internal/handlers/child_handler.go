package handlers

import (
	"net/http"

	"kidshield/internal/service"
)

// ChildHandler serves /children
type ChildHandler struct {
	childService *service.ChildService
}

// NewChildHandler creates a new child handler
func NewChildHandler(childService *service.ChildService) *ChildHandler {
	return &ChildHandler{childService: childService}
}

// CreateChild adds a child to the authenticated family
func (h *ChildHandler) CreateChild(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var req service.CreateChildInput
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, msgInvalidJSON, nil)
		return
	}

	child, err := h.childService.Create(r.Context(), claims.FamilyID, req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, child)
}

// ListChildren returns the authenticated family's children
func (h *ChildHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	children, err := h.childService.List(r.Context(), claims.FamilyID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, children)
}
