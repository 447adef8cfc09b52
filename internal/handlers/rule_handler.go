package handlers

import (
	"net/http"

	"kidshield/internal/service"
)

// RuleHandler serves /rules and /policy
type RuleHandler struct {
	ruleService *service.RuleService
}

// NewRuleHandler creates a new rule handler
func NewRuleHandler(ruleService *service.RuleService) *RuleHandler {
	return &RuleHandler{ruleService: ruleService}
}

// ListRules returns every rule of the authenticated family
func (h *RuleHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	rules, err := h.ruleService.List(r.Context(), claims.FamilyID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, rules)
}

// UpsertRule creates or replaces the rule for a platform
func (h *RuleHandler) UpsertRule(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var req service.UpsertRuleInput
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, msgInvalidJSON, nil)
		return
	}

	rule, err := h.ruleService.Upsert(r.Context(), claims.FamilyID, req)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, rule)
}

// GetPolicy returns the enforcement policy for ?platform= (youtube by default)
func (h *RuleHandler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	policy, err := h.ruleService.Policy(r.Context(), claims.FamilyID, r.URL.Query().Get("platform"))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, policy)
}
