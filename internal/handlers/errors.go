package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"kidshield/internal/service"
	"kidshield/internal/validation"
)

const (
	msgUnauthorized   = "unauthorized"
	msgInternalError  = "internal server error"
	msgInvalidJSON    = "invalid json body"
	msgTooManyRequest = "too many requests"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// respondWithError writes {"error": userMsg}. Server errors are logged with
// the request logger; userMsg is never derived from err.
func respondWithError(w http.ResponseWriter, r *http.Request, status int, userMsg string, err error) {
	if err != nil && status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg(userMsg)
	}
	respondWithJSON(w, status, errorResponse{Error: userMsg})
}

// respondWithServiceError maps service and validation errors onto status codes
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		respondWithError(w, r, http.StatusBadRequest, verr.Message, nil)
	case errors.Is(err, service.ErrEmailExists):
		respondWithError(w, r, http.StatusBadRequest, service.ErrEmailExists.Error(), nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		respondWithError(w, r, http.StatusUnauthorized, service.ErrInvalidCredentials.Error(), nil)
	default:
		respondWithError(w, r, http.StatusInternalServerError, msgInternalError, err)
	}
}

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON document from the body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}
