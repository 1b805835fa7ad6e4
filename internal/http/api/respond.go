package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"accounts/internal/lib/sl"
	"accounts/internal/services/auth"
	"accounts/internal/services/profile"
)

type apiResponse struct {
	Data    any    `json:"data,omitempty"`
	Message string `json:"message"`
}

type apiError struct {
	Error string `json:"error"`
}

func (s *Server) respond(w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(apiResponse{Data: data, Message: message}); err != nil {
		s.logger.Error("failed to encode response", sl.Err(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(apiError{Error: message}); err != nil {
		s.logger.Error("failed to encode error response", sl.Err(err))
	}
}

// serviceError maps the service error kinds onto HTTP statuses. Anything not
// attributable to caller input surfaces as a plain 500; collaborator details
// stay in the logs.
func (s *Server) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.respondError(w, http.StatusUnauthorized, "invalid username/email or password")
	case errors.Is(err, auth.ErrUserAlreadyExists):
		s.respondError(w, http.StatusConflict, "user with email or username already exists")
	case errors.Is(err, auth.ErrRefreshTokenExpired):
		s.respondError(w, http.StatusUnauthorized, "refresh token expired")
	case errors.Is(err, auth.ErrRefreshTokenSuperseded):
		s.respondError(w, http.StatusUnauthorized, "refresh token is expired or used")
	case errors.Is(err, auth.ErrInvalidRefreshToken):
		s.respondError(w, http.StatusUnauthorized, "invalid refresh token")
	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, profile.ErrUserNotFound):
		s.respondError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, profile.ErrEmailTaken):
		s.respondError(w, http.StatusConflict, "email already in use")
	default:
		s.logger.Error("request failed", sl.Err(err))
		s.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.logger.Warn("failed to decode request body", slog.String("path", r.URL.Path), sl.Err(err))
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
