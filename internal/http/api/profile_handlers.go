package api

import (
	"context"
	"io"
	"net/http"
	"strings"

	"accounts/internal/domain/models"
)

type updateDetailsRequest struct {
	FullName string `json:"fullname"`
	Email    string `json:"email"`
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.profiles.CurrentUser(r.Context(), accountID(r.Context()))
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.respond(w, http.StatusOK, user.Profile(), "current user fetched successfully")
}

func (s *Server) handleUpdateDetails(w http.ResponseWriter, r *http.Request) {
	var req updateDetailsRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	fullName := strings.TrimSpace(req.FullName)
	email := strings.TrimSpace(req.Email)
	if fullName == "" && email == "" {
		s.respondError(w, http.StatusBadRequest, "fullname or email is required")
		return
	}

	user, err := s.profiles.UpdateDetails(r.Context(), accountID(r.Context()), fullName, email)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.respond(w, http.StatusOK, user.Profile(), "account details updated successfully")
}

func (s *Server) handleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	s.handleImageUpdate(w, r, "avatar", s.profiles.UpdateAvatar)
}

func (s *Server) handleUpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	s.handleImageUpdate(w, r, "coverImage", s.profiles.UpdateCoverImage)
}

func (s *Server) handleImageUpdate(
	w http.ResponseWriter,
	r *http.Request,
	field string,
	update func(ctx context.Context, accountID string, file io.Reader, contentType string) (*models.Account, error),
) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, field+" file is required")
		return
	}
	defer file.Close()

	user, err := update(r.Context(), accountID(r.Context()), file, header.Header.Get("Content-Type"))
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.respond(w, http.StatusOK, user.Profile(), field+" updated successfully")
}
