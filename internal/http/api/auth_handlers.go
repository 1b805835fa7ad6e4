package api

import (
	"net/http"
	"strings"

	"accounts/internal/domain/models"
)

// maxUploadSize bounds the multipart form memory for registration images.
const maxUploadSize = 32 << 20

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User         models.Profile `json:"user"`
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	email := strings.TrimSpace(r.FormValue("email"))
	fullName := strings.TrimSpace(r.FormValue("fullname"))
	password := r.FormValue("password")

	if username == "" || email == "" || fullName == "" || password == "" {
		s.respondError(w, http.StatusBadRequest, "fill in the required fields")
		return
	}

	avatarFile, avatarHeader, err := r.FormFile("avatar")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer avatarFile.Close()

	avatarURL, err := s.media.Upload(r.Context(), "avatars", avatarFile, avatarHeader.Header.Get("Content-Type"))
	if err != nil {
		s.serviceError(w, err)
		return
	}

	var coverImageURL string
	if coverFile, coverHeader, err := r.FormFile("coverImage"); err == nil {
		defer coverFile.Close()
		coverImageURL, err = s.media.Upload(r.Context(), "covers", coverFile, coverHeader.Header.Get("Content-Type"))
		if err != nil {
			s.serviceError(w, err)
			return
		}
	}

	user, err := s.auth.Register(r.Context(), username, email, fullName, password, avatarURL, coverImageURL)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.respond(w, http.StatusCreated, user.Profile(), "user registered successfully")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	if req.Username == "" && req.Email == "" {
		s.respondError(w, http.StatusBadRequest, "username or email is required")
		return
	}
	if req.Password == "" {
		s.respondError(w, http.StatusBadRequest, "password is required")
		return
	}

	pair, user, err := s.auth.Login(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	s.setTokenCookies(w, pair.AccessToken, pair.RefreshToken)
	s.respond(w, http.StatusOK, loginResponse{
		User:         user.Profile(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "user logged in successfully")
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token := ""
	if c, err := r.Cookie(refreshCookie); err == nil {
		token = c.Value
	}
	if token == "" {
		var req refreshRequest
		if r.Body != nil && r.ContentLength != 0 {
			if !s.decodeJSON(w, r, &req) {
				return
			}
		}
		token = req.RefreshToken
	}
	if token == "" {
		s.respondError(w, http.StatusUnauthorized, "refresh token is required")
		return
	}

	pair, err := s.auth.Refresh(r.Context(), token)
	if err != nil {
		s.clearTokenCookies(w)
		s.serviceError(w, err)
		return
	}

	s.setTokenCookies(w, pair.AccessToken, pair.RefreshToken)
	s.respond(w, http.StatusOK, pair, "access token refreshed")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), accountID(r.Context())); err != nil {
		s.serviceError(w, err)
		return
	}

	s.clearTokenCookies(w)
	s.respond(w, http.StatusOK, nil, "user logged out successfully")
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	if req.OldPassword == "" || req.NewPassword == "" {
		s.respondError(w, http.StatusBadRequest, "old and new passwords are required")
		return
	}

	if err := s.auth.ChangePassword(r.Context(), accountID(r.Context()), req.OldPassword, req.NewPassword); err != nil {
		s.serviceError(w, err)
		return
	}

	s.respond(w, http.StatusOK, nil, "password changed successfully")
}
