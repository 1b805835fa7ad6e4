package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"accounts/internal/domain/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Auth is the session-lifecycle service the handlers call into.
type Auth interface {
	Register(ctx context.Context, username, email, fullName, password, avatarURL, coverImageURL string) (*models.Account, error)
	Login(ctx context.Context, username, email, password string) (*models.TokenPair, *models.Account, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, accountID string) error
	ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error
}

// Profiles serves profile reads and updates.
type Profiles interface {
	CurrentUser(ctx context.Context, accountID string) (*models.Account, error)
	UpdateDetails(ctx context.Context, accountID, fullName, email string) (*models.Account, error)
	UpdateAvatar(ctx context.Context, accountID string, file io.Reader, contentType string) (*models.Account, error)
	UpdateCoverImage(ctx context.Context, accountID string, file io.Reader, contentType string) (*models.Account, error)
}

// MediaUploader stores registration images before the account exists.
type MediaUploader interface {
	Upload(ctx context.Context, folder string, body io.Reader, contentType string) (string, error)
}

// AccessVerifier checks an access token and returns the account id it
// belongs to.
type AccessVerifier interface {
	VerifyAccessToken(token string) (string, error)
}

type Server struct {
	logger       *slog.Logger
	auth         Auth
	profiles     Profiles
	media        MediaUploader
	verifier     AccessVerifier
	cookieDomain string
	cookieSecure bool
	accessTTL    time.Duration
	refreshTTL   time.Duration
}

func NewServer(
	logger *slog.Logger,
	auth Auth,
	profiles Profiles,
	media MediaUploader,
	verifier AccessVerifier,
	cookieDomain string,
	cookieSecure bool,
	accessTTL, refreshTTL time.Duration,
) *Server {
	return &Server{
		logger:       logger,
		auth:         auth,
		profiles:     profiles,
		media:        media,
		verifier:     verifier,
		cookieDomain: cookieDomain,
		cookieSecure: cookieSecure,
		accessTTL:    accessTTL,
		refreshTTL:   refreshTTL,
	}
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/refresh-token", s.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/logout", s.handleLogout)
			r.Post("/change-password", s.handleChangePassword)
			r.Get("/current-user", s.handleCurrentUser)
			r.Patch("/update-account", s.handleUpdateDetails)
			r.Patch("/avatar", s.handleUpdateAvatar)
			r.Patch("/cover-image", s.handleUpdateCoverImage)
		})
	})

	return r
}
