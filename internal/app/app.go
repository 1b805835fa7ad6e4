package app

import (
	"context"
	"log/slog"

	"accounts/internal/app/httpapp"
	"accounts/internal/config"
	"accounts/internal/http/api"
	"accounts/internal/lib/jwt"
	"accounts/internal/services/auth"
	"accounts/internal/services/profile"
	"accounts/internal/storage/mongodb"
	"accounts/internal/storage/s3"
	"accounts/internal/storage/sqlite"
)

// Storage is the full store surface the services need, satisfied by both the
// MongoDB and SQLite backends.
type Storage interface {
	auth.UserSaver
	auth.UserProvider
	auth.SessionStore
	profile.ProfileUpdater
	Close(ctx context.Context) error
}

type App struct {
	HTTPSrv *httpapp.App
	Storage Storage
}

func New(
	ctx context.Context,
	logger *slog.Logger,
	cfg *config.Config,
) *App {
	var store Storage
	var err error
	switch cfg.Storage.Backend {
	case "sqlite":
		store, err = sqlite.New(cfg.Storage.SQLite.Path)
	default:
		store, err = mongodb.New(ctx, cfg.Storage.Mongo.URI, cfg.Storage.Mongo.Database)
	}
	if err != nil {
		panic(err)
	}

	media, err := s3.New(ctx, s3.Config{
		Endpoint:      cfg.Media.Endpoint,
		Region:        cfg.Media.Region,
		Bucket:        cfg.Media.Bucket,
		AccessKey:     cfg.Media.AccessKey,
		SecretKey:     cfg.Media.SecretKey,
		PublicBaseURL: cfg.Media.PublicBaseURL,
	})
	if err != nil {
		panic(err)
	}

	issuer := jwt.NewIssuer(
		cfg.Tokens.AccessSecret,
		cfg.Tokens.RefreshSecret,
		cfg.Tokens.AccessTTL,
		cfg.Tokens.RefreshTTL,
	)

	authService := auth.New(logger, store, store, store, issuer)
	profileService := profile.New(logger, store, store, media)

	server := api.NewServer(
		logger,
		authService,
		profileService,
		media,
		issuer,
		cfg.HTTP.CookieDomain,
		cfg.HTTP.CookieSecure,
		cfg.Tokens.AccessTTL,
		cfg.Tokens.RefreshTTL,
	)

	httpApp := httpapp.New(logger, server.Handler(), cfg.HTTP.Port, cfg.HTTP.Timeout, cfg.HTTP.IdleTimeout)

	return &App{
		HTTPSrv: httpApp,
		Storage: store,
	}
}
