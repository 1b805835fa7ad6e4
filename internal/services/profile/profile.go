package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"accounts/internal/domain/models"
	"accounts/internal/lib/sl"
	"accounts/internal/storage"
)

// Profile serves reads and updates of account profile fields, including
// avatar and cover image replacement through the media store.
type Profile struct {
	logger   *slog.Logger
	provider UserProvider
	updater  ProfileUpdater
	media    MediaUploader
}

type UserProvider interface {
	UserByID(ctx context.Context, id string) (*models.Account, error)
}

type ProfileUpdater interface {
	UpdateDetails(ctx context.Context, id, fullName, email string) error
	UpdateAvatar(ctx context.Context, id, url string) error
	UpdateCoverImage(ctx context.Context, id, url string) error
}

type MediaUploader interface {
	Upload(ctx context.Context, folder string, body io.Reader, contentType string) (string, error)
}

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already in use")
)

func New(
	logger *slog.Logger,
	provider UserProvider,
	updater ProfileUpdater,
	media MediaUploader,
) *Profile {
	return &Profile{
		logger:   logger,
		provider: provider,
		updater:  updater,
		media:    media,
	}
}

// CurrentUser returns the account for an authenticated id.
func (p *Profile) CurrentUser(ctx context.Context, accountID string) (*models.Account, error) {
	const op = "profile.CurrentUser"

	user, err := p.provider.UserByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// UpdateDetails changes fullname and/or email and returns the updated
// account. Empty arguments leave the corresponding field untouched.
func (p *Profile) UpdateDetails(ctx context.Context, accountID, fullName, email string) (*models.Account, error) {
	const op = "profile.UpdateDetails"
	log := p.logger.With(slog.String("op", op), slog.String("userID", accountID))
	log.Info("update details request")

	if err := p.updater.UpdateDetails(ctx, accountID, fullName, email); err != nil {
		switch {
		case errors.Is(err, storage.ErrUserNotFound):
			log.Warn("user not found", sl.Err(err))
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		case errors.Is(err, storage.ErrUserAlreadyExists):
			log.Warn("email already in use", sl.Err(err))
			return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}
		log.Error("failed to update details", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return p.reload(ctx, op, accountID)
}

// UpdateAvatar uploads a new avatar image and stores its URL.
func (p *Profile) UpdateAvatar(ctx context.Context, accountID string, file io.Reader, contentType string) (*models.Account, error) {
	const op = "profile.UpdateAvatar"

	return p.replaceImage(ctx, op, accountID, "avatars", file, contentType, p.updater.UpdateAvatar)
}

// UpdateCoverImage uploads a new cover image and stores its URL.
func (p *Profile) UpdateCoverImage(ctx context.Context, accountID string, file io.Reader, contentType string) (*models.Account, error) {
	const op = "profile.UpdateCoverImage"

	return p.replaceImage(ctx, op, accountID, "covers", file, contentType, p.updater.UpdateCoverImage)
}

func (p *Profile) replaceImage(
	ctx context.Context,
	op, accountID, folder string,
	file io.Reader,
	contentType string,
	persist func(ctx context.Context, id, url string) error,
) (*models.Account, error) {
	log := p.logger.With(slog.String("op", op), slog.String("userID", accountID))
	log.Info("image replace request")

	url, err := p.media.Upload(ctx, folder, file, contentType)
	if err != nil {
		log.Error("failed to upload image", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := persist(ctx, accountID, url); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found", sl.Err(err))
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		log.Error("failed to persist image url", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("image replaced", slog.String("url", url))

	return p.reload(ctx, op, accountID)
}

func (p *Profile) reload(ctx context.Context, op, accountID string) (*models.Account, error) {
	user, err := p.provider.UserByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}
