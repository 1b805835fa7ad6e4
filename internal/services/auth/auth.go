package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"accounts/internal/domain/models"
	"accounts/internal/lib/jwt"
	"accounts/internal/lib/sl"
	"accounts/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

// Auth owns the credential and session-token lifecycle: registration, login,
// refresh-token rotation, logout and password changes. It keeps no state of
// its own; the account record's refresh_token field is the single source of
// truth for which refresh token is currently live.
type Auth struct {
	logger       *slog.Logger
	userSaver    UserSaver
	userProvider UserProvider
	sessions     SessionStore
	issuer       *jwt.Issuer
}

type UserSaver interface {
	SaveUser(ctx context.Context, account *models.Account) (id string, err error)
}

type UserProvider interface {
	UserByIdentifier(ctx context.Context, username, email string) (*models.Account, error)
	UserByID(ctx context.Context, id string) (*models.Account, error)
}

type SessionStore interface {
	SetRefreshToken(ctx context.Context, id string, token string) error
	CompareAndSwapRefreshToken(ctx context.Context, id, expected, newToken string) (swapped bool, err error)
	UpdatePassHash(ctx context.Context, id string, passHash []byte) error
}

var (
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrUserAlreadyExists      = errors.New("user already exists")
	ErrUserNotFound           = errors.New("user not found")
	ErrInvalidRefreshToken    = errors.New("invalid refresh token")
	ErrRefreshTokenExpired    = errors.New("refresh token expired")
	ErrRefreshTokenSuperseded = errors.New("refresh token is expired or used")
)

// New returns a new instance of the Auth service.
func New(
	logger *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	sessions SessionStore,
	issuer *jwt.Issuer,
) *Auth {
	return &Auth{
		logger:       logger,
		userSaver:    userSaver,
		userProvider: userProvider,
		sessions:     sessions,
		issuer:       issuer,
	}
}

// Register creates a new account. The username is lower-cased before it is
// stored; media URLs are expected to be uploaded already.
func (a *Auth) Register(
	ctx context.Context,
	username, email, fullName, password string,
	avatarURL, coverImageURL string,
) (*models.Account, error) {
	const op = "auth.Register"
	log := a.logger.With(
		slog.String("op", op),
		slog.String("username", username),
	)
	log.Info("register request")

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	account := &models.Account{
		Username:      strings.ToLower(username),
		Email:         email,
		FullName:      fullName,
		AvatarURL:     avatarURL,
		CoverImageURL: coverImageURL,
		PassHash:      passHash,
	}

	id, err := a.userSaver.SaveUser(ctx, account)
	if err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			log.Warn("user already exists", sl.Err(err))
			return nil, fmt.Errorf("%s: %w", op, ErrUserAlreadyExists)
		}
		log.Error("failed to save user", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	created, err := a.userProvider.UserByID(ctx, id)
	if err != nil {
		log.Error("failed to load created user", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", slog.String("userID", id))

	return created, nil
}

// Login authenticates by username or email (at least one must be given) and
// returns a fresh token pair plus the account. The refresh token is persisted
// onto the account record, superseding any previous session.
func (a *Auth) Login(
	ctx context.Context,
	username, email, password string,
) (*models.TokenPair, *models.Account, error) {
	const op = "auth.Login"
	log := a.logger.With(slog.String("op", op))
	log.Info("login request", slog.String("username", username))

	user, err := a.userProvider.UserByIdentifier(ctx, username, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			// Reported as bad credentials so the response does not reveal
			// whether the account exists.
			log.Warn("user not found", sl.Err(err))
			return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		log.Error("failed to get user", sl.Err(err))
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		log.Warn("invalid password", sl.Err(err))
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, err := a.issuer.Pair(user)
	if err != nil {
		log.Error("failed to issue tokens", sl.Err(err))
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.sessions.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		log.Error("failed to persist refresh token", sl.Err(err))
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in", slog.String("userID", user.ID))

	return pair, user, nil
}

// Refresh exchanges a valid refresh token for a new pair (rotation). The
// presented token must equal the one last persisted for the account exactly;
// a superseded token is rejected even if it has not yet expired. The rotation
// itself is a storage-level compare-and-set, so two racing refreshes with the
// same token cannot both succeed.
func (a *Auth) Refresh(
	ctx context.Context,
	refreshToken string,
) (*models.TokenPair, error) {
	const op = "auth.Refresh"
	log := a.logger.With(slog.String("op", op))
	log.Info("refresh request")

	userID, err := a.issuer.VerifyRefreshToken(refreshToken)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			log.Warn("refresh token expired")
			return nil, fmt.Errorf("%s: %w", op, ErrRefreshTokenExpired)
		}
		log.Warn("malformed refresh token", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	user, err := a.userProvider.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found for refresh token")
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
		}
		log.Error("failed to get user", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if user.RefreshToken == "" || user.RefreshToken != refreshToken {
		log.Warn("refresh token superseded", slog.String("userID", user.ID))
		return nil, fmt.Errorf("%s: %w", op, ErrRefreshTokenSuperseded)
	}

	pair, err := a.issuer.Pair(user)
	if err != nil {
		log.Error("failed to issue tokens", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	swapped, err := a.sessions.CompareAndSwapRefreshToken(ctx, user.ID, refreshToken, pair.RefreshToken)
	if err != nil {
		log.Error("failed to rotate refresh token", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !swapped {
		// Lost the race against a concurrent refresh or logout.
		log.Warn("refresh token rotation lost race", slog.String("userID", user.ID))
		return nil, fmt.Errorf("%s: %w", op, ErrRefreshTokenSuperseded)
	}

	log.Info("tokens refreshed", slog.String("userID", user.ID))

	return pair, nil
}

// Logout clears the account's persisted refresh token. Calling it again for
// an already logged-out account succeeds and changes nothing. Ownership of
// the account id must be established by the caller (access-token middleware).
func (a *Auth) Logout(ctx context.Context, accountID string) error {
	const op = "auth.Logout"
	log := a.logger.With(slog.String("op", op), slog.String("userID", accountID))
	log.Info("logout request")

	if err := a.sessions.SetRefreshToken(ctx, accountID, ""); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found", sl.Err(err))
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		log.Error("failed to clear refresh token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged out")

	return nil
}

// ChangePassword re-hashes and persists the new password after verifying the
// old one. The stored refresh token is left untouched, so existing sessions
// remain valid.
func (a *Auth) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error {
	const op = "auth.ChangePassword"
	log := a.logger.With(slog.String("op", op), slog.String("userID", accountID))
	log.Info("change password request")

	user, err := a.userProvider.UserByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found", sl.Err(err))
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		log.Error("failed to get user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(oldPassword)); err != nil {
		log.Warn("invalid old password")
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.sessions.UpdatePassHash(ctx, user.ID, passHash); err != nil {
		log.Error("failed to update password hash", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("password changed")

	return nil
}
