package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"accounts/internal/domain/models"
	"accounts/internal/storage"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	_ "github.com/mattn/go-sqlite3"
)

type Storage struct {
	db *sql.DB
}

// New returns a new instance of the Storage.
func New(storagePath string) (*Storage, error) {
	const op = "storage.sqlite.New"
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Storage{db: db}, nil
}

func (s *Storage) Close(_ context.Context) error {
	return s.db.Close()
}

const accountColumns = "id, username, email, fullname, avatar_url, cover_image_url, pass_hash, refresh_token, created_at, updated_at"

// SaveUser inserts a new account and returns the generated id.
func (s *Storage) SaveUser(ctx context.Context, account *models.Account) (string, error) {
	const op = "storage.sqlite.SaveUser"

	id := uuid.NewString()
	now := time.Now()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, fullname, avatar_url, cover_image_url, pass_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, strings.ToLower(account.Username), account.Email, account.FullName,
		account.AvatarURL, account.CoverImageURL, account.PassHash, now, now,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return "", fmt.Errorf("%s: %w", op, storage.ErrUserAlreadyExists)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// UserByIdentifier retrieves an account matching the given username or email.
func (s *Storage) UserByIdentifier(ctx context.Context, username, email string) (*models.Account, error) {
	const op = "storage.sqlite.UserByIdentifier"

	var conds []string
	var args []any
	if username != "" {
		conds = append(conds, "username = ?")
		args = append(args, strings.ToLower(username))
	}
	if email != "" {
		conds = append(conds, "email = ?")
		args = append(args, email)
	}
	if len(conds) == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM users WHERE "+strings.Join(conds, " OR "), args...)

	return scanAccount(op, row)
}

// UserByID retrieves an account by id.
func (s *Storage) UserByID(ctx context.Context, id string) (*models.Account, error) {
	const op = "storage.sqlite.UserByID"

	row := s.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM users WHERE id = ?", id)

	return scanAccount(op, row)
}

// SetRefreshToken unconditionally overwrites the stored refresh token.
// An empty token clears the field (logout).
func (s *Storage) SetRefreshToken(ctx context.Context, id string, token string) error {
	const op = "storage.sqlite.SetRefreshToken"

	var value any
	if token != "" {
		value = token
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET refresh_token = ?, updated_at = ? WHERE id = ?",
		value, time.Now(), id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	return nil
}

// CompareAndSwapRefreshToken replaces the stored refresh token only if it
// still equals expected. The condition sits in the UPDATE itself, so of two
// racing rotations exactly one can win.
func (s *Storage) CompareAndSwapRefreshToken(ctx context.Context, id, expected, newToken string) (bool, error) {
	const op = "storage.sqlite.CompareAndSwapRefreshToken"

	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET refresh_token = ?, updated_at = ? WHERE id = ? AND refresh_token = ?",
		newToken, time.Now(), id, expected)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return affected == 1, nil
}

// UpdatePassHash replaces the stored password hash.
func (s *Storage) UpdatePassHash(ctx context.Context, id string, passHash []byte) error {
	const op = "storage.sqlite.UpdatePassHash"

	return s.update(ctx, op,
		"UPDATE users SET pass_hash = ?, updated_at = ? WHERE id = ?",
		passHash, time.Now(), id)
}

// UpdateDetails updates the mutable profile fields.
func (s *Storage) UpdateDetails(ctx context.Context, id, fullName, email string) error {
	const op = "storage.sqlite.UpdateDetails"

	sets := []string{"updated_at = ?"}
	args := []any{time.Now()}
	if fullName != "" {
		sets = append(sets, "fullname = ?")
		args = append(args, fullName)
	}
	if email != "" {
		sets = append(sets, "email = ?")
		args = append(args, email)
	}
	args = append(args, id)

	return s.update(ctx, op,
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
}

// UpdateAvatar replaces the avatar URL.
func (s *Storage) UpdateAvatar(ctx context.Context, id, url string) error {
	const op = "storage.sqlite.UpdateAvatar"

	return s.update(ctx, op,
		"UPDATE users SET avatar_url = ?, updated_at = ? WHERE id = ?",
		url, time.Now(), id)
}

// UpdateCoverImage replaces the cover image URL.
func (s *Storage) UpdateCoverImage(ctx context.Context, id, url string) error {
	const op = "storage.sqlite.UpdateCoverImage"

	return s.update(ctx, op,
		"UPDATE users SET cover_image_url = ?, updated_at = ? WHERE id = ?",
		url, time.Now(), id)
}

func (s *Storage) update(ctx context.Context, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%s: %w", op, storage.ErrUserAlreadyExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	return nil
}

func scanAccount(op string, row *sql.Row) (*models.Account, error) {
	var acc models.Account
	var refreshToken sql.NullString

	err := row.Scan(
		&acc.ID, &acc.Username, &acc.Email, &acc.FullName,
		&acc.AvatarURL, &acc.CoverImageURL, &acc.PassHash,
		&refreshToken, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	acc.RefreshToken = refreshToken.String

	return &acc, nil
}
