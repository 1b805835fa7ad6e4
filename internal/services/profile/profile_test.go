package profile_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"accounts/internal/domain/models"
	"accounts/internal/services/profile"
	"accounts/internal/storage"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccountStore struct {
	accounts map[string]*models.Account
	failWith error
}

func (f *fakeAccountStore) UserByID(_ context.Context, id string) (*models.Account, error) {
	u, ok := f.accounts[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeAccountStore) UpdateDetails(_ context.Context, id, fullName, email string) error {
	if f.failWith != nil {
		return f.failWith
	}
	u, ok := f.accounts[id]
	if !ok {
		return storage.ErrUserNotFound
	}
	if fullName != "" {
		u.FullName = fullName
	}
	if email != "" {
		u.Email = email
	}
	return nil
}

func (f *fakeAccountStore) UpdateAvatar(_ context.Context, id, url string) error {
	u, ok := f.accounts[id]
	if !ok {
		return storage.ErrUserNotFound
	}
	u.AvatarURL = url
	return nil
}

func (f *fakeAccountStore) UpdateCoverImage(_ context.Context, id, url string) error {
	u, ok := f.accounts[id]
	if !ok {
		return storage.ErrUserNotFound
	}
	u.CoverImageURL = url
	return nil
}

type fakeUploader struct {
	lastFolder  string
	lastContent string
	url         string
	err         error
}

func (f *fakeUploader) Upload(_ context.Context, folder string, body io.Reader, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	b, _ := io.ReadAll(body)
	f.lastFolder = folder
	f.lastContent = string(b)
	return f.url, nil
}

func newService(store *fakeAccountStore, uploader *fakeUploader) *profile.Profile {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return profile.New(logger, store, store, uploader)
}

func seededStore() (*fakeAccountStore, *models.Account) {
	account := &models.Account{
		ID:        "user-1",
		Username:  gofakeit.Username(),
		Email:     gofakeit.Email(),
		FullName:  gofakeit.Name(),
		AvatarURL: "https://cdn.example/avatars/old.png",
	}
	return &fakeAccountStore{accounts: map[string]*models.Account{account.ID: account}}, account
}

func TestCurrentUser(t *testing.T) {
	store, account := seededStore()
	service := newService(store, &fakeUploader{})

	got, err := service.CurrentUser(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.Username, got.Username)

	_, err = service.CurrentUser(context.Background(), "missing")
	require.ErrorIs(t, err, profile.ErrUserNotFound)
}

func TestUpdateDetails(t *testing.T) {
	store, account := seededStore()
	service := newService(store, &fakeUploader{})

	newName := gofakeit.Name()
	got, err := service.UpdateDetails(context.Background(), account.ID, newName, "")
	require.NoError(t, err)
	assert.Equal(t, newName, got.FullName)
	assert.Equal(t, account.Email, got.Email, "email must be untouched when empty")
}

func TestUpdateDetails_EmailTaken(t *testing.T) {
	store, account := seededStore()
	store.failWith = storage.ErrUserAlreadyExists
	service := newService(store, &fakeUploader{})

	_, err := service.UpdateDetails(context.Background(), account.ID, "", gofakeit.Email())
	require.ErrorIs(t, err, profile.ErrEmailTaken)
}

func TestUpdateAvatar(t *testing.T) {
	store, account := seededStore()
	uploader := &fakeUploader{url: "https://cdn.example/avatars/new.png"}
	service := newService(store, uploader)

	got, err := service.UpdateAvatar(context.Background(), account.ID,
		strings.NewReader("image-bytes"), "image/png")
	require.NoError(t, err)

	assert.Equal(t, "avatars", uploader.lastFolder)
	assert.Equal(t, "image-bytes", uploader.lastContent)
	assert.Equal(t, uploader.url, got.AvatarURL)
}

func TestUpdateCoverImage(t *testing.T) {
	store, account := seededStore()
	uploader := &fakeUploader{url: "https://cdn.example/covers/new.png"}
	service := newService(store, uploader)

	got, err := service.UpdateCoverImage(context.Background(), account.ID,
		strings.NewReader("cover-bytes"), "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, "covers", uploader.lastFolder)
	assert.Equal(t, uploader.url, got.CoverImageURL)
}

func TestUpdateAvatar_UploadFails(t *testing.T) {
	store, account := seededStore()
	uploader := &fakeUploader{err: errors.New("bucket unavailable")}
	service := newService(store, uploader)

	_, err := service.UpdateAvatar(context.Background(), account.ID,
		strings.NewReader("image-bytes"), "image/png")
	require.Error(t, err)
	assert.NotErrorIs(t, err, profile.ErrUserNotFound)

	// Nothing persisted on upload failure.
	assert.Equal(t, "https://cdn.example/avatars/old.png", store.accounts[account.ID].AvatarURL)
}
