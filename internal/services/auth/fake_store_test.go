package auth_test

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"accounts/internal/domain/models"
	"accounts/internal/storage"
)

// fakeStore is an in-memory stand-in for the account store. Its
// compare-and-set mirrors the real backends: the match and the write happen
// under one lock.
type fakeStore struct {
	mu     sync.Mutex
	nextID int
	users  map[string]*models.Account

	writes int
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]*models.Account)}
}

func (f *fakeStore) SaveUser(_ context.Context, account *models.Account) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Username == strings.ToLower(account.Username) || u.Email == account.Email {
			return "", storage.ErrUserAlreadyExists
		}
	}

	f.nextID++
	f.writes++
	id := fmt.Sprintf("user-%d", f.nextID)

	stored := *account
	stored.ID = id
	stored.Username = strings.ToLower(account.Username)
	f.users[id] = &stored

	return id, nil
}

func (f *fakeStore) UserByIdentifier(_ context.Context, username, email string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if username != "" && u.Username == strings.ToLower(username) {
			return copyOf(u), nil
		}
		if email != "" && u.Email == email {
			return copyOf(u), nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (f *fakeStore) UserByID(_ context.Context, id string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return copyOf(u), nil
}

func (f *fakeStore) SetRefreshToken(_ context.Context, id string, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return storage.ErrUserNotFound
	}
	u.RefreshToken = token
	f.writes++
	return nil
}

func (f *fakeStore) CompareAndSwapRefreshToken(_ context.Context, id, expected, newToken string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return false, nil
	}
	if u.RefreshToken != expected {
		return false, nil
	}
	u.RefreshToken = newToken
	f.writes++
	return true, nil
}

func (f *fakeStore) UpdatePassHash(_ context.Context, id string, passHash []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return storage.ErrUserNotFound
	}
	u.PassHash = passHash
	f.writes++
	return nil
}

func (f *fakeStore) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func (f *fakeStore) storedRefreshToken(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return u.RefreshToken
	}
	return ""
}

func copyOf(u *models.Account) *models.Account {
	c := *u
	return &c
}
