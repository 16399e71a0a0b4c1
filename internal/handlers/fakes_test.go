package handlers_test

import (
	"context"
	"sync"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/repository"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/services"
	"github.com/google/uuid"
)

// memStore backs both repositories for handler tests.
type memStore struct {
	mu     sync.Mutex
	users  map[uuid.UUID]models.User
	tokens map[uuid.UUID]models.RefreshToken
}

func newMemStore() *memStore {
	return &memStore{
		users:  make(map[uuid.UUID]models.User),
		tokens: make(map[uuid.UUID]models.RefreshToken),
	}
}

type memUsers struct{ s *memStore }

func (r memUsers) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r memUsers) find(match func(models.User) bool) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.ID == id })
}

func (r memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Email == email })
}

func (r memUsers) FindByUsername(_ context.Context, username string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Username == username })
}

func (r memUsers) UsernameTaken(_ context.Context, username string, exclude uuid.UUID) (bool, error) {
	_, err := r.find(func(u models.User) bool { return u.Username == username && u.ID != exclude })
	return err == nil, nil
}

func (r memUsers) EmailTaken(_ context.Context, email string, exclude uuid.UUID) (bool, error) {
	_, err := r.find(func(u models.User) bool { return u.Email == email && u.ID != exclude })
	return err == nil, nil
}

func (r memUsers) Update(_ context.Context, user *models.User, changes map[string]interface{}) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if v, ok := changes["username"].(string); ok {
		u.Username = v
	}
	if v, ok := changes["email"].(string); ok {
		u.Email = v
	}
	if v, ok := changes["password"].(string); ok {
		u.Password = v
	}
	r.s.users[user.ID] = u
	return nil
}

func (r memUsers) Deactivate(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.IsActive = false
	r.s.users[id] = u
	for jti, t := range r.s.tokens {
		if t.UserID == id {
			t.Revoked = true
			r.s.tokens[jti] = t
		}
	}
	return nil
}

type memTokens struct{ s *memStore }

func (r memTokens) Create(_ context.Context, token *models.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.tokens[token.ID] = *token
	return nil
}

func (r memTokens) FindActive(_ context.Context, id uuid.UUID) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[id]
	if !ok || t.Revoked {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

// stubIdentity maps access tokens to profiles; unknown tokens are rejected.
type stubIdentity struct {
	profiles map[string]*services.GoogleProfile
	calls    int
	err      error
}

func (s *stubIdentity) UserInfo(_ context.Context, accessToken string) (*services.GoogleProfile, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	profile, ok := s.profiles[accessToken]
	if !ok {
		return nil, services.ErrGoogleTokenRejected
	}
	return profile, nil
}
