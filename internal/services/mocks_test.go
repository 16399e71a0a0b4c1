package services

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/events"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *mockUserRepo) UsernameTaken(ctx context.Context, username string, exclude uuid.UUID) (bool, error) {
	args := m.Called(ctx, username, exclude)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepo) EmailTaken(ctx context.Context, email string, exclude uuid.UUID) (bool, error) {
	args := m.Called(ctx, email, exclude)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User, changes map[string]interface{}) error {
	return m.Called(ctx, user, changes).Error(0)
}

func (m *mockUserRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type mockTokenRepo struct {
	mock.Mock
}

func (m *mockTokenRepo) Create(ctx context.Context, token *models.RefreshToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockTokenRepo) FindActive(ctx context.Context, id uuid.UUID) (*models.RefreshToken, error) {
	args := m.Called(ctx, id)
	token, _ := args.Get(0).(*models.RefreshToken)
	return token, args.Error(1)
}

type mockIdentity struct {
	mock.Mock
}

func (m *mockIdentity) UserInfo(ctx context.Context, accessToken string) (*GoogleProfile, error) {
	args := m.Called(ctx, accessToken)
	profile, _ := args.Get(0).(*GoogleProfile)
	return profile, args.Error(1)
}

type recordingPublisher struct {
	events []events.AccountEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event events.AccountEvent) error {
	p.events = append(p.events, event)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:         "test-secret",
		JWTAccessExpiry:   5 * time.Minute,
		JWTRefreshExpiry:  24 * time.Hour,
		BcryptCost:        bcrypt.MinCost,
		GoogleClientID:    "client-123.apps.googleusercontent.com",
		GoogleRedirectURI: config.DefaultGoogleRedirectURI,
		GoogleTimeout:     time.Second,
		GoogleMaxRetries:  2,
	}
}

func localUser(password string) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return &models.User{
		ID:        uuid.New(),
		Username:  "ann",
		Email:     "ann@x.com",
		Password:  string(hash),
		IsActive:  true,
		LoginType: models.LoginTypeLocal,
	}
}

func googleUser() *models.User {
	return &models.User{
		ID:        uuid.New(),
		Username:  "bob_g",
		Email:     "bob@x.com",
		Password:  models.UnusablePassword,
		IsActive:  true,
		LoginType: models.LoginTypeGoogle,
	}
}
