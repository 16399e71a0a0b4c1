package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/events"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/repository"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/validation"
	"github.com/google/uuid"
)

var (
	ErrMissingAccessToken = errors.New("access token is required")
	ErrGoogleEmailMissing = errors.New("google profile has no email")
	ErrLoginTypeMismatch  = errors.New("this email is registered with a password, not Google")
)

// googleUsernameSuffix keeps provisioned usernames apart from local ones.
const googleUsernameSuffix = "_g"

// GoogleService bridges a Google OAuth access token to a local account and
// a session token pair.
type GoogleService struct {
	users       repository.UserRepository
	tokens      *TokenService
	identity    GoogleIdentityProvider
	events      events.Publisher
	clientID    string
	redirectURI string
}

func NewGoogleService(users repository.UserRepository, tokens *TokenService, identity GoogleIdentityProvider, publisher events.Publisher, cfg *config.Config) *GoogleService {
	return &GoogleService{
		users:       users,
		tokens:      tokens,
		identity:    identity,
		events:      publisher,
		clientID:    cfg.GoogleClientID,
		redirectURI: cfg.GoogleRedirectURI,
	}
}

func (s *GoogleService) LoginConfig() dto.GoogleLoginConfigResponse {
	return dto.GoogleLoginConfigResponse{
		ClientID:    s.clientID,
		RedirectURI: s.redirectURI,
	}
}

// Exchange logs in (provisioning on first sight) the Google user behind accessToken.
func (s *GoogleService) Exchange(ctx context.Context, accessToken *string) (*dto.TokenPairResponse, error) {
	if accessToken == nil || strings.TrimSpace(*accessToken) == "" {
		return nil, ErrMissingAccessToken
	}

	profile, err := s.identity.UserInfo(ctx, *accessToken)
	if err != nil {
		return nil, err
	}
	if profile.Email == "" {
		return nil, ErrGoogleEmailMissing
	}

	user, err := s.users.FindByEmail(ctx, profile.Email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		user, err = s.provision(ctx, profile.Email)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	if !user.IsGoogle() {
		return nil, ErrLoginTypeMismatch
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	return s.tokens.IssuePair(ctx, user)
}

func (s *GoogleService) provision(ctx context.Context, email string) (*models.User, error) {
	local := strings.SplitN(email, "@", 2)[0]
	signup := dto.GoogleSignUp{
		Username: local + googleUsernameSuffix,
		Email:    email,
	}

	errs := validation.GoogleSignUp(&signup)
	if !errs.Has("username") {
		taken, err := s.users.UsernameTaken(ctx, signup.Username, uuid.Nil)
		if err != nil {
			return nil, err
		}
		if taken {
			errs.Add("username", validation.MsgUsernameTaken)
		}
	}
	if err := errs.Err(); err != nil {
		slog.WarnContext(ctx, "google account could not be provisioned", "email", email, "error", err)
		return nil, err
	}

	user := &models.User{
		ID:        uuid.New(),
		Username:  signup.Username,
		Email:     signup.Email,
		Password:  models.UnusablePassword,
		IsActive:  true,
		LoginType: models.LoginTypeGoogle,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return s.afterDuplicate(ctx, signup)
		}
		return nil, err
	}

	slog.InfoContext(ctx, "google account provisioned", "user_id", user.ID.String(), "action", "google_provision")
	if err := s.events.Publish(ctx, events.NewAccountEvent(events.UserGoogleProvisioned, user)); err != nil {
		slog.WarnContext(ctx, "account event not delivered", "event", events.UserGoogleProvisioned, "user_id", user.ID.String(), "error", err)
	}
	return user, nil
}

// afterDuplicate resolves a lost insert race. Either a concurrent first login
// created the row for this email, or another account took the username.
func (s *GoogleService) afterDuplicate(ctx context.Context, signup dto.GoogleSignUp) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, signup.Email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	errs := validation.New()
	taken, err := s.users.UsernameTaken(ctx, signup.Username, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		errs.Add("username", validation.MsgUsernameTaken)
	} else {
		errs.Add(validation.NonFieldErrors, "A user with these details already exists.")
	}
	return nil, errs
}
