package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	tokenIssuer = "account-backend"
)

var ErrInvalidToken = errors.New("invalid or expired refresh token")

// SessionClaims is carried by both halves of a token pair.
type SessionClaims struct {
	TokenType string           `json:"token_type"`
	Email     string           `json:"email"`
	Username  string           `json:"username"`
	LoginType models.LoginType `json:"logintype"`
	jwt.RegisteredClaims
}

type TokenService struct {
	tokens        repository.TokenRepository
	users         repository.UserRepository
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	now           func() time.Time
}

func NewTokenService(tokens repository.TokenRepository, users repository.UserRepository, cfg *config.Config) *TokenService {
	return &TokenService{
		tokens:        tokens,
		users:         users,
		secret:        []byte(cfg.JWTSecret),
		accessExpiry:  cfg.JWTAccessExpiry,
		refreshExpiry: cfg.JWTRefreshExpiry,
		now:           time.Now,
	}
}

// IssuePair mints a refresh token for user, records its jti, and derives the
// access token from it.
func (s *TokenService) IssuePair(ctx context.Context, user *models.User) (*dto.TokenPairResponse, error) {
	now := s.now()
	jti := uuid.New()
	refreshClaims := SessionClaims{
		TokenType: TokenTypeRefresh,
		Email:     user.Email,
		Username:  user.Username,
		LoginType: user.LoginType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			Subject:   user.ID.String(),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshExpiry)),
		},
	}

	if err := s.tokens.Create(ctx, &models.RefreshToken{
		ID:        jti,
		UserID:    user.ID,
		ExpiresAt: refreshClaims.ExpiresAt.Time,
	}); err != nil {
		return nil, err
	}

	refresh, err := s.sign(refreshClaims)
	if err != nil {
		return nil, err
	}
	access, err := s.sign(s.accessFrom(refreshClaims))
	if err != nil {
		return nil, err
	}

	return &dto.TokenPairResponse{Refresh: refresh, Access: access}, nil
}

// Refresh exchanges a refresh token for a new access token. The ledger row
// must still be unrevoked and the account active.
func (s *TokenService) Refresh(ctx context.Context, raw string) (*dto.AccessResponse, error) {
	claims, err := s.Parse(raw)
	if err != nil || claims.TokenType != TokenTypeRefresh {
		return nil, ErrInvalidToken
	}

	jti, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if _, err := s.tokens.FindActive(ctx, jti); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidToken
	}

	access, err := s.sign(s.accessFrom(*claims))
	if err != nil {
		return nil, err
	}
	return &dto.AccessResponse{Access: access}, nil
}

// Parse verifies signature and expiry of any session token.
func (s *TokenService) Parse(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *TokenService) accessFrom(refresh SessionClaims) SessionClaims {
	now := s.now()
	access := refresh
	access.TokenType = TokenTypeAccess
	access.ID = uuid.NewString()
	access.IssuedAt = jwt.NewNumericDate(now)
	access.ExpiresAt = jwt.NewNumericDate(now.Add(s.accessExpiry))
	return access
}

func (s *TokenService) sign(claims SessionClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", claims.TokenType, err)
	}
	return signed, nil
}
