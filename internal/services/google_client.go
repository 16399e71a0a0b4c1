package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/config"
	"github.com/cenkalti/backoff"
)

var (
	ErrGoogleTokenRejected = errors.New("google rejected the access token")
	ErrUpstreamUnavailable = errors.New("identity provider unavailable")
)

type GoogleProfile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleIdentityProvider resolves an OAuth access token to the profile it
// was issued for.
type GoogleIdentityProvider interface {
	UserInfo(ctx context.Context, accessToken string) (*GoogleProfile, error)
}

type GoogleClient struct {
	httpClient    *http.Client
	userInfoURL   string
	maxRetries    int
	retryInterval time.Duration
}

func NewGoogleClient(cfg *config.Config) *GoogleClient {
	return &GoogleClient{
		httpClient:    &http.Client{Timeout: cfg.GoogleTimeout},
		userInfoURL:   cfg.GoogleUserInfoURL,
		maxRetries:    cfg.GoogleMaxRetries,
		retryInterval: 200 * time.Millisecond,
	}
}

// UserInfo calls the userinfo endpoint with the bearer token. Transport
// failures and 5xx answers are retried; any 4xx means the token is bad.
func (c *GoogleClient) UserInfo(ctx context.Context, accessToken string) (*GoogleProfile, error) {
	var profile GoogleProfile

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to build userinfo request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("failed to fetch userinfo: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("userinfo endpoint returned status %d", resp.StatusCode)
		case resp.StatusCode >= http.StatusBadRequest:
			return backoff.Permanent(fmt.Errorf("%w: status %d", ErrGoogleTokenRejected, resp.StatusCode))
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("userinfo endpoint returned status %d", resp.StatusCode))
		}

		if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode userinfo: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInterval
	bo.MaxElapsedTime = 0
	// WithMaxRetries treats zero as unlimited.
	var policy backoff.BackOff = &backoff.StopBackOff{}
	if c.maxRetries > 0 {
		policy = backoff.WithMaxRetries(bo, uint64(c.maxRetries))
	}

	err := backoff.RetryNotify(operation,
		backoff.WithContext(policy, ctx),
		func(err error, wait time.Duration) {
			slog.WarnContext(ctx, "google userinfo failed, retrying", "error", err, "wait", wait.String())
		})
	if err != nil {
		if errors.Is(err, ErrGoogleTokenRejected) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return &profile, nil
}
