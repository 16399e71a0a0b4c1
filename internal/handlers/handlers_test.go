package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/events"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/validation"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	app      *fiber.App
	store    *memStore
	identity *stubIdentity
	tokens   *services.TokenService
	dbMock   sqlmock.Sqlmock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:         "handler-secret",
		JWTAccessExpiry:   5 * time.Minute,
		JWTRefreshExpiry:  time.Hour,
		BcryptCost:        bcrypt.MinCost,
		GoogleClientID:    "client-123.apps.googleusercontent.com",
		GoogleRedirectURI: config.DefaultGoogleRedirectURI,
		AuthRateLimit:     1000,
		AuthRateWindow:    time.Minute,
	}

	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	store := newMemStore()
	users := memUsers{s: store}
	identity := &stubIdentity{profiles: map[string]*services.GoogleProfile{}}
	publisher := events.NopPublisher{}

	tokenService := services.NewTokenService(memTokens{s: store}, users, cfg)
	userService := services.NewUserService(users, publisher, cfg)
	authService := services.NewAuthService(users, tokenService)
	googleService := services.NewGoogleService(users, tokenService, identity, publisher, cfg)

	app := fiber.New()
	routes.Setup(app, cfg, nil, routes.Handlers{
		User:   handlers.NewUserHandler(userService),
		Google: handlers.NewGoogleHandler(googleService),
		Auth:   handlers.NewAuthHandler(authService),
		Health: handlers.NewHealthHandler(db),
	})

	return &testEnv{app: app, store: store, identity: identity, tokens: tokenService, dbMock: mock}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}, token string) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out
}

func (e *testEnv) signUp(t *testing.T, username, email, password string) {
	t.Helper()
	status, body := e.request(t, http.MethodPost, "/users", map[string]string{
		"username": username, "email": email, "password": password, "password2": password,
	}, "")
	require.Equal(t, http.StatusCreated, status, body)
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	status, body := e.request(t, http.MethodPost, "/auth/token", map[string]string{
		"username": username, "password": password,
	}, "")
	require.Equal(t, http.StatusOK, status, body)
	return body["access"].(string)
}

func (e *testEnv) userByName(t *testing.T, username string) models.User {
	t.Helper()
	for _, u := range e.store.users {
		if u.Username == username {
			return u
		}
	}
	t.Fatalf("user %q not found", username)
	return models.User{}
}

func fields(body map[string]interface{}) map[string]interface{} {
	f, _ := body["fields"].(map[string]interface{})
	return f
}

func TestSignUp(t *testing.T) {
	env := newTestEnv(t)

	env.signUp(t, "ann", "ann@x.com", "Pw123!")
	user := env.userByName(t, "ann")
	assert.True(t, user.IsActive)
	assert.Equal(t, models.LoginTypeLocal, user.LoginType)

	status, body := env.request(t, http.MethodPost, "/users", map[string]string{
		"username": "ann", "email": "ann@x.com", "password": "Pw123!", "password2": "Pw123!",
	}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, fields(body), "username")
	assert.Contains(t, fields(body), "email")

	status, body = env.request(t, http.MethodPost, "/users", map[string]string{
		"username": "zed", "email": "zed@x.com", "password": "Pw123!", "password2": "Pw999!",
	}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, []interface{}{validation.MsgPasswordMismatch}, fields(body)["password"])
	assert.Len(t, env.store.users, 1)
}

func TestSignUpMalformedBody(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeactivate(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "ann", "ann@x.com", "Pw123!")
	access := env.login(t, "ann", "Pw123!")

	status, _ := env.request(t, http.MethodPut, "/users", map[string]string{"password": "Pw123!"}, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := env.request(t, http.MethodPut, "/users", map[string]string{"password": "wrong"}, access)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, []interface{}{validation.MsgWrongPassword}, fields(body)["password"])
	assert.True(t, env.userByName(t, "ann").IsActive)

	status, _ = env.request(t, http.MethodPut, "/users", map[string]string{"password": "Pw123!"}, access)
	assert.Equal(t, http.StatusOK, status)
	assert.False(t, env.userByName(t, "ann").IsActive)

	status, _ = env.request(t, http.MethodPost, "/auth/token", map[string]string{"username": "ann", "password": "Pw123!"}, "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestDeactivatedAccessTokenIsRejected(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "ann", "ann@x.com", "Pw123!")
	access := env.login(t, "ann", "Pw123!")
	ann := env.userByName(t, "ann")

	status, _ := env.request(t, http.MethodPut, "/users", map[string]string{"password": "Pw123!"}, access)
	require.Equal(t, http.StatusOK, status)

	status, _ = env.request(t, http.MethodPatch, "/users", map[string]string{
		"current_password": "Pw123!", "username": "ann2",
	}, access)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "ann", env.userByName(t, "ann").Username)

	status, _ = env.request(t, http.MethodPut, "/users", map[string]string{"password": "Pw123!"}, access)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.request(t, http.MethodGet, "/users", nil, access)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.request(t, http.MethodGet, "/users/"+ann.ID.String(), nil, access)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := env.request(t, http.MethodGet, "/users/"+ann.ID.String(), nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, body, "email")
}

func TestRetrieve(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "ann", "ann@x.com", "Pw123!")
	env.signUp(t, "zed", "zed@x.com", "Pw123!")
	access := env.login(t, "ann", "Pw123!")
	ann := env.userByName(t, "ann")
	zed := env.userByName(t, "zed")

	status, body := env.request(t, http.MethodGet, "/users", nil, access)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ann", body["username"])
	assert.Equal(t, "ann@x.com", body["email"])
	assert.NotContains(t, body, "password")

	status, body = env.request(t, http.MethodGet, "/users/"+zed.ID.String(), nil, access)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "zed", body["username"])
	assert.NotContains(t, body, "email")

	status, body = env.request(t, http.MethodGet, "/users/"+ann.ID.String(), nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ann", body["username"])
	assert.NotContains(t, body, "email")

	status, _ = env.request(t, http.MethodGet, "/users", nil, "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.request(t, http.MethodGet, "/users/not-a-uuid", nil, "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.request(t, http.MethodGet, "/users/00000000-0000-0000-0000-000000000001", nil, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestEdit(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "ann", "ann@x.com", "Pw123!")
	env.signUp(t, "zed", "zed@x.com", "Pw123!")
	access := env.login(t, "ann", "Pw123!")

	status, body := env.request(t, http.MethodPatch, "/users", map[string]string{"username": "ann2"}, access)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, fields(body), "current_password")

	status, body = env.request(t, http.MethodPatch, "/users", map[string]string{
		"current_password": "Pw123!", "email": "zed@x.com",
	}, access)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, []interface{}{validation.MsgEmailTaken}, fields(body)["email"])

	status, _ = env.request(t, http.MethodPatch, "/users", map[string]string{
		"current_password": "Pw123!", "username": "ann2", "password": "NewPw1!", "password2": "NewPw1!",
	}, access)
	assert.Equal(t, http.StatusOK, status)

	env.login(t, "ann2", "NewPw1!")
	assert.Equal(t, "ann@x.com", env.userByName(t, "ann2").Email)
}

func TestGoogleLoginConfig(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.request(t, http.MethodGet, "/auth/google", nil, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "client-123.apps.googleusercontent.com", body["client_id"])
	assert.Equal(t, "http://127.0.0.1:5500/index.html", body["redirect_uri"])
}

func TestGoogleExchange(t *testing.T) {
	env := newTestEnv(t)
	env.identity.profiles["ya29.bob"] = &services.GoogleProfile{Email: "bob@x.com"}
	env.identity.profiles["ya29.ann"] = &services.GoogleProfile{Email: "ann@x.com"}
	env.signUp(t, "ann", "ann@x.com", "Pw123!")

	status, _ := env.request(t, http.MethodPost, "/auth/google/token", map[string]string{}, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 0, env.identity.calls)

	status, _ = env.request(t, http.MethodPost, "/auth/google/token", map[string]string{"access_token": "revoked"}, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.request(t, http.MethodPost, "/auth/google/token", map[string]string{"access_token": "ya29.ann"}, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := env.request(t, http.MethodPost, "/auth/google/token", map[string]string{"access_token": "ya29.bob"}, "")
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["refresh"])
	assert.NotEmpty(t, body["access"])

	bob := env.userByName(t, "bob_g")
	assert.Equal(t, "bob@x.com", bob.Email)
	assert.Equal(t, models.LoginTypeGoogle, bob.LoginType)

	status, _ = env.request(t, http.MethodPost, "/auth/google/token", map[string]string{"access_token": "ya29.bob"}, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, env.store.users, 2)

	claims, err := env.tokens.Parse(body["access"].(string))
	require.NoError(t, err)
	assert.Equal(t, "bob_g", claims.Username)
	assert.Equal(t, models.LoginTypeGoogle, claims.LoginType)
}

func TestGoogleExchangeUpstreamDown(t *testing.T) {
	env := newTestEnv(t)
	env.identity.err = services.ErrUpstreamUnavailable

	status, body := env.request(t, http.MethodPost, "/auth/google/token", map[string]string{"access_token": "ya29.bob"}, "")
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, true, body["error"])
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "ann", "ann@x.com", "Pw123!")

	_, pair := env.request(t, http.MethodPost, "/auth/token", map[string]string{"username": "ann", "password": "Pw123!"}, "")
	refresh := pair["refresh"].(string)

	status, body := env.request(t, http.MethodPost, "/auth/token/refresh", map[string]string{"refresh": refresh}, "")
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["access"])

	status, _ = env.request(t, http.MethodPut, "/users", map[string]string{"password": "Pw123!"}, body["access"].(string))
	require.Equal(t, http.StatusOK, status)

	status, _ = env.request(t, http.MethodPost, "/auth/token/refresh", map[string]string{"refresh": refresh}, "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRefreshTokenCannotAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "ann", "ann@x.com", "Pw123!")

	_, pair := env.request(t, http.MethodPost, "/auth/token", map[string]string{"username": "ann", "password": "Pw123!"}, "")

	status, _ := env.request(t, http.MethodPatch, "/users", map[string]string{"current_password": "Pw123!"}, pair["refresh"].(string))
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	env.dbMock.ExpectPing()
	status, body := env.request(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["db"])

	env.dbMock.ExpectPing().WillReturnError(assert.AnError)
	status, body = env.request(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "degraded", body["status"])
}
