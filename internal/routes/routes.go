package routes

import (
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type Handlers struct {
	User   *handlers.UserHandler
	Google *handlers.GoogleHandler
	Auth   *handlers.AuthHandler
	Health *handlers.HealthHandler
}

// Setup mounts every route. rdb may be nil.
func Setup(app *fiber.App, cfg *config.Config, rdb *redis.Client, h Handlers) {
	app.Get("/health", h.Health.Check)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Anonymous GET and POST are allowed; PUT and PATCH need a session.
	users := app.Group("/users", middleware.UserAccess(cfg))
	users.Post("/", h.User.SignUp)
	users.Put("/", h.User.Deactivate)
	users.Patch("/", h.User.Edit)
	users.Get("/", h.User.Retrieve)
	users.Get("/:id", h.User.Retrieve)

	auth := app.Group("/auth", middleware.AuthRateLimit(cfg, rdb))
	auth.Get("/google", h.Google.LoginConfig)
	auth.Post("/google/token", h.Google.Exchange)
	auth.Post("/token", h.Auth.Login)
	auth.Post("/token/refresh", h.Auth.Refresh)
}
