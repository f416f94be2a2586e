package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"userapi/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Keep handlers minimal and free of business logic; validation and logging live in the service.
func RegisterRoutes(app *fiber.App, health HealthChecker, userSvc service.UserService, gatherer prometheus.Gatherer) {
	app.Get("/health", HealthCheck(health))
	app.Get("/healthz", LivenessProbe())

	if gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	v1 := app.Group("/v1")
	users := v1.Group("/user")
	users.Get("/:id", GetUser(userSvc))
	users.Post("/", CreateUser(userSvc))
	users.Put("/", UpdateUser(userSvc))
	users.Delete("/:id", DeleteUser(userSvc))
}
