package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"

	"userapi/docs"
)

// Swagger serves the Swagger UI with the host and scheme taken from the request.
// fallbackHost (APP_HOST) is used when the request carries no Host header.
func Swagger(fallbackHost string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		docs.SwaggerInfo.Host = swaggerHost(c, fallbackHost)
		docs.SwaggerInfo.Schemes = []string{swaggerScheme(c)}

		return swagger.HandlerDefault(c)
	}
}

func swaggerHost(c *fiber.Ctx, fallback string) string {
	if h := c.Get(fiber.HeaderXForwardedHost); h != "" {
		return strings.TrimSpace(strings.Split(h, ",")[0])
	}
	if h := c.Get(fiber.HeaderHost); h != "" {
		return h
	}
	return fallback
}

func swaggerScheme(c *fiber.Ctx) string {
	if proto := c.Get(fiber.HeaderXForwardedProto); proto != "" {
		return strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return c.Protocol()
}
