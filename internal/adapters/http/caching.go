package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

type cacheRule struct {
	prefix string
	exact  bool
	value  string
}

// cacheRules are checked in order; the first match wins.
var cacheRules = []cacheRule{
	{prefix: "/v1/health", exact: true, value: "public, max-age=10"},
	{prefix: "/v1/ready", exact: true, value: "public, max-age=10"},
	{prefix: "/metrics", exact: true, value: "no-cache"},
	{prefix: "/graphql", exact: true, value: "private, max-age=0"},
	// Photo bytes never change under an id.
	{prefix: "/v1/photos/", value: "private, max-age=31536000, immutable"},
	{prefix: "/v1/places/", value: "private, max-age=3600"},
	{prefix: "/v1/cafes/nearby", exact: true, value: "private, max-age=60"},
	{prefix: "/v1/fog", value: "private, max-age=30"},
	{prefix: "/v1/visited-coords", exact: true, value: "private, max-age=30"},
	{prefix: "/v1/", value: "private, no-cache"},
}

func cacheControlFor(path string) string {
	for _, r := range cacheRules {
		if r.exact && path == r.prefix || !r.exact && strings.HasPrefix(path, r.prefix) {
			return r.value
		}
	}
	return ""
}

// CachingMiddleware sets a Cache-Control header on GET responses that do not
// carry one yet, picked by path.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if c.Method() != fiber.MethodGet {
			return err
		}
		if len(c.Response().Header.Peek(fiber.HeaderCacheControl)) > 0 {
			return err
		}
		if v := cacheControlFor(c.Path()); v != "" {
			c.Set(fiber.HeaderCacheControl, v)
		}
		return err
	}
}
