package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// cacheRule assigns a Cache-Control value to GET paths matching prefix
// (or equal to it, when exact is set).
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
	{prefix: "/v1/cities", exact: true, value: "public, max-age=3600"},
	{prefix: "/docs", value: "public, max-age=3600"},
	{prefix: "/v1/records/export", value: "private, no-store"},
	{prefix: "/v1/", value: "private, no-cache"},
}

func cacheControlFor(path string) string {
	for _, r := range cacheRules {
		if path == r.prefix || (!r.exact && strings.HasPrefix(path, r.prefix)) {
			return r.value
		}
	}
	return ""
}

// CachingMiddleware sets a default Cache-Control on GET responses whose
// handler did not set one.
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
