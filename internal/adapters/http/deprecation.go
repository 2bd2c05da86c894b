package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DeprecatedRoute marks an endpoint as deprecated with sunset date.
type DeprecatedRoute struct {
	Path        string    // Route pattern, e.g. /v1/phones/:id
	SunsetDate  time.Time // Date when endpoint will be removed
	Alternative string    // Recommended alternative endpoint (optional)
}

// DeprecationMiddleware adds RFC 8594 Deprecation and Sunset headers, a
// successor-version Link and a Warning to requests matching a deprecated route.
func DeprecationMiddleware(deprecated []DeprecatedRoute) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if d, ok := findDeprecated(deprecated, c.Path()); ok {
			c.Set("Deprecation", "true")
			c.Set("Sunset", d.SunsetDate.UTC().Format(time.RFC1123))
			if d.Alternative != "" {
				c.Set(fiber.HeaderLink, fmt.Sprintf(`<%s>; rel="successor-version"`, d.Alternative))
			}
			days := max(0, int(time.Until(d.SunsetDate).Hours()/24))
			c.Set("Warning", fmt.Sprintf(`299 - "Deprecated API, will sunset in %d days"`, days))
		}
		return c.Next()
	}
}

func findDeprecated(routes []DeprecatedRoute, path string) (DeprecatedRoute, bool) {
	for _, d := range routes {
		if matchPattern(path, d.Path) {
			return d, true
		}
	}
	return DeprecatedRoute{}, false
}

// matchPattern matches a path against a pattern whose :name segments match any
// single non-empty segment.
func matchPattern(path, pattern string) bool {
	if path == pattern {
		return true
	}
	got := strings.Split(strings.Trim(path, "/"), "/")
	want := strings.Split(strings.Trim(pattern, "/"), "/")
	if len(got) != len(want) {
		return false
	}
	for i, seg := range want {
		switch {
		case strings.HasPrefix(seg, ":"):
			if got[i] == "" {
				return false
			}
		case seg != got[i]:
			return false
		}
	}
	return true
}
