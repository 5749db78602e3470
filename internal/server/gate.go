package server

import (
	"net/url"
	"strings"

	"gigboard/internal/models"
	"gigboard/internal/policy"

	"github.com/gofiber/fiber/v2"
)

// protectedPrefixes are the page trees that need a signed-in user.
var protectedPrefixes = []string{
	"/dashboard",
	"/jobs/new",
	"/contracts",
	"/wallet",
	"/messages",
	"/onboarding",
	"/admin",
}

// hasPrefix matches whole path segments, so /admins does not match /admin.
func hasPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

func isProtected(path string) bool {
	for _, p := range protectedPrefixes {
		if hasPrefix(path, p) {
			return true
		}
	}
	return false
}

// homeFor is where a signed-in actor lands.
func homeFor(a *policy.Actor) string {
	switch {
	case !a.Onboarded:
		return "/onboarding"
	case a.Role == models.RoleAdmin:
		return "/admin"
	case a.Role == models.RoleEmployer:
		return "/dashboard/employer"
	default:
		return "/dashboard/freelancer"
	}
}

// gateRedirect decides where a page request must go instead, or "" to let
// it through.
func gateRedirect(path, rawQuery string, a *policy.Actor) string {
	if a == nil {
		if !isProtected(path) {
			return ""
		}
		next := path
		if rawQuery != "" {
			next += "?" + rawQuery
		}
		return "/sign-in?next=" + url.QueryEscape(next)
	}

	switch {
	case path == "/sign-in" || path == "/sign-up":
		return homeFor(a)
	case !isProtected(path):
		return ""
	case !a.Onboarded && !hasPrefix(path, "/onboarding"):
		return "/onboarding"
	case a.Onboarded && hasPrefix(path, "/onboarding"):
		return homeFor(a)
	case hasPrefix(path, "/admin") && !a.IsAdmin():
		return homeFor(a)
	}
	return ""
}

// RouteGate redirects page requests based on the session. API, media,
// health and metrics paths are never redirected.
func (s *Server) RouteGate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if hasPrefix(path, "/api") || hasPrefix(path, "/media") || hasPrefix(path, "/health") || path == "/metrics" {
			return c.Next()
		}
		if c.Method() != fiber.MethodGet && c.Method() != fiber.MethodHead {
			return c.Next()
		}
		if to := gateRedirect(path, string(c.Request().URI().QueryString()), actor(c)); to != "" {
			return c.Redirect(to, fiber.StatusSeeOther)
		}
		return c.Next()
	}
}
