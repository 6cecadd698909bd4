package middleware

import (
	"net/http"
	"strings"

	"sustain_score_app_go/config"

	"github.com/labstack/echo/v4"
)

const (
	// HeaderForwardedUser carries the user name set by the fronting proxy
	HeaderForwardedUser = "X-Forwarded-User"
	// HeaderForwardedGroups carries the comma separated group list
	HeaderForwardedGroups = "X-Forwarded-Groups"
	// ContextKeyUser is the context key for the resolved caller
	ContextKeyUser = "user"
)

// User is the caller as reported by the trusted proxy. Authentication
// happens upstream; this service only reads the result.
type User struct {
	Name    string
	Groups  []string
	IsAdmin bool
}

// LoadUser resolves the caller from the proxy headers and stores it in the
// context. Requests without a user header are treated as anonymous, non-admin.
func LoadUser(cfg *config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(ContextKeyUser, userFromRequest(cfg, c.Request()))
			return next(c)
		}
	}
}

func userFromRequest(cfg *config.Config, r *http.Request) *User {
	u := &User{Name: strings.TrimSpace(r.Header.Get(HeaderForwardedUser))}
	for _, g := range strings.Split(r.Header.Get(HeaderForwardedGroups), ",") {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		u.Groups = append(u.Groups, g)
		if cfg.IsAdminGroup(g) {
			u.IsAdmin = true
		}
	}
	// group membership without a user name is not trusted
	if u.Name == "" {
		u.IsAdmin = false
	}
	return u
}

// RequireAdmin rejects callers outside the admin groups
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !IsAdmin(c) {
				return echo.NewHTTPError(http.StatusForbidden, "Administrator role required")
			}
			return next(c)
		}
	}
}

// GetCurrentUser retrieves the caller from context
func GetCurrentUser(c echo.Context) *User {
	user, ok := c.Get(ContextKeyUser).(*User)
	if !ok {
		return nil
	}
	return user
}

// IsAdmin reports whether the caller holds the admin role
func IsAdmin(c echo.Context) bool {
	user := GetCurrentUser(c)
	return user != nil && user.IsAdmin
}

// UserName returns the caller's name, or "anonymous"
func UserName(c echo.Context) string {
	if user := GetCurrentUser(c); user != nil && user.Name != "" {
		return user.Name
	}
	return "anonymous"
}
