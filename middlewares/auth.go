package middlewares

import (
	"strings"

	"fencing-backend/auth"
	"fencing-backend/models"
	"fencing-backend/services"

	"github.com/gofiber/fiber/v2"
)

const (
	authHeader   = "Authorization"
	bearerPrefix = "Bearer "
	sessionLocal = "session"
)

// Authenticated resolves the session cookie, or a Bearer token when no cookie
// is sent, into c.Locals. It never rejects; Require* handlers do that.
func Authenticated(sessions *auth.SessionManager, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Cookies(cookieName)
		if raw == "" {
			h := c.Get(authHeader)
			if len(h) > len(bearerPrefix) && strings.EqualFold(h[:len(bearerPrefix)], bearerPrefix) {
				raw = strings.TrimSpace(h[len(bearerPrefix):])
			}
		}
		if raw != "" {
			if sess, ok := sessions.Verify(raw); ok {
				c.Locals(sessionLocal, sess)
			}
		}
		return c.Next()
	}
}

// CurrentSession returns the verified session of the request, if any.
func CurrentSession(c *fiber.Ctx) (auth.Session, bool) {
	sess, ok := c.Locals(sessionLocal).(auth.Session)
	return sess, ok
}

// CurrentActor is the audit identity of the request.
func CurrentActor(c *fiber.Ctx) services.Actor {
	sess, _ := CurrentSession(c)
	return services.Actor{UserID: sess.UserID, Email: sess.Email}
}

// RequireAuth rejects requests without a valid session.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := CurrentSession(c); !ok {
			return fiber.ErrUnauthorized
		}
		return c.Next()
	}
}

// RequireRole admits sessions holding one of roles: 401 without a session, 403 otherwise.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, ok := CurrentSession(c)
		if !ok {
			return fiber.ErrUnauthorized
		}
		if !sess.HasRole(roles...) {
			return fiber.ErrForbidden
		}
		return c.Next()
	}
}

func RequireAdmin() fiber.Handler {
	return RequireRole(models.RoleAdmin)
}

func RequireManager() fiber.Handler {
	return RequireRole(models.RoleManager, models.RoleAdmin)
}

func RequireFinance() fiber.Handler {
	return RequireRole(models.RoleFinance, models.RoleAdmin)
}
