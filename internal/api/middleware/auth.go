package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/asgr-game/account-service/internal/core/domain"
)

// Echo context keys set by Auth.
const (
	IdentityKey = "identity" // domain.Identity
	RoleKey     = "role"     // string, read by RBAC
)

// Authenticator resolves a bearer token into the caller identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Identity, error)
}

// Auth validates the bearer token and injects the identity into context.
// Store failures while checking the denylist surface as 500s.
func Auth(authn Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return unauthorized(c, "missing authorization header")
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			token = strings.TrimSpace(token)
			if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
				return unauthorized(c, "invalid authorization header")
			}

			identity, err := authn.Authenticate(c.Request().Context(), token)
			switch {
			case err == nil:
			case errors.Is(err, domain.ErrTokenExpired):
				return unauthorized(c, "token expired")
			case errors.Is(err, domain.ErrTokenInvalid):
				return unauthorized(c, "could not validate credentials")
			default:
				return err
			}

			c.Set(IdentityKey, identity)
			c.Set(RoleKey, identity.Role())
			return next(c)
		}
	}
}

// IdentityFrom returns the identity stored by Auth.
func IdentityFrom(c echo.Context) (domain.Identity, bool) {
	identity, ok := c.Get(IdentityKey).(domain.Identity)
	return identity, ok
}

func unauthorized(c echo.Context, msg string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return echo.NewHTTPError(http.StatusUnauthorized, msg)
}
