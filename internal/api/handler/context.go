package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/asgr-game/account-service/internal/api/middleware"
	"github.com/asgr-game/account-service/internal/core/domain"
)

// ctxIdentity returns the identity injected by the Auth middleware. An empty
// user id means the route was mounted without it.
func ctxIdentity(c echo.Context) (domain.Identity, error) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok || identity.UserID == "" {
		return domain.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return identity, nil
}
