package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/asgr-game/account-service/internal/core/ports"
)

// AdminHandler serves the superuser routes. They are mounted behind Auth and
// RBAC; the service checks the role again.
type AdminHandler struct {
	accounts ports.AccountService
	log      zerolog.Logger
}

func NewAdminHandler(accounts ports.AccountService, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{accounts: accounts, log: log}
}

// ListUsers pages through every account in registration order.
//
// @Summary      List accounts
// @Tags         superuser
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query     int  false  "Page size (default 50, max 200)"
// @Param        offset  query     int  false  "Records to skip"
// @Success      200     {array}   profileResponse
// @Failure      401     {object}  map[string]string
// @Failure      403     {object}  map[string]string
// @Router       /su/ [get]
func (h *AdminHandler) ListUsers(c echo.Context) error {
	identity, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var q listUsersQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query")
	}
	if err := c.Validate(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	users, err := h.accounts.ListUsers(c.Request().Context(), ports.ListUsersInput{
		Actor:  identity,
		Limit:  q.Limit,
		Offset: q.Offset,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toProfileResponses(users))
}

// Activate re-enables login for an account.
//
// @Summary      Activate account
// @Tags         superuser
// @Security     BearerAuth
// @Param        id   path  string  true  "User ID"
// @Success      204
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /su/users/{id}/activate [put]
func (h *AdminHandler) Activate(c echo.Context) error {
	return h.setActive(c, true)
}

// Deactivate blocks login for an account.
//
// @Summary      Deactivate account
// @Tags         superuser
// @Security     BearerAuth
// @Param        id   path  string  true  "User ID"
// @Success      204
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /su/users/{id}/deactivate [put]
func (h *AdminHandler) Deactivate(c echo.Context) error {
	return h.setActive(c, false)
}

func (h *AdminHandler) setActive(c echo.Context, active bool) error {
	identity, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	audit, err := h.accounts.SetActive(c.Request().Context(), ports.SetActiveInput{
		Actor:    identity,
		UserID:   c.Param("id"),
		Active:   active,
		ClientIP: c.RealIP(),
	})
	if err != nil {
		return err
	}
	if audit.Degraded() {
		h.log.Warn().
			Err(audit.Err).
			Str("event_type", audit.Event.String()).
			Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
			Msg("request completed without audit record")
	}
	return c.NoContent(http.StatusNoContent)
}
