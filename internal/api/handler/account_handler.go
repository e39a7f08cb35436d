package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/asgr-game/account-service/internal/core/domain"
	"github.com/asgr-game/account-service/internal/core/ports"
)

const (
	msgRegistered = "Account created. Check your e-mail to confirm the address."
	msgConfirmed  = "E-mail address confirmed."
)

type AccountHandler struct {
	accounts ports.AccountService
	log      zerolog.Logger
}

func NewAccountHandler(accounts ports.AccountService, log zerolog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, log: log}
}

// Register creates a new, unconfirmed account and sends the confirmation mail.
//
// @Summary      Register a new account
// @Tags         account
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Account credentials"
// @Success      201   {object}  messageResponse
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /account/register [post]
func (h *AccountHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.accounts.Register(c.Request().Context(), ports.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		ClientIP: c.RealIP(),
	})
	if err != nil {
		return err
	}
	h.warnDegraded(c, res.Audit)

	return c.JSON(http.StatusCreated, messageResponse{Message: msgRegistered})
}

// Login exchanges credentials for a bearer token.
//
// @Summary      Log in
// @Tags         account
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        username  formData  string  true  "E-mail address"
// @Param        password  formData  string  true  "Password"
// @Success      200  {object}  tokenResponse
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /account/login [post]
func (h *AccountHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.accounts.Login(c.Request().Context(), ports.LoginInput{
		Email:    req.Username,
		Password: req.Password,
		ClientIP: c.RealIP(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) || errors.Is(err, domain.ErrAccountDisabled) {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		}
		return err
	}
	h.warnDegraded(c, res.Audit)

	return c.JSON(http.StatusOK, tokenResponse{AccessToken: res.AccessToken, TokenType: res.TokenType})
}

// ConfirmEmail redeems the link sent after registration.
//
// @Summary      Confirm e-mail address
// @Tags         account
// @Produce      json
// @Param        token  path      string  true  "Confirmation token"
// @Success      200    {object}  messageResponse
// @Failure      404    {object}  map[string]string
// @Failure      410    {object}  map[string]string
// @Router       /account/confirm_email/{token} [get]
func (h *AccountHandler) ConfirmEmail(c echo.Context) error {
	audit, err := h.accounts.ConfirmEmail(c.Request().Context(), c.Param("token"))
	if err != nil {
		return err
	}
	h.warnDegraded(c, audit)

	return c.JSON(http.StatusOK, messageResponse{Message: msgConfirmed})
}

// UpdatePassword rotates the caller's password.
//
// @Summary      Change password
// @Tags         account
// @Accept       json
// @Security     BearerAuth
// @Param        body  body  updatePasswordRequest  true  "Current and new password"
// @Success      204
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /account/update_password [put]
func (h *AccountHandler) UpdatePassword(c echo.Context) error {
	identity, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req updatePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	audit, err := h.accounts.ChangePassword(c.Request().Context(), ports.ChangePasswordInput{
		UserID:      identity.UserID,
		OldPassword: req.Password,
		NewPassword: req.NewPassword,
		ClientIP:    c.RealIP(),
	})
	if err != nil {
		// a wrong current password is a bad request here, the caller is authenticated
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusBadRequest, "incorrect password")
		}
		return err
	}
	h.warnDegraded(c, audit)

	return c.NoContent(http.StatusNoContent)
}

// UpdateProfile replaces the caller's first and last name.
//
// @Summary      Edit profile
// @Tags         account
// @Accept       json
// @Security     BearerAuth
// @Param        body  body  updateProfileRequest  true  "New names"
// @Success      204
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /account/update [put]
func (h *AccountHandler) UpdateProfile(c echo.Context) error {
	identity, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	audit, err := h.accounts.UpdateProfile(c.Request().Context(), ports.UpdateProfileInput{
		UserID:    identity.UserID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		ClientIP:  c.RealIP(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials")
		}
		return err
	}
	h.warnDegraded(c, audit)

	return c.NoContent(http.StatusNoContent)
}

// Me returns the profile of the authenticated account.
//
// @Summary      Current account
// @Tags         account
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  profileResponse
// @Failure      401  {object}  map[string]string
// @Router       /account/me [get]
func (h *AccountHandler) Me(c echo.Context) error {
	identity, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	user, err := h.accounts.Profile(c.Request().Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials")
		}
		return err
	}
	return c.JSON(http.StatusOK, toProfileResponse(user))
}

// Logout revokes the presented bearer token.
//
// @Summary      Log out
// @Tags         account
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  map[string]string
// @Router       /account/logout [post]
func (h *AccountHandler) Logout(c echo.Context) error {
	identity, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	audit, err := h.accounts.Logout(c.Request().Context(), identity)
	if err != nil {
		return err
	}
	h.warnDegraded(c, audit)

	return c.NoContent(http.StatusNoContent)
}

func (h *AccountHandler) warnDegraded(c echo.Context, audit ports.AuditOutcome) {
	if !audit.Degraded() {
		return
	}
	h.log.Warn().
		Err(audit.Err).
		Str("event_type", audit.Event.String()).
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Msg("request completed without audit record")
}
