package handler

import (
	"time"

	"github.com/asgr-game/account-service/internal/core/domain"
)

// registerRequest is the JSON body of POST /account/register.
type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

// loginRequest is the OAuth2 password form of POST /account/login. The
// username field carries the email address.
type loginRequest struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// updatePasswordRequest is the JSON body of PUT /account/update_password.
type updatePasswordRequest struct {
	Password    string `json:"password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,max=72"`
}

// updateProfileRequest is the JSON body of PUT /account/update.
type updateProfileRequest struct {
	FirstName string `json:"new_firstname" validate:"max=64"`
	LastName  string `json:"new_lastname" validate:"max=64"`
}

// listUsersQuery is the query string of GET /su/.
type listUsersQuery struct {
	Limit  int `query:"limit" validate:"gte=0,lte=200"`
	Offset int `query:"offset" validate:"gte=0"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type profileResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	UserType  int       `json:"user_type"`
	IsActive  bool      `json:"is_active"`
	IsValid   bool      `json:"is_valid"`
	CreatedAt time.Time `json:"created_at"`
}

func toProfileResponse(u *domain.User) profileResponse {
	return profileResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		UserType:  int(u.UserType.Normalize()),
		IsActive:  u.IsActive,
		IsValid:   u.IsValid,
		CreatedAt: u.CreatedAt,
	}
}

func toProfileResponses(users []*domain.User) []profileResponse {
	out := make([]profileResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toProfileResponse(u))
	}
	return out
}
