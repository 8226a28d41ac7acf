package echoapi

import (
	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/core/user"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Validate() error {
	r.Email = core.CleanString(r.Email, true)
	return core.Validate.Struct(r)
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (r *RefreshRequest) Validate() error {
	r.RefreshToken = core.CleanString(r.RefreshToken)
	return core.Validate.Struct(r)
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type SignupResponse struct {
	User user.User `json:"user"`
	TokenResponse
}

type SuccessResponse struct {
	Success string `json:"success"`
}

// PagedResponse wraps list endpoints: Count is the unpaginated total.
type PagedResponse struct {
	Count   int         `json:"count"`
	Results interface{} `json:"results"`
}

type OverrideResultsRequest struct {
	Results []quiz.Result `json:"results" validate:"required"`
}

func (r *OverrideResultsRequest) Validate() error {
	return core.Validate.Struct(r)
}
