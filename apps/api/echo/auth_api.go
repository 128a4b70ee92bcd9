package echoapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/services/identity/local"
)

type authApi struct {
	srv *Server
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, srv *Server) {
	api := authApi{srv: srv}

	ag := g.Group("/auth", srv.limiter.middleware())
	ag.POST("/signin", api.signIn)
	ag.POST("/signup", api.signUp)
	ag.POST("/password-reset", api.resetPassword)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset)
	ag.POST("/token-refresh", api.refreshToken, jwt)

	g.GET("/me", api.me, jwt)
}

// Handlers

func (api *authApi) signIn(ctx echo.Context) error {
	var data SignInRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SignInRequest")
	}
	if err := data.Validate(api.srv.deps.Validate); err != nil {
		return err
	}

	prof, err := api.srv.newAuthService().SignIn(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return err
	}
	ctx.Set(contextUserKey, prof)

	token, err := api.srv.TokenFor(prof)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token, User: &prof})
}

func (api *authApi) signUp(ctx echo.Context) error {
	var data SignUpRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SignUpRequest")
	}
	if err := data.Validate(api.srv.deps.Validate); err != nil {
		return err
	}

	prof, err := api.srv.newAuthService().SignUp(ctx.Request().Context(), data.Email, data.Password, data.Profile)
	if err != nil {
		return err
	}
	ctx.Set(contextUserKey, prof)

	token, err := api.srv.TokenFor(prof)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, TokenResponse{Token: token, User: &prof})
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.srv.deps.Validate); err != nil {
		return err
	}

	err := api.srv.newAuthService().ResetPassword(ctx.Request().Context(), data.Email)
	if err != nil && auth.KindOf(err) != auth.KindNotFound {
		// do not return errors to attackers
		api.srv.deps.Logger.Error("requesting password reset", err)
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *authApi) confirmPasswordReset(ctx echo.Context) error {
	var data PasswordResetConfirmRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetConfirmRequest")
	}
	if err := api.srv.deps.Validate.Struct(data); err != nil {
		return err
	}

	err := api.srv.deps.Directory.ConfirmPasswordReset(ctx.Request().Context(), data.UID, data.Token, data.Password)
	if err != nil {
		if errors.Is(err, local.ErrInvalidResetLink) {
			return core.NewValidationError(local.ErrInvalidResetLink)
		}
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	token, err := api.srv.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *authApi) me(ctx echo.Context) error {
	prof, err := api.srv.getContextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, prof)
}

type (
	SignInRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	// SignUpRequest is a flat body: the credentials next to the user.NewProfile fields.
	SignUpRequest struct {
		Email    string          `json:"email" validate:"required,email"`
		Password string          `json:"password" validate:"required"`
		Profile  user.NewProfile `json:"-" validate:"-"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	PasswordResetConfirmRequest struct {
		UID      string `json:"uid" validate:"required"`
		Token    string `json:"token" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	TokenResponse struct {
		Token string        `json:"token"`
		User  *user.Profile `json:"user,omitempty"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (r *SignInRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	return validate.Struct(r)
}

type signUpCredentials SignUpRequest

func (r *SignUpRequest) UnmarshalJSON(data []byte) error {
	var creds signUpCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &creds.Profile); err != nil {
		return err
	}
	*r = SignUpRequest(creds)
	return nil
}

// Validate checks the credentials only: the profile is validated by the sign-up flow.
func (r *SignUpRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	return validate.Struct(r)
}

func (r *PasswordResetRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	return validate.Struct(r)
}
