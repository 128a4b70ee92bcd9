package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/store"
	"github.com/trezcool/academia/core/user"
)

var (
	errUnauthorized       = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAccountDeactivated = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired     = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden      = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound       = echo.NewHTTPError(http.StatusNotFound, "not found")
	errTooManyRequests    = echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, please try again later")
)

// authErrorStatus maps the provider failures to HTTP statuses.
var authErrorStatus = map[auth.ErrorKind]int{
	auth.KindInvalidCredential: http.StatusBadRequest,
	auth.KindEmailInUse:        http.StatusBadRequest,
	auth.KindWeakPassword:      http.StatusBadRequest,
	auth.KindInvalidEmail:      http.StatusBadRequest,
	auth.KindNotFound:          http.StatusNotFound,
	auth.KindUserDisabled:      http.StatusForbidden,
	auth.KindNetwork:           http.StatusServiceUnavailable,
}

// authErrorField is the request field an auth failure is reported on, if any.
var authErrorField = map[auth.ErrorKind]string{
	auth.KindEmailInUse:   "email",
	auth.KindInvalidEmail: "email",
	auth.KindWeakPassword: "password",
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		if ctx.Response().Committed {
			return
		}

		var code int
		var message interface{}

		var (
			httpErr  *echo.HTTPError
			valErrs  validator.ValidationErrors
			valErr   *core.ValidationError
			authErr  *auth.AuthError
			notFound *store.NotFoundError
		)
		switch {
		case errors.As(err, &httpErr):
			if httpErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = httpErr.Message
				break
			}
			if httpErr.Internal != nil {
				if herr, ok := httpErr.Internal.(*echo.HTTPError); ok {
					httpErr = herr
				}
			}
			code = httpErr.Code
			message = httpErr.Message
		case errors.As(err, &valErrs):
			fldErrs := make(map[string]string, len(valErrs))
			for _, vErr := range valErrs {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case errors.As(err, &valErr):
			if valErr.Fields != nil {
				fldErrs := make(map[string]string, len(valErr.Fields))
				for _, fErr := range valErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = valErr.Error()
			}
			code = http.StatusBadRequest
		case errors.As(err, &authErr):
			code = authErrorStatus[authErr.Kind]
			if code == 0 {
				code = http.StatusInternalServerError
			}
			if field, ok := authErrorField[authErr.Kind]; ok {
				message = map[string]string{field: authErr.Message()}
			} else {
				message = authErr.Message()
			}
		case errors.As(err, &notFound):
			code = http.StatusNotFound
			message = "not found"
		case errors.Is(err, store.ErrInvalidQuery), errors.Is(err, user.ErrRoleImmutable):
			code = http.StatusBadRequest
			message = err.Error()
		case core.IsTimeout(err):
			code = http.StatusGatewayTimeout
			message = http.StatusText(http.StatusGatewayTimeout)
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			args := []interface{}{errors.Wrap(err, msg)}
			if prof, ok := ctx.Get(contextUserKey).(user.Profile); ok {
				args = append(args, prof)
			}
			logger.Error(msg, args...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if ctx.Request().Method == http.MethodHead { // Issue #608
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, message)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}
