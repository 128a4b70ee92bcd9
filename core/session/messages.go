package session

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/user"
)

const (
	msgSignedIn       = "Signed in successfully"
	msgSignInFailed   = "Failed to sign in"
	msgAccountCreated = "Account created successfully"
	msgSignUpFailed   = "Failed to create account"
	msgSignedOut      = "Signed out successfully"
	msgSignOutFailed  = "Failed to sign out"
	msgResetSent      = "Password reset email sent"
	msgResetFailed    = "Failed to send password reset email"
	msgProfileError   = "Error loading user profile"
	msgRoleRequired   = "Role must be selected"
	msgTimedOut       = "The request timed out, please try again"
)

// failureMessage picks the notice of a failed operation: the coarse cause when the user can act on it,
// the generic failure of the operation otherwise.
func failureMessage(err error, fallback string) string {
	if core.IsTimeout(err) {
		return msgTimedOut
	}
	var aerr *auth.AuthError
	if errors.As(err, &aerr) {
		switch aerr.Kind {
		case auth.KindInvalidCredential, auth.KindEmailInUse, auth.KindWeakPassword,
			auth.KindInvalidEmail, auth.KindUserDisabled, auth.KindNotFound:
			return aerr.Message()
		}
		return fallback
	}
	if errors.Is(err, user.ErrInvalidRole) || isRoleValidation(err) {
		return msgRoleRequired
	}
	return fallback
}

func isRoleValidation(err error) bool {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return false
	}
	for _, fe := range verrs {
		if fe.Field() == "role" {
			return true
		}
	}
	return false
}
