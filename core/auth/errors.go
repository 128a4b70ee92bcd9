package auth

import (
	"github.com/pkg/errors"
)

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalidCredential
	KindEmailInUse
	KindWeakPassword
	KindInvalidEmail
	KindNotFound
	KindUserDisabled
	KindNetwork
)

var kindNames = map[ErrorKind]string{
	KindUnknown:           "unknown",
	KindInvalidCredential: "invalid-credential",
	KindEmailInUse:        "email-already-in-use",
	KindWeakPassword:      "weak-password",
	KindInvalidEmail:      "invalid-email",
	KindNotFound:          "user-not-found",
	KindUserDisabled:      "user-disabled",
	KindNetwork:           "network-request-failed",
}

var kindMessages = map[ErrorKind]string{
	KindUnknown:           "Something went wrong, please try again",
	KindInvalidCredential: "Invalid email or password",
	KindEmailInUse:        "Email is already in use",
	KindWeakPassword:      "Password is too weak",
	KindInvalidEmail:      "Invalid email address",
	KindNotFound:          "User profile not found",
	KindUserDisabled:      "This account has been disabled",
	KindNetwork:           "Network error, please check your connection",
}

func (k ErrorKind) String() string { return kindNames[k] }

// AuthError is a failed authentication operation. Err carries the detailed cause,
// which must not be shown to users: use Message.
type AuthError struct {
	Kind ErrorKind
	Err  error
}

func NewError(kind ErrorKind, err error) *AuthError {
	return &AuthError{Kind: kind, Err: err}
}

func (err *AuthError) Error() string {
	if err.Err == nil {
		return "auth/" + err.Kind.String()
	}
	return "auth/" + err.Kind.String() + ": " + err.Err.Error()
}

func (err *AuthError) Unwrap() error { return err.Err }

// Message is the coarse, user-facing description of the failure.
func (err *AuthError) Message() string { return kindMessages[err.Kind] }

// KindOf returns the kind of the *AuthError in err's chain, or KindUnknown.
func KindOf(err error) ErrorKind {
	var aerr *AuthError
	if errors.As(err, &aerr) {
		return aerr.Kind
	}
	return KindUnknown
}
