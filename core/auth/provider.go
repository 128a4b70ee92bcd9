// Package auth holds the sign-up, sign-in and sign-out flows over an external identity provider.
package auth

import "context"

// Identity is an account of the identity provider.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
	Token       string `json:"-"` // provider-issued credential
}

// Provider is a client of the identity provider, bound to one session.
// Failures are returned as *AuthError.
type Provider interface {
	SignUp(ctx context.Context, email, password, displayName string) (Identity, error)
	SignIn(ctx context.Context, email, password string) (Identity, error)
	SignOut(ctx context.Context) error
	SendPasswordReset(ctx context.Context, email string) error
	// DeleteAccount deletes the signed-in identity and signs out.
	DeleteAccount(ctx context.Context) error
	// Subscribe calls listener with the current identity (nil when signed out), then on every change.
	// listener must not block. The returned func stops the notifications.
	Subscribe(listener func(*Identity)) (unsubscribe func())
}
