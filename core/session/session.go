// Package session holds the current authentication state of one client.
package session

import (
	"github.com/trezcool/academia/core/user"
)

type State int

const (
	Uninitialized State = iota
	Loading
	Authenticated
	Anonymous
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	default:
		return "uninitialized"
	}
}

// Session is a snapshot of the authentication state.
type Session struct {
	State       State
	CurrentUser *user.Profile // nil unless Authenticated
	IsLoading   bool
}

func newSession(state State, p *user.Profile) Session {
	if state != Authenticated {
		p = nil
	}
	return Session{State: state, CurrentUser: p, IsLoading: state == Uninitialized || state == Loading}
}

// Settled is the session of a request that already knows its user: Authenticated for p, Anonymous for nil.
func Settled(p *user.Profile) Session {
	if p == nil {
		return newSession(Anonymous, nil)
	}
	return newSession(Authenticated, p)
}

// Role is the role of the current user, or "" when signed out.
func (s Session) Role() user.Role {
	if s.CurrentUser == nil {
		return ""
	}
	return s.CurrentUser.Role()
}

type Level int

const (
	LevelSuccess Level = iota
	LevelError
)

func (l Level) String() string {
	if l == LevelError {
		return "error"
	}
	return "success"
}

// Notice is a short message for the user about the outcome of an operation.
type Notice struct {
	Level   Level
	Message string
}

type Notifier interface {
	Notify(n Notice)
}

type NotifierFunc func(n Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

type nopNotifier struct{}

func (nopNotifier) Notify(Notice) {}
