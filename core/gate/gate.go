// Package gate decides whether a page may be shown for a session.
package gate

import (
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/user"
)

const LoginPath = "/login"

// Requirement is the role a page requires; RequireNone pages are public.
type Requirement string

const (
	RequireNone    Requirement = ""
	RequireAdmin   Requirement = Requirement(user.RoleAdmin)
	RequireFaculty Requirement = Requirement(user.RoleFaculty)
	RequireStudent Requirement = Requirement(user.RoleStudent)
)

type Outcome int

const (
	Loading Outcome = iota
	Render
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	default:
		return "loading"
	}
}

// Decision is the result of the gate: Location is set for a Redirect, Page for a Render.
type Decision struct {
	Outcome  Outcome
	Location string
	Page     Page
}

// HomePath is where a signed-in user lands.
func HomePath(role user.Role) string {
	if !role.Valid() {
		return LoginPath
	}
	return role.HomePath()
}

// Decide evaluates req against s. It keeps no state between calls.
func Decide(s session.Session, req Requirement) Decision {
	if s.IsLoading {
		return Decision{Outcome: Loading}
	}
	if req == RequireNone {
		return Decision{Outcome: Render}
	}
	if s.CurrentUser == nil {
		return Decision{Outcome: Redirect, Location: LoginPath}
	}
	if role := s.Role(); user.Role(req) != role {
		return Decision{Outcome: Redirect, Location: HomePath(role)}
	}
	return Decision{Outcome: Render}
}
