package gate

import (
	"testing"

	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/user"
)

func sessionOf(role user.Role) session.Session {
	var details user.Details
	switch role {
	case user.RoleAdmin:
		details = user.AdminDetails{}
	case user.RoleFaculty:
		details = user.FacultyDetails{}
	case user.RoleStudent:
		details = user.StudentDetails{}
	}
	return session.Session{State: session.Authenticated, CurrentUser: &user.Profile{UID: "u1", Details: details}}
}

var (
	loading   = session.Session{State: session.Loading, IsLoading: true}
	anonymous = session.Session{State: session.Anonymous}
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name string
		s    session.Session
		req  Requirement
		want Decision
	}{
		{name: "loading", s: loading, req: RequireAdmin, want: Decision{Outcome: Loading}},
		{name: "loading public", s: loading, req: RequireNone, want: Decision{Outcome: Loading}},
		{name: "anonymous public", s: anonymous, req: RequireNone, want: Decision{Outcome: Render}},
		{name: "anonymous protected", s: anonymous, req: RequireStudent, want: Decision{Outcome: Redirect, Location: "/login"}},
		{name: "student to admin", s: sessionOf(user.RoleStudent), req: RequireAdmin, want: Decision{Outcome: Redirect, Location: "/student"}},
		{name: "faculty to student", s: sessionOf(user.RoleFaculty), req: RequireStudent, want: Decision{Outcome: Redirect, Location: "/faculty"}},
		{name: "admin to admin", s: sessionOf(user.RoleAdmin), req: RequireAdmin, want: Decision{Outcome: Render}},
		{name: "signed in public", s: sessionOf(user.RoleAdmin), req: RequireNone, want: Decision{Outcome: Render}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.s, tt.req); got != tt.want {
				t.Errorf("Decide() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNavigate(t *testing.T) {
	tests := []struct {
		name string
		s    session.Session
		path string
		want Decision
	}{
		{name: "root anonymous", s: anonymous, path: "/", want: Decision{Outcome: Redirect, Location: "/login"}},
		{name: "root faculty", s: sessionOf(user.RoleFaculty), path: "/", want: Decision{Outcome: Redirect, Location: "/faculty"}},
		{name: "root loading", s: loading, path: "/", want: Decision{Outcome: Loading}},
		{name: "login", s: anonymous, path: "/login", want: Decision{Outcome: Render, Page: PageLogin}},
		{name: "student on admin page", s: sessionOf(user.RoleStudent), path: "/admin", want: Decision{Outcome: Redirect, Location: "/student"}},
		{name: "student history", s: sessionOf(user.RoleStudent), path: "/student/CourseHistory", want: Decision{Outcome: Render, Page: PageCourseHistory}},
		{name: "trailing slash", s: sessionOf(user.RoleAdmin), path: "/admin/courses/", want: Decision{Outcome: Render, Page: PageManageCourses}},
		{name: "anonymous grades", s: anonymous, path: "/faculty/grades", want: Decision{Outcome: Redirect, Location: "/login"}},
		{name: "unknown", s: anonymous, path: "/nope", want: Decision{Outcome: Render, Page: PageNotFound}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Navigate(tt.s, tt.path); got != tt.want {
				t.Errorf("Navigate() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEveryRoleRouteIsGuarded(t *testing.T) {
	for _, r := range Routes {
		if r.Requirement == RequireNone {
			continue
		}
		for _, role := range user.Roles {
			d := Navigate(sessionOf(role), r.Path)
			if Requirement(role) == r.Requirement {
				if d.Outcome != Render || d.Page != r.Page {
					t.Errorf("Navigate(%s, %s) = %+v, want render of %s", role, r.Path, d, r.Page)
				}
			} else if d.Outcome != Redirect || d.Location != "/"+string(role) {
				t.Errorf("Navigate(%s, %s) = %+v, want redirect to /%s", role, r.Path, d, role)
			}
		}
	}
}
