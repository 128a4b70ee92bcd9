package gate

import (
	"strings"

	"github.com/trezcool/academia/core/session"
)

// Page names a screen of the portal.
type Page string

const (
	PageLogin          Page = "Login"
	PageRegister       Page = "Register"
	PageForgotPassword Page = "ForgotPassword"

	PageAdminDashboard Page = "AdminDashboard"
	PageManageStudents Page = "ManageStudents"
	PageManageFaculty  Page = "ManageFaculty"
	PageManageCourses  Page = "ManageCourses"

	PageFacultyDashboard   Page = "FacultyDashboard"
	PageGradeEntry         Page = "GradeEntry"
	PageStudentPerformance Page = "StudentPerformance"

	PageStudentDashboard Page = "StudentDashboard"
	PageGrades           Page = "Grades"
	PagePerformance      Page = "Performance"
	PageCourseHistory    Page = "CourseHistory"

	PageNotFound Page = "NotFound"
)

type Route struct {
	Path        string
	Page        Page
	Requirement Requirement
}

// Routes is the route table of the portal.
var Routes = []Route{
	{Path: "/login", Page: PageLogin},
	{Path: "/register", Page: PageRegister},
	{Path: "/forgot-password", Page: PageForgotPassword},

	{Path: "/admin", Page: PageAdminDashboard, Requirement: RequireAdmin},
	{Path: "/admin/students", Page: PageManageStudents, Requirement: RequireAdmin},
	{Path: "/admin/faculty", Page: PageManageFaculty, Requirement: RequireAdmin},
	{Path: "/admin/courses", Page: PageManageCourses, Requirement: RequireAdmin},

	{Path: "/faculty", Page: PageFacultyDashboard, Requirement: RequireFaculty},
	{Path: "/faculty/grades", Page: PageGradeEntry, Requirement: RequireFaculty},
	{Path: "/faculty/performance", Page: PageStudentPerformance, Requirement: RequireFaculty},

	{Path: "/student", Page: PageStudentDashboard, Requirement: RequireStudent},
	{Path: "/student/grades", Page: PageGrades, Requirement: RequireStudent},
	{Path: "/student/performance", Page: PagePerformance, Requirement: RequireStudent},
	{Path: "/student/CourseHistory", Page: PageCourseHistory, Requirement: RequireStudent},
}

var routesByPath = func() map[string]Route {
	m := make(map[string]Route, len(Routes))
	for _, r := range Routes {
		m[r.Path] = r
	}
	return m
}()

// Lookup finds the route of path. Trailing slashes are ignored.
func Lookup(path string) (Route, bool) {
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	r, ok := routesByPath[path]
	return r, ok
}

// Navigate decides what to show for path: "/" sends users to their home (or the login page),
// unknown paths show the not found page.
func Navigate(s session.Session, path string) Decision {
	if path == "" || path == "/" {
		if s.IsLoading {
			return Decision{Outcome: Loading}
		}
		if s.CurrentUser == nil {
			return Decision{Outcome: Redirect, Location: LoginPath}
		}
		return Decision{Outcome: Redirect, Location: HomePath(s.Role())}
	}

	r, ok := Lookup(path)
	if !ok {
		return Decision{Outcome: Render, Page: PageNotFound}
	}
	d := Decide(s, r.Requirement)
	if d.Outcome == Render {
		d.Page = r.Page
	}
	return d
}
