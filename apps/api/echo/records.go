package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/user"
)

type recordsApi struct {
	srv  *Server
	recs *academic.Records
}

func registerRecordsAPI(g *echo.Group, jwt echo.MiddlewareFunc, srv *Server) {
	api := recordsApi{srv: srv, recs: srv.deps.Records}
	courses := courseApi{srv: srv, courses: srv.deps.Records.Courses}

	// route level middleware: a "/courses/:id" group would shadow the course detail routes
	access := courses.courseAccessMiddleware()
	staff := srv.roleMiddleware(user.RoleAdmin, user.RoleFaculty)
	g.GET("/courses/:id/assignments", api.courseAssignments, jwt, access)
	g.GET("/courses/:id/grades", api.courseGrades, jwt, access, staff)
	g.GET("/courses/:id/attendance", api.courseAttendance, jwt, access, staff)

	g.GET("/assignments/:id/submissions", api.assignmentSubmissions, jwt, staff)

	sg := g.Group("/students/:id", jwt, api.studentAccessMiddleware())
	sg.GET("/submissions", api.studentSubmissions)
	sg.GET("/grades", api.studentGrades)

	g.GET("/departments", api.departments, jwt)
	g.GET("/departments/:id/programs", api.departmentPrograms, jwt)
	g.GET("/calendar/:year", api.calendar, jwt)

	g.GET("/notifications", api.notifications, jwt)
	g.PUT("/notifications/:id/read", api.markNotificationRead, jwt)
}

// Handlers

func (api *recordsApi) courseAssignments(ctx echo.Context) error {
	course, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	assignments, err := api.recs.Assignments.ByCourse(ctx.Request().Context(), course.ID)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	return ctx.JSON(http.StatusOK, nonNil(assignments))
}

func (api *recordsApi) courseGrades(ctx echo.Context) error {
	course, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	grades, err := api.recs.Grades.ByCourse(ctx.Request().Context(), course.ID)
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	return ctx.JSON(http.StatusOK, nonNil(grades))
}

func (api *recordsApi) courseAttendance(ctx echo.Context) error {
	course, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	sheets, err := api.recs.Attendance.ByCourse(ctx.Request().Context(), course.ID)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return ctx.JSON(http.StatusOK, nonNil(sheets))
}

func (api *recordsApi) assignmentSubmissions(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	assignment, found, err := api.recs.Assignments.GetByID(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding assignment by ID")
	}
	if !found {
		return errHttpNotFound
	}

	// faculty only see the submissions of their own courses
	prof, err := api.srv.getContextUser(ctx)
	if err != nil {
		return err
	}
	if prof.IsFaculty() {
		course, found, err := api.recs.Courses.GetByID(rctx, assignment.CourseID)
		if err != nil {
			return errors.Wrap(err, "finding course by ID")
		}
		if !found || course.Instructor != prof.UID {
			return errHttpNotFound
		}
	}

	subs, err := api.recs.Submissions.ByAssignment(rctx, assignment.ID)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	return ctx.JSON(http.StatusOK, nonNil(subs))
}

func (api *recordsApi) studentSubmissions(ctx echo.Context) error {
	subs, err := api.recs.Submissions.ByStudent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	return ctx.JSON(http.StatusOK, nonNil(subs))
}

func (api *recordsApi) studentGrades(ctx echo.Context) error {
	grades, err := api.recs.Grades.ByStudent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	return ctx.JSON(http.StatusOK, nonNil(grades))
}

func (api *recordsApi) departments(ctx echo.Context) error {
	deps, err := api.recs.Departments.All(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying departments")
	}
	return ctx.JSON(http.StatusOK, nonNil(deps))
}

func (api *recordsApi) departmentPrograms(ctx echo.Context) error {
	progs, err := api.recs.Programs.ByDepartment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying programs")
	}
	return ctx.JSON(http.StatusOK, nonNil(progs))
}

func (api *recordsApi) calendar(ctx echo.Context) error {
	cal, found, err := api.recs.Calendars.ByYear(ctx.Request().Context(), ctx.Param("year"))
	if err != nil {
		return errors.Wrap(err, "finding academic calendar")
	}
	if !found {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, cal)
}

func (api *recordsApi) notifications(ctx echo.Context) error {
	prof, err := api.srv.getContextUser(ctx)
	if err != nil {
		return err
	}
	unreadOnly, _ := strconv.ParseBool(ctx.QueryParam("unread"))

	notes, err := api.recs.Notifications.ForRecipient(ctx.Request().Context(), prof.UID, unreadOnly)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	return ctx.JSON(http.StatusOK, nonNil(notes))
}

func (api *recordsApi) markNotificationRead(ctx echo.Context) error {
	prof, err := api.srv.getContextUser(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	note, found, err := api.recs.Notifications.GetByID(rctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding notification by ID")
	}
	if !found || note.RecipientID != prof.UID {
		return errHttpNotFound
	}
	if err := api.recs.Notifications.MarkRead(rctx, note.ID); err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// studentAccessMiddleware lets students read their own records only.
func (api *recordsApi) studentAccessMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			prof, err := api.srv.getContextUser(ctx)
			if err != nil {
				return err
			}
			if prof.IsStudent() && prof.UID != ctx.Param("id") {
				return errHttpNotFound
			}
			return next(ctx)
		}
	}
}

func nonNil[T any](recs []T) []T {
	if recs == nil {
		return []T{}
	}
	return recs
}
