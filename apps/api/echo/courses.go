package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/store"
	"github.com/trezcool/academia/core/user"
)

const contextObjectKey = "object"

var (
	errCourseNotFoundInCtx = errors.New("course object not found in echo.Context")

	// fields the clients may not set on update
	readOnlyCourseFields = []string{"id", "createdAt", "updatedAt"}
)

type courseApi struct {
	srv     *Server
	courses *academic.Courses
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, srv *Server) {
	api := courseApi{srv: srv, courses: srv.deps.Records.Courses}

	cg := g.Group("/courses", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create, srv.roleMiddleware(user.RoleAdmin, user.RoleFaculty))

	// detail endpoints
	dg := cg.Group("/:id", api.courseAccessMiddleware())
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, srv.roleMiddleware(user.RoleAdmin, user.RoleFaculty))
	dg.DELETE("", api.destroy, srv.roleMiddleware(user.RoleAdmin, user.RoleFaculty))
}

// Handlers

// query lists the courses the user can see: every course for admins, the taught ones for faculty
// and the enrolled ones for students. An empty catalog is seeded with the mock courses first.
func (api *courseApi) query(ctx echo.Context) error {
	prof, err := api.srv.getContextUser(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()

	if _, err := api.courses.SeedMockCourses(rctx); err != nil {
		return err
	}

	var courses []academic.Course
	switch prof.Role() {
	case user.RoleAdmin:
		ordering := new(Ordering)
		ordering.Bind(ctx)
		courses, err = api.courses.All(rctx, ordering.Raw)
	case user.RoleFaculty:
		courses, err = api.courses.ByInstructor(rctx, prof.UID)
	case user.RoleStudent:
		courses, err = api.courses.ByStudent(rctx, prof.UID)
	default:
		return errHttpForbidden
	}
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []academic.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data academic.Course
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Course")
	}
	if err := api.srv.deps.Validate.Struct(data); err != nil {
		return err
	}

	prof, err := api.srv.getContextUser(ctx)
	if err != nil {
		return err
	}
	// faculty can only add their own courses
	if prof.IsFaculty() {
		data.Instructor = prof.UID
	}
	if data.EnrolledStudents == nil {
		data.EnrolledStudents = []string{}
	}
	data.ID = ""

	id, err := api.courses.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, CreatedResponse{Message: "Course added successfully", ID: id})
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	course, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, course)
}

func (api *courseApi) update(ctx echo.Context) error {
	course, err := contextCourse(ctx)
	if err != nil {
		return err
	}

	// partial update: decode the body as is, echo's binder only fills structs
	data := make(store.Fields)
	if err := json.NewDecoder(ctx.Request().Body).Decode(&data); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body").SetInternal(err)
	}
	for _, f := range readOnlyCourseFields {
		delete(data, f)
	}
	prof, err := api.srv.getContextUser(ctx)
	if err != nil {
		return err
	}
	// the instructor can only be changed by admin
	if _, ok := data["instructor"]; ok && !prof.IsAdmin() {
		return errHttpForbidden
	}
	if len(data) == 0 {
		return ctx.JSON(http.StatusOK, course)
	}
	merged, err := applyCoursePatch(course, data)
	if err != nil {
		return err
	}
	if err := api.srv.deps.Validate.Struct(merged); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	if err := api.courses.Update(rctx, course.ID, data); err != nil {
		return errors.Wrap(err, "updating course")
	}
	course, found, err := api.courses.GetByID(rctx, course.ID)
	if err != nil {
		return errors.Wrap(err, "finding course by ID")
	}
	if !found {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, course)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	course, err := contextCourse(ctx)
	if err != nil {
		return err
	}
	if err := api.courses.Delete(ctx.Request().Context(), course.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// courseAccessMiddleware loads the course of the `id` param into the context.
// Courses the user can not see are reported as not found.
func (api *courseApi) courseAccessMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			prof, err := api.srv.getContextUser(ctx)
			if err != nil {
				return err
			}
			course, found, err := api.courses.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return errors.Wrap(err, "finding course by ID")
			}
			if !found || !canSeeCourse(prof, course) {
				return errHttpNotFound
			}
			ctx.Set(contextObjectKey, course)
			return next(ctx)
		}
	}
}

// applyCoursePatch returns course with patch applied, as it would be read back from the store.
// Nothing is written: unknown fields and values of the wrong type are reported as validation errors.
func applyCoursePatch(course academic.Course, patch store.Fields) (academic.Course, error) {
	raw, err := json.Marshal(course)
	if err != nil {
		return course, errors.Wrap(err, "encoding course")
	}
	doc := make(map[string]interface{})
	if err := json.Unmarshal(raw, &doc); err != nil {
		return course, errors.Wrap(err, "decoding course")
	}
	for k, v := range patch {
		doc[k] = v
	}
	if raw, err = json.Marshal(doc); err != nil {
		return course, core.NewValidationError(err)
	}

	var merged academic.Course
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&merged); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return course, core.NewValidationError(nil, core.FieldError{
				Field: typeErr.Field,
				Error: "expected a value of type " + typeErr.Type.String(),
			})
		}
		return course, core.NewValidationError(err)
	}
	return merged, nil
}

// contextCourse returns the course loaded by courseAccessMiddleware.
func contextCourse(ctx echo.Context) (academic.Course, error) {
	course, ok := ctx.Get(contextObjectKey).(academic.Course)
	if !ok {
		return course, errors.Wrap(errCourseNotFoundInCtx, "retrieving object from context")
	}
	return course, nil
}

func canSeeCourse(prof user.Profile, course academic.Course) bool {
	switch prof.Role() {
	case user.RoleAdmin:
		return true
	case user.RoleFaculty:
		return course.Instructor == prof.UID
	case user.RoleStudent:
		for _, uid := range course.EnrolledStudents {
			if uid == prof.UID {
				return true
			}
		}
	}
	return false
}

type CreatedResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}
