package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/user"
)

func decodeCourses(t *testing.T, body []byte) []academic.Course {
	var courses []academic.Course
	require.NoError(t, json.Unmarshal(body, &courses))
	return courses
}

func codes(courses []academic.Course) []string {
	out := make([]string, 0, len(courses))
	for _, c := range courses {
		out = append(out, c.Code)
	}
	return out
}

func Test_courseApi_query(t *testing.T) {
	srv, env := newTestServer(t)
	admin := env.CreateUser(t, "admin@test.test", "Admin", user.RoleAdmin, true)
	fac := env.CreateUser(t, "fac@test.test", "Fac", user.RoleFaculty, true)
	student := env.CreateUser(t, "student@test.test", "Student", user.RoleStudent, true)

	get := func(token, path string) []academic.Course {
		req, rec := newAuthRequest(http.MethodGet, path, token)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decodeCourses(t, rec.Body.Bytes())
	}

	runHTTPTests(t, srv, []httpTest{
		{name: "Auth required", path: "/v1/courses", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
	})

	// an empty catalogue is seeded with the mock courses
	adminToken := getToken(t, srv, admin)
	assert.Equal(t, []string{"CS101", "EN105", "MA202", "PH301"}, codes(get(adminToken, "/v1/courses?ordering=code")))
	assert.Len(t, get(adminToken, "/v1/courses"), 4)

	env.CreateCourse(t, academic.Course{Code: "GO100", Name: "Go", Instructor: fac.UID, EnrolledStudents: []string{student.UID}})
	env.CreateCourse(t, academic.Course{Code: "GO200", Name: "More Go", Instructor: fac.UID})
	env.CreateCourse(t, academic.Course{Code: "DB100", Name: "Databases", Instructor: "someone", EnrolledStudents: []string{student.UID}})

	assert.Len(t, get(adminToken, "/v1/courses"), 7)
	assert.Equal(t, []string{"GO200", "GO100"}, codes(get(getToken(t, srv, fac), "/v1/courses")))
	assert.Equal(t, []string{"DB100", "GO100"}, codes(get(getToken(t, srv, student), "/v1/courses")))
}

func Test_courseApi_create(t *testing.T) {
	srv, env := newTestServer(t)
	admin := env.CreateUser(t, "admin@test.test", "Admin", user.RoleAdmin, true)
	fac := env.CreateUser(t, "fac@test.test", "Fac", user.RoleFaculty, true)
	student := env.CreateUser(t, "student@test.test", "Student", user.RoleStudent, true)

	body := marshalObj(t, map[string]interface{}{"code": "GO100", "name": "Go", "credits": 3, "instructor": "someone"})

	runHTTPTests(t, srv, []httpTest{
		{
			name: "Student forbidden", method: http.MethodPost, path: "/v1/courses", body: body,
			token: getToken(t, srv, student), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Invalid", method: http.MethodPost, path: "/v1/courses",
			body:  marshalObj(t, map[string]interface{}{"credits": -1}),
			token: getToken(t, srv, admin), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{
				"code": "this field is required", "name": "this field is required",
				"credits": "credits must be 0 or greater",
			}),
		},
	})

	create := func(token string) string {
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses", token, body)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var resp CreatedResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Course added successfully", resp.Message)
		require.NotEmpty(t, resp.ID)
		return resp.ID
	}

	ctx := context.Background()
	adminCourse, found, err := env.Records.Courses.GetByID(ctx, create(getToken(t, srv, admin)))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "someone", adminCourse.Instructor)
	assert.False(t, adminCourse.CreatedAt.IsZero())

	// faculty courses are always their own
	facCourse, found, err := env.Records.Courses.GetByID(ctx, create(getToken(t, srv, fac)))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, fac.UID, facCourse.Instructor)
}

func Test_courseApi_detail(t *testing.T) {
	srv, env := newTestServer(t)
	admin := env.CreateUser(t, "admin@test.test", "Admin", user.RoleAdmin, true)
	fac := env.CreateUser(t, "fac@test.test", "Fac", user.RoleFaculty, true)
	otherFac := env.CreateUser(t, "other@test.test", "Other", user.RoleFaculty, true)
	student := env.CreateUser(t, "student@test.test", "Student", user.RoleStudent, true)
	outsider := env.CreateUser(t, "outsider@test.test", "Outsider", user.RoleStudent, true)

	course := env.CreateCourse(t, academic.Course{Code: "GO100", Name: "Go", Instructor: fac.UID, EnrolledStudents: []string{student.UID}})
	path := "/v1/courses/" + course.ID
	notFound := marshalObj(t, httpErr{Error: "not found"})

	runHTTPTests(t, srv, []httpTest{
		{name: "Unknown", path: "/v1/courses/nope", token: getToken(t, srv, admin), wantCode: http.StatusNotFound, wantData: notFound},
		{name: "Admin", path: path, token: getToken(t, srv, admin), wantCode: http.StatusOK, wantData: marshalObj(t, course)},
		{name: "Instructor", path: path, token: getToken(t, srv, fac), wantCode: http.StatusOK, wantData: marshalObj(t, course)},
		{name: "Enrolled", path: path, token: getToken(t, srv, student), wantCode: http.StatusOK, wantData: marshalObj(t, course)},
		{name: "Other faculty", path: path, token: getToken(t, srv, otherFac), wantCode: http.StatusNotFound, wantData: notFound},
		{name: "Not enrolled", path: path, token: getToken(t, srv, outsider), wantCode: http.StatusNotFound, wantData: notFound},
		{
			name: "Student cannot update", method: http.MethodPut, path: path, token: getToken(t, srv, student),
			body: marshalObj(t, map[string]interface{}{"name": "Hacked"}), wantCode: http.StatusForbidden,
		},
		{
			name: "Faculty cannot reassign", method: http.MethodPut, path: path, token: getToken(t, srv, fac),
			body: marshalObj(t, map[string]interface{}{"instructor": otherFac.UID}), wantCode: http.StatusForbidden,
		},
		{
			name: "Invalid field", method: http.MethodPut, path: path, token: getToken(t, srv, fac),
			body: marshalObj(t, map[string]interface{}{"schedule.room": "B2"}), wantCode: http.StatusBadRequest,
		},
	})

	// update
	req, rec := newAuthRequest(http.MethodPut, path, getToken(t, srv, fac), marshalObj(t, map[string]interface{}{"name": "Go!", "id": "other"}))
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated academic.Course
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, course.ID, updated.ID)
	assert.Equal(t, "Go!", updated.Name)
	assert.True(t, updated.UpdatedAt.After(course.UpdatedAt))

	// delete
	runHTTPTests(t, srv, []httpTest{
		{name: "Student cannot delete", method: http.MethodDelete, path: path, token: getToken(t, srv, student), wantCode: http.StatusForbidden},
		{name: "Delete", method: http.MethodDelete, path: path, token: getToken(t, srv, admin), wantCode: http.StatusNoContent},
		{name: "Deleted", path: path, token: getToken(t, srv, admin), wantCode: http.StatusNotFound, wantData: notFound},
	})
}

func Test_courseApi_updateInvalidValues(t *testing.T) {
	srv, env := newTestServer(t)
	admin := env.CreateUser(t, "admin@test.test", "Admin", user.RoleAdmin, true)
	fac := env.CreateUser(t, "fac@test.test", "Fac", user.RoleFaculty, true)

	course := env.CreateCourse(t, academic.Course{Code: "GO100", Name: "Go", Credits: 3, Instructor: fac.UID})
	path := "/v1/courses/" + course.ID
	facToken := getToken(t, srv, fac)

	runHTTPTests(t, srv, []httpTest{
		{
			name: "Wrong type", method: http.MethodPut, path: path, token: facToken,
			body:     marshalObj(t, map[string]interface{}{"credits": "three"}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"credits": "expected a value of type int"}),
		},
		{
			name: "Wrong nested type", method: http.MethodPut, path: path, token: facToken,
			body:     marshalObj(t, map[string]interface{}{"schedule": "monday"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "Negative credits", method: http.MethodPut, path: path, token: facToken,
			body:     marshalObj(t, map[string]interface{}{"credits": -1}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "Blank name", method: http.MethodPut, path: path, token: facToken,
			body:     marshalObj(t, map[string]interface{}{"name": ""}),
			wantCode: http.StatusBadRequest,
		},
		{name: "Course unchanged", path: path, token: facToken, wantCode: http.StatusOK, wantData: marshalObj(t, course)},
		{name: "Catalog still readable", path: "/v1/courses", token: getToken(t, srv, admin), wantCode: http.StatusOK},
		{name: "Still deletable", method: http.MethodDelete, path: path, token: facToken, wantCode: http.StatusNoContent},
	})
}
