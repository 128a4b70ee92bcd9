package echoapi_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/user"
)

func Test_recordsApi_courseRecords(t *testing.T) {
	srv, env := newTestServer(t)
	ctx := context.Background()
	fac := env.CreateUser(t, "fac@test.test", "Fac", user.RoleFaculty, true)
	otherFac := env.CreateUser(t, "other@test.test", "Other", user.RoleFaculty, true)
	student := env.CreateUser(t, "student@test.test", "Student", user.RoleStudent, true)

	course := env.CreateCourse(t, academic.Course{Code: "GO100", Name: "Go", Instructor: fac.UID, EnrolledStudents: []string{student.UID}})

	due := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	aID, err := env.Records.Assignments.Create(ctx, academic.Assignment{CourseID: course.ID, Title: "Lab 1", DueDate: due, Status: "published"})
	require.NoError(t, err)
	_, err = env.Records.Assignments.Create(ctx, academic.Assignment{CourseID: "elsewhere", Title: "Lab X", DueDate: due})
	require.NoError(t, err)
	_, err = env.Records.Submissions.Create(ctx, academic.Submission{AssignmentID: aID, StudentID: student.UID, Status: "submitted"})
	require.NoError(t, err)
	_, err = env.Records.Grades.Create(ctx, academic.Grade{CourseID: course.ID, StudentID: student.UID, TotalScore: 91, LetterGrade: "A"})
	require.NoError(t, err)
	_, err = env.Records.Attendance.Create(ctx, academic.Attendance{
		CourseID: course.ID, Date: due, TakenBy: fac.UID,
		Records: []academic.AttendanceRecord{{StudentID: student.UID, Status: "present"}},
	})
	require.NoError(t, err)

	assignments, err := env.Records.Assignments.ByCourse(ctx, course.ID)
	require.NoError(t, err)
	grades, err := env.Records.Grades.ByCourse(ctx, course.ID)
	require.NoError(t, err)
	sheets, err := env.Records.Attendance.ByCourse(ctx, course.ID)
	require.NoError(t, err)
	subs, err := env.Records.Submissions.ByAssignment(ctx, aID)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	require.Len(t, grades, 1)
	require.Len(t, sheets, 1)
	require.Len(t, subs, 1)

	facToken := getToken(t, srv, fac)
	studentToken := getToken(t, srv, student)
	cpath := "/v1/courses/" + course.ID

	runHTTPTests(t, srv, []httpTest{
		{name: "Assignments (faculty)", path: cpath + "/assignments", token: facToken, wantCode: http.StatusOK, wantData: marshalObj(t, assignments)},
		{name: "Assignments (student)", path: cpath + "/assignments", token: studentToken, wantCode: http.StatusOK, wantData: marshalObj(t, assignments)},
		{name: "Assignments (other faculty)", path: cpath + "/assignments", token: getToken(t, srv, otherFac), wantCode: http.StatusNotFound},
		{name: "Grades", path: cpath + "/grades", token: facToken, wantCode: http.StatusOK, wantData: marshalObj(t, grades)},
		{name: "Grades (student)", path: cpath + "/grades", token: studentToken, wantCode: http.StatusForbidden},
		{name: "Attendance", path: cpath + "/attendance", token: facToken, wantCode: http.StatusOK, wantData: marshalObj(t, sheets)},
		{name: "Submissions", path: "/v1/assignments/" + aID + "/submissions", token: facToken, wantCode: http.StatusOK, wantData: marshalObj(t, subs)},
		{name: "Submissions (other faculty)", path: "/v1/assignments/" + aID + "/submissions", token: getToken(t, srv, otherFac), wantCode: http.StatusNotFound},
		{name: "Submissions (unknown)", path: "/v1/assignments/nope/submissions", token: facToken, wantCode: http.StatusNotFound},
		{name: "Course detail still served", path: cpath, token: facToken, wantCode: http.StatusOK, wantData: marshalObj(t, course)},
	})
}

func Test_recordsApi_studentRecords(t *testing.T) {
	srv, env := newTestServer(t)
	ctx := context.Background()
	fac := env.CreateUser(t, "fac@test.test", "Fac", user.RoleFaculty, true)
	student := env.CreateUser(t, "student@test.test", "Student", user.RoleStudent, true)
	other := env.CreateUser(t, "other@test.test", "Other", user.RoleStudent, true)

	_, err := env.Records.Grades.Create(ctx, academic.Grade{CourseID: "c1", StudentID: student.UID, LetterGrade: "B"})
	require.NoError(t, err)
	grades, err := env.Records.Grades.ByStudent(ctx, student.UID)
	require.NoError(t, err)
	empty := marshalObj(t, []interface{}{})

	runHTTPTests(t, srv, []httpTest{
		{name: "Own grades", path: "/v1/students/" + student.UID + "/grades", token: getToken(t, srv, student), wantCode: http.StatusOK, wantData: marshalObj(t, grades)},
		{name: "Own submissions", path: "/v1/students/" + student.UID + "/submissions", token: getToken(t, srv, student), wantCode: http.StatusOK, wantData: empty},
		{name: "Others grades", path: "/v1/students/" + student.UID + "/grades", token: getToken(t, srv, other), wantCode: http.StatusNotFound},
		{name: "Faculty", path: "/v1/students/" + student.UID + "/grades", token: getToken(t, srv, fac), wantCode: http.StatusOK, wantData: marshalObj(t, grades)},
	})
}

func Test_recordsApi_catalogue(t *testing.T) {
	srv, env := newTestServer(t)
	ctx := context.Background()
	student := env.CreateUser(t, "student@test.test", "Student", user.RoleStudent, true)
	token := getToken(t, srv, student)

	csID, err := env.Records.Departments.Create(ctx, academic.Department{Name: "Computer Science", Code: "CS"})
	require.NoError(t, err)
	_, err = env.Records.Departments.Create(ctx, academic.Department{Name: "Arts", Code: "AR"})
	require.NoError(t, err)
	_, err = env.Records.Programs.Create(ctx, academic.Program{Name: "BSc CS", Code: "BCS", Department: csID, Duration: 4})
	require.NoError(t, err)
	_, err = env.Records.Calendars.Create(ctx, academic.AcademicCalendar{AcademicYear: "2024-2025"})
	require.NoError(t, err)

	deps, err := env.Records.Departments.All(ctx)
	require.NoError(t, err)
	require.Len(t, deps, 2)
	assert.Equal(t, "Arts", deps[0].Name)
	progs, err := env.Records.Programs.ByDepartment(ctx, csID)
	require.NoError(t, err)
	cal, found, err := env.Records.Calendars.ByYear(ctx, "2024-2025")
	require.NoError(t, err)
	require.True(t, found)

	runHTTPTests(t, srv, []httpTest{
		{name: "Auth required", path: "/v1/departments", wantCode: http.StatusUnauthorized},
		{name: "Departments", path: "/v1/departments", token: token, wantCode: http.StatusOK, wantData: marshalObj(t, deps)},
		{name: "Programs", path: "/v1/departments/" + csID + "/programs", token: token, wantCode: http.StatusOK, wantData: marshalObj(t, progs)},
		{name: "Calendar", path: "/v1/calendar/2024-2025", token: token, wantCode: http.StatusOK, wantData: marshalObj(t, cal)},
		{name: "Calendar (unknown year)", path: "/v1/calendar/1999-2000", token: token, wantCode: http.StatusNotFound},
	})
}

func Test_recordsApi_notifications(t *testing.T) {
	srv, env := newTestServer(t)
	ctx := context.Background()
	student := env.CreateUser(t, "student@test.test", "Student", user.RoleStudent, true)
	other := env.CreateUser(t, "other@test.test", "Other", user.RoleStudent, true)
	token := getToken(t, srv, student)

	readID, err := env.Records.Notifications.Create(ctx, academic.Notification{RecipientID: student.UID, Title: "Old", Type: "system", Read: true})
	require.NoError(t, err)
	unreadID, err := env.Records.Notifications.Create(ctx, academic.Notification{RecipientID: student.UID, Title: "New", Type: "grade"})
	require.NoError(t, err)
	otherID, err := env.Records.Notifications.Create(ctx, academic.Notification{RecipientID: other.UID, Title: "Theirs", Type: "grade"})
	require.NoError(t, err)

	all, err := env.Records.Notifications.ForRecipient(ctx, student.UID, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	unread, err := env.Records.Notifications.ForRecipient(ctx, student.UID, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, unreadID, unread[0].ID)

	runHTTPTests(t, srv, []httpTest{
		{name: "All", path: "/v1/notifications", token: token, wantCode: http.StatusOK, wantData: marshalObj(t, all)},
		{name: "Unread", path: "/v1/notifications?unread=true", token: token, wantCode: http.StatusOK, wantData: marshalObj(t, unread)},
		{name: "Mark others read", method: http.MethodPut, path: "/v1/notifications/" + otherID + "/read", token: token, wantCode: http.StatusNotFound},
		{name: "Mark unknown read", method: http.MethodPut, path: "/v1/notifications/nope/read", token: token, wantCode: http.StatusNotFound},
		{name: "Mark read", method: http.MethodPut, path: "/v1/notifications/" + unreadID + "/read", token: token, wantCode: http.StatusNoContent},
		{name: "Mark read again", method: http.MethodPut, path: "/v1/notifications/" + readID + "/read", token: token, wantCode: http.StatusNoContent},
		{name: "None unread", path: "/v1/notifications?unread=true", token: token, wantCode: http.StatusOK, wantData: marshalObj(t, []interface{}{})},
	})
}
