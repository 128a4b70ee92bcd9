package academic_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/academic"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
)

func setup(t *testing.T) *academic.Records {
	t.Helper()
	return academic.NewRecords(inmemdb.NewDB())
}

func TestCourses_NamedQueries(t *testing.T) {
	ctx := context.Background()
	recs := setup(t)
	base := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

	seed := []academic.Course{
		{Code: "CS101", Name: "Programming", Instructor: "f1", EnrolledStudents: []string{"u1"}, CreatedAt: base},
		{Code: "CS201", Name: "Data Structures", Instructor: "f1", EnrolledStudents: []string{"u2"}, CreatedAt: base.Add(time.Hour)},
		{Code: "MA101", Name: "Algebra", Instructor: "f2", EnrolledStudents: []string{"u1", "u2"}, CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, c := range seed {
		_, err := recs.Courses.Create(ctx, c)
		require.NoError(t, err)
	}

	codes := func(cs []academic.Course) []string {
		out := make([]string, 0, len(cs))
		for _, c := range cs {
			out = append(out, c.Code)
		}
		return out
	}

	tests := []struct {
		name  string
		query func() ([]academic.Course, error)
		want  []string
	}{
		{name: "by instructor", query: func() ([]academic.Course, error) { return recs.Courses.ByInstructor(ctx, "f1") }, want: []string{"CS201", "CS101"}},
		{name: "by student", query: func() ([]academic.Course, error) { return recs.Courses.ByStudent(ctx, "u1") }, want: []string{"MA101", "CS101"}},
		{name: "all", query: func() ([]academic.Course, error) { return recs.Courses.All(ctx) }, want: []string{"MA101", "CS201", "CS101"}},
		{name: "all by code", query: func() ([]academic.Course, error) { return recs.Courses.All(ctx, "code") }, want: []string{"CS101", "CS201", "MA101"}},
		{name: "unknown student", query: func() ([]academic.Course, error) { return recs.Courses.ByStudent(ctx, "u9") }, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.query()
			require.NoError(t, err)
			assert.Equal(t, tt.want, codes(got))
		})
	}
}

func TestNotifications(t *testing.T) {
	ctx := context.Background()
	recs := setup(t)

	first, err := recs.Notifications.Create(ctx, academic.Notification{RecipientID: "u1", Title: "Welcome"})
	require.NoError(t, err)
	_, err = recs.Notifications.Create(ctx, academic.Notification{RecipientID: "u1", Title: "Grade posted", Type: "grade"})
	require.NoError(t, err)
	_, err = recs.Notifications.Create(ctx, academic.Notification{RecipientID: "u2", Title: "Other"})
	require.NoError(t, err)

	all, err := recs.Notifications.ForRecipient(ctx, "u1", false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Grade posted", all[0].Title)

	require.NoError(t, recs.Notifications.MarkRead(ctx, first))

	unread, err := recs.Notifications.ForRecipient(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "Grade posted", unread[0].Title)
	assert.False(t, unread[0].Read)
}

func TestAssignmentsAndGrades(t *testing.T) {
	ctx := context.Background()
	recs := setup(t)
	due := time.Date(2024, 10, 1, 23, 59, 0, 0, time.UTC)

	for i, title := range []string{"Essay", "Quiz", "Project"} {
		_, err := recs.Assignments.Create(ctx, academic.Assignment{CourseID: "c1", Title: title, DueDate: due.AddDate(0, 0, 2-i)})
		require.NoError(t, err)
	}
	as, err := recs.Assignments.ByCourse(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, as, 3)
	assert.Equal(t, "Project", as[0].Title)
	assert.Equal(t, "Essay", as[2].Title)

	id, err := recs.Grades.Create(ctx, academic.Grade{CourseID: "c1", StudentID: "u1", LetterGrade: "A"})
	require.NoError(t, err)
	g, found, err := recs.Grades.GetByID(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, g.LastUpdated.IsZero())

	gs, err := recs.Grades.ByStudent(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, gs, 1)
}

func TestCourses_Seeding(t *testing.T) {
	ctx := context.Background()
	recs := setup(t)

	seeded, err := recs.Courses.SeedMockCourses(ctx)
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = recs.Courses.SeedMockCourses(ctx)
	require.NoError(t, err)
	assert.False(t, seeded, "courses are only seeded once")

	all, err := recs.Courses.All(ctx, "code")
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "CS101", all[0].Code)
	assert.Equal(t, "Dr. Alice Smith", all[0].Instructor)

	ids, err := recs.Courses.SeedInitialCourses(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	mine, err := recs.Courses.ByStudent(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "MATH201", mine[0].Code)
}

const seedFile = `
departments:
  - id: cs
    name: Computer Science
    code: CS
programs:
  - name: BSc Computer Science
    code: BSCS
    department: cs
    duration: 4
courses:
  - code: CS301
    name: Operating Systems
    credits: 4
    department: Computer Science
    schedule:
      - day: Wednesday
        startTime: "14:00"
        endTime: "15:30"
        room: CS-2
calendars:
  - academicYear: 2024-2025
    events:
      - title: Classes start
        type: class_start
        startDate: "2024-09-02T08:00:00Z"
        endDate: "2024-09-02T08:00:00Z"
`

func TestLoadSeed(t *testing.T) {
	ctx := context.Background()
	recs := setup(t)
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	seed, err := academic.LoadSeed(strings.NewReader(seedFile), validate)
	require.NoError(t, err)
	n, err := seed.Apply(ctx, recs)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	dept, found, err := recs.Departments.GetByID(ctx, "cs")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Computer Science", dept.Name)

	progs, err := recs.Programs.ByDepartment(ctx, "cs")
	require.NoError(t, err)
	require.Len(t, progs, 1)
	assert.Equal(t, "BSCS", progs[0].Code)

	cal, found, err := recs.Calendars.ByYear(ctx, "2024-2025")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, cal.Events, 1)
	assert.Equal(t, "class_start", cal.Events[0].Type)

	_, err = academic.LoadSeed(strings.NewReader("courses:\n  - code: X\n"), validate)
	assert.Error(t, err, "a course without a name is rejected")
}
