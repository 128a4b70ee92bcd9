package academic

import (
	"context"
	"time"

	"github.com/trezcool/academia/core/store"
)

// collection names
const (
	CoursesCollection       = "courses"
	AssignmentsCollection   = "assignments"
	SubmissionsCollection   = "submissions"
	GradesCollection        = "grades"
	AttendanceCollection    = "attendance"
	DepartmentsCollection   = "departments"
	ProgramsCollection      = "programs"
	NotificationsCollection = "notifications"
	CalendarsCollection     = "academicCalendar"
)

type (
	Courses struct {
		*store.Collection[Course]
	}

	Assignments struct {
		*store.Collection[Assignment]
	}

	Submissions struct {
		*store.Collection[Submission]
	}

	Grades struct {
		*store.Collection[Grade]
	}

	AttendanceSheets struct {
		*store.Collection[Attendance]
	}

	Departments struct {
		*store.Collection[Department]
	}

	Programs struct {
		*store.Collection[Program]
	}

	Notifications struct {
		*store.Collection[Notification]
	}

	Calendars struct {
		*store.Collection[AcademicCalendar]
	}

	// Records groups every academic accessor over one backend.
	Records struct {
		Courses       *Courses
		Assignments   *Assignments
		Submissions   *Submissions
		Grades        *Grades
		Attendance    *AttendanceSheets
		Departments   *Departments
		Programs      *Programs
		Notifications *Notifications
		Calendars     *Calendars
	}
)

func NewRecords(backend store.Backend, opts ...store.Option) *Records {
	return &Records{
		Courses:       &Courses{store.NewCollection[Course](backend, CoursesCollection, opts...)},
		Assignments:   &Assignments{store.NewCollection[Assignment](backend, AssignmentsCollection, opts...)},
		Submissions:   &Submissions{store.NewCollection[Submission](backend, SubmissionsCollection, opts...)},
		Grades:        &Grades{store.NewCollection[Grade](backend, GradesCollection, opts...)},
		Attendance:    &AttendanceSheets{store.NewCollection[Attendance](backend, AttendanceCollection, opts...)},
		Departments:   &Departments{store.NewCollection[Department](backend, DepartmentsCollection, opts...)},
		Programs:      &Programs{store.NewCollection[Program](backend, ProgramsCollection, opts...)},
		Notifications: &Notifications{store.NewCollection[Notification](backend, NotificationsCollection, opts...)},
		Calendars:     &Calendars{store.NewCollection[AcademicCalendar](backend, CalendarsCollection, opts...)},
	}
}

// ByInstructor returns the courses taught by the faculty uid, newest first.
func (c *Courses) ByInstructor(ctx context.Context, uid string) ([]Course, error) {
	return c.Query(ctx, store.Where("instructor", uid), store.OrderBy("createdAt", store.Desc))
}

// ByStudent returns the courses the student uid is enrolled in, newest first.
func (c *Courses) ByStudent(ctx context.Context, uid string) ([]Course, error) {
	return c.Query(ctx, store.ArrayContains("enrolledStudents", uid), store.OrderBy("createdAt", store.Desc))
}

// All returns every course, newest first unless orderings (e.g. "code,-credits") say otherwise.
func (c *Courses) All(ctx context.Context, orderings ...string) ([]Course, error) {
	filters := []store.Filter{store.OrderBy("createdAt", store.Desc)}
	if len(orderings) > 0 && orderings[0] != "" {
		filters = []store.Filter{store.OrderByString(orderings[0])}
	}
	return c.Query(ctx, filters...)
}

func (a *Assignments) ByCourse(ctx context.Context, courseID string) ([]Assignment, error) {
	return a.Query(ctx, store.Where("courseId", courseID), store.OrderBy("dueDate", store.Asc))
}

func (s *Submissions) ByAssignment(ctx context.Context, assignmentID string) ([]Submission, error) {
	return s.Query(ctx, store.Where("assignmentId", assignmentID), store.OrderBy("submittedAt", store.Desc))
}

func (s *Submissions) ByStudent(ctx context.Context, studentID string) ([]Submission, error) {
	return s.Query(ctx, store.Where("studentId", studentID), store.OrderBy("submittedAt", store.Desc))
}

// Create stamps lastUpdated when it is not set.
func (g *Grades) Create(ctx context.Context, grade Grade, id ...string) (string, error) {
	if grade.LastUpdated.IsZero() {
		grade.LastUpdated = time.Now().UTC()
	}
	return g.Collection.Create(ctx, grade, id...)
}

func (g *Grades) ByStudent(ctx context.Context, studentID string) ([]Grade, error) {
	return g.Query(ctx, store.Where("studentId", studentID), store.OrderBy("lastUpdated", store.Desc))
}

func (g *Grades) ByCourse(ctx context.Context, courseID string) ([]Grade, error) {
	return g.Query(ctx, store.Where("courseId", courseID), store.OrderBy("lastUpdated", store.Desc))
}

func (a *AttendanceSheets) ByCourse(ctx context.Context, courseID string) ([]Attendance, error) {
	return a.Query(ctx, store.Where("courseId", courseID), store.OrderBy("date", store.Desc))
}

func (d *Departments) All(ctx context.Context) ([]Department, error) {
	return d.Query(ctx, store.OrderBy("name", store.Asc))
}

func (p *Programs) ByDepartment(ctx context.Context, departmentID string) ([]Program, error) {
	return p.Query(ctx, store.Where("department", departmentID), store.OrderBy("name", store.Asc))
}

// ForRecipient returns the notifications of uid, newest first.
func (n *Notifications) ForRecipient(ctx context.Context, uid string, unreadOnly bool) ([]Notification, error) {
	filters := []store.Filter{store.Where("recipientId", uid), store.OrderBy("createdAt", store.Desc)}
	if unreadOnly {
		filters = append(filters, store.Where("read", false))
	}
	return n.Query(ctx, filters...)
}

func (n *Notifications) MarkRead(ctx context.Context, id string) error {
	return n.Update(ctx, id, store.Fields{"read": true})
}

// ByYear returns the calendar of an academic year, e.g. "2024-2025".
func (c *Calendars) ByYear(ctx context.Context, academicYear string) (AcademicCalendar, bool, error) {
	cals, err := c.Query(ctx, store.Where("academicYear", academicYear), store.Limit(1))
	if err != nil || len(cals) == 0 {
		return AcademicCalendar{}, false, err
	}
	return cals[0], true, nil
}
