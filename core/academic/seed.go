package academic

import (
	"context"
	"encoding/json"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/academia/core/store"
)

// InitialCourses returns the two starter courses a new student is enrolled in.
func InitialCourses(studentID string) []Course {
	return []Course{
		{
			Code:             "CS101",
			Name:             "Introduction to Programming",
			Description:      "Learn the basics of programming with Python",
			Credits:          3,
			Department:       "Computer Science",
			Semester:         1,
			Instructor:       "Dr. Smith",
			Prerequisites:    []string{},
			Capacity:         30,
			EnrolledStudents: []string{studentID},
			Syllabus:         "Course syllabus...",
			Schedule:         []ScheduleSlot{{Day: "Monday", StartTime: "09:00", EndTime: "10:30", Room: "CS-101"}},
			IsActive:         true,
		},
		{
			Code:             "MATH201",
			Name:             "Calculus I",
			Description:      "Introduction to differential calculus",
			Credits:          4,
			Department:       "Mathematics",
			Semester:         1,
			Instructor:       "Dr. Johnson",
			Prerequisites:    []string{},
			Capacity:         40,
			EnrolledStudents: []string{studentID},
			Syllabus:         "Course syllabus...",
			Schedule:         []ScheduleSlot{{Day: "Tuesday", StartTime: "11:00", EndTime: "12:30", Room: "MATH-201"}},
			IsActive:         true,
		},
	}
}

// MockCourses is the transcript sample served while the catalogue is empty.
func MockCourses() []Course {
	return []Course{
		{Code: "CS101", Name: "Introduction to Computer Science", Instructor: "Dr. Alice Smith", Credits: 3, Grade: "A", Percentage: 92, Status: "Completed", IsActive: true},
		{Code: "MA202", Name: "Calculus II", Instructor: "Dr. Bob Johnson", Credits: 4, Grade: "B+", Percentage: 87, Status: "Completed", IsActive: true},
		{Code: "PH301", Name: "Modern Physics", Instructor: "Dr. Clara Zhang", Credits: 3, Grade: "A-", Percentage: 89, Status: "Ongoing", IsActive: true},
		{Code: "EN105", Name: "Academic Writing", Instructor: "Dr. Dan Brown", Credits: 2, Grade: "B", Percentage: 81, Status: "Completed", IsActive: true},
	}
}

// SeedInitialCourses creates the starter courses enrolled to studentID and returns their ids.
func (c *Courses) SeedInitialCourses(ctx context.Context, studentID string) ([]string, error) {
	ids := make([]string, 0, 2)
	for _, course := range InitialCourses(studentID) {
		id, err := c.Create(ctx, course)
		if err != nil {
			return ids, errors.Wrap(err, "seeding initial courses")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// SeedMockCourses inserts MockCourses when the collection is empty. It reports whether it did.
func (c *Courses) SeedMockCourses(ctx context.Context) (bool, error) {
	existing, err := c.Query(ctx, store.Limit(1))
	if err != nil {
		return false, errors.Wrap(err, "counting courses")
	}
	if len(existing) > 0 {
		return false, nil
	}
	for _, course := range MockCourses() {
		if _, err := c.Create(ctx, course); err != nil {
			return false, errors.Wrap(err, "seeding mock courses")
		}
	}
	return true, nil
}

// Seed is the content of a seed file.
type Seed struct {
	Departments []Department       `json:"departments" validate:"dive"`
	Programs    []Program          `json:"programs" validate:"dive"`
	Courses     []Course           `json:"courses" validate:"dive"`
	Calendars   []AcademicCalendar `json:"calendars" validate:"dive"`
}

// LoadSeed reads a YAML seed file. Keys follow the JSON names of the records; ids are optional.
func LoadSeed(r io.Reader, validate *validator.Validate) (Seed, error) {
	var raw map[string]interface{}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && err != io.EOF {
		return Seed{}, errors.Wrap(err, "parsing seed file")
	}

	// go through JSON so the records keep a single set of field names
	var seed Seed
	b, err := json.Marshal(raw)
	if err != nil {
		return Seed{}, errors.Wrap(err, "reading seed file")
	}
	if err := json.Unmarshal(b, &seed); err != nil {
		return Seed{}, errors.Wrap(err, "reading seed file")
	}
	if err := validate.Struct(seed); err != nil {
		return Seed{}, err
	}
	return seed, nil
}

// Apply creates (or, for records with an id, replaces) every seeded record and returns how many were written.
func (s Seed) Apply(ctx context.Context, recs *Records) (int, error) {
	var n int
	for _, d := range s.Departments {
		if _, err := recs.Departments.Create(ctx, d, d.ID); err != nil {
			return n, errors.Wrap(err, "seeding departments")
		}
		n++
	}
	for _, p := range s.Programs {
		if _, err := recs.Programs.Create(ctx, p, p.ID); err != nil {
			return n, errors.Wrap(err, "seeding programs")
		}
		n++
	}
	for _, c := range s.Courses {
		if _, err := recs.Courses.Create(ctx, c, c.ID); err != nil {
			return n, errors.Wrap(err, "seeding courses")
		}
		n++
	}
	for _, cal := range s.Calendars {
		if _, err := recs.Calendars.Create(ctx, cal, cal.ID); err != nil {
			return n, errors.Wrap(err, "seeding calendars")
		}
		n++
	}
	return n, nil
}
