// Package academic holds the academic records (courses, assignments, grades...) and their accessors.
package academic

import "time"

type (
	ScheduleSlot struct {
		Day       string `json:"day"`
		StartTime string `json:"startTime"` // HH:MM
		EndTime   string `json:"endTime"`   // HH:MM
		Room      string `json:"room"`
	}

	Course struct {
		ID               string         `json:"id"`
		Code             string         `json:"code" validate:"required"`
		Name             string         `json:"name" validate:"required"`
		Description      string         `json:"description"`
		Credits          int            `json:"credits" validate:"gte=0"`
		Department       string         `json:"department"`
		Semester         int            `json:"semester" validate:"gte=0"`
		Instructor       string         `json:"instructor"` // faculty uid
		Prerequisites    []string       `json:"prerequisites"`
		Capacity         int            `json:"capacity" validate:"gte=0"`
		EnrolledStudents []string       `json:"enrolledStudents"`
		Syllabus         string         `json:"syllabus"`
		Schedule         []ScheduleSlot `json:"schedule"`
		IsActive         bool           `json:"isActive"`

		// transcript fields of the courses prototype
		Grade      string  `json:"grade,omitempty"`
		Percentage float64 `json:"percentage,omitempty"`
		Status     string  `json:"status,omitempty"`

		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}

	Attachment struct {
		Name string `json:"name"`
		URL  string `json:"url"`
		Type string `json:"type"`
	}

	Assignment struct {
		ID             string       `json:"id"`
		CourseID       string       `json:"courseId" validate:"required"`
		Title          string       `json:"title" validate:"required"`
		Description    string       `json:"description"`
		DueDate        time.Time    `json:"dueDate"`
		TotalMarks     float64      `json:"totalMarks"`
		Weight         float64      `json:"weight"` // percentage of the final grade
		Attachments    []Attachment `json:"attachments"`
		SubmissionType string       `json:"submissionType" validate:"omitempty,oneof=file text both"`
		Status         string       `json:"status" validate:"omitempty,oneof=draft published closed"`
		CreatedAt      time.Time    `json:"createdAt"`
		UpdatedAt      time.Time    `json:"updatedAt"`
	}

	Submission struct {
		ID           string       `json:"id"`
		AssignmentID string       `json:"assignmentId" validate:"required"`
		StudentID    string       `json:"studentId" validate:"required"`
		SubmittedAt  time.Time    `json:"submittedAt"`
		Content      string       `json:"content,omitempty"`
		Attachments  []Attachment `json:"attachments"`
		Grade        *float64     `json:"grade,omitempty"`
		Feedback     string       `json:"feedback,omitempty"`
		Status       string       `json:"status" validate:"omitempty,oneof=submitted late graded"`
		GradedBy     string       `json:"gradedBy,omitempty"`
		GradedAt     *time.Time   `json:"gradedAt,omitempty"`
	}

	AssignmentScore struct {
		AssignmentID string  `json:"assignmentId"`
		Score        float64 `json:"score"`
		Weight       float64 `json:"weight"`
	}

	Grade struct {
		ID           string            `json:"id"`
		CourseID     string            `json:"courseId" validate:"required"`
		StudentID    string            `json:"studentId" validate:"required"`
		Assignments  []AssignmentScore `json:"assignments"`
		MidtermScore *float64          `json:"midtermScore,omitempty"`
		FinalScore   *float64          `json:"finalScore,omitempty"`
		TotalScore   float64           `json:"totalScore"`
		LetterGrade  string            `json:"letterGrade"`
		GradePoints  float64           `json:"gradePoints"`
		Semester     int               `json:"semester"`
		AcademicYear string            `json:"academicYear"`
		Status       string            `json:"status" validate:"omitempty,oneof=in_progress finalized"`
		LastUpdated  time.Time         `json:"lastUpdated"`
	}

	AttendanceRecord struct {
		StudentID string `json:"studentId"`
		Status    string `json:"status" validate:"oneof=present absent late excused"`
		Remarks   string `json:"remarks,omitempty"`
	}

	Attendance struct {
		ID        string             `json:"id"`
		CourseID  string             `json:"courseId" validate:"required"`
		Date      time.Time          `json:"date"`
		Records   []AttendanceRecord `json:"records" validate:"dive"`
		TakenBy   string             `json:"takenBy"` // faculty uid
		CreatedAt time.Time          `json:"createdAt"`
		UpdatedAt time.Time          `json:"updatedAt"`
	}

	Department struct {
		ID               string    `json:"id"`
		Name             string    `json:"name" validate:"required"`
		Code             string    `json:"code" validate:"required"`
		HeadOfDepartment string    `json:"headOfDepartment"`
		Faculty          []string  `json:"faculty"`
		Programs         []string  `json:"programs"`
		Courses          []string  `json:"courses"`
		Description      string    `json:"description"`
		CreatedAt        time.Time `json:"createdAt"`
		UpdatedAt        time.Time `json:"updatedAt"`
	}

	ProgramSemester struct {
		Semester int      `json:"semester"`
		Required []string `json:"required"`
		Elective []string `json:"elective"`
	}

	Program struct {
		ID           string            `json:"id"`
		Name         string            `json:"name" validate:"required"`
		Code         string            `json:"code" validate:"required"`
		Department   string            `json:"department"` // department id
		Coordinator  string            `json:"coordinator"`
		TotalCredits int               `json:"totalCredits"`
		Duration     int               `json:"duration"` // years
		Courses      []ProgramSemester `json:"courses"`
		Description  string            `json:"description"`
		CreatedAt    time.Time         `json:"createdAt"`
		UpdatedAt    time.Time         `json:"updatedAt"`
	}

	Notification struct {
		ID          string    `json:"id"`
		RecipientID string    `json:"recipientId" validate:"required"`
		Title       string    `json:"title" validate:"required"`
		Message     string    `json:"message"`
		Type        string    `json:"type" validate:"omitempty,oneof=assignment grade announcement system"`
		RelatedID   string    `json:"relatedId,omitempty"`
		Read        bool      `json:"read"`
		CreatedAt   time.Time `json:"createdAt"`
	}

	CalendarEvent struct {
		Title       string    `json:"title"`
		Type        string    `json:"type" validate:"oneof=class_start class_end exam holiday other"`
		StartDate   time.Time `json:"startDate"`
		EndDate     time.Time `json:"endDate"`
		Description string    `json:"description,omitempty"`
	}

	AcademicCalendar struct {
		ID           string          `json:"id"`
		AcademicYear string          `json:"academicYear" validate:"required"`
		Events       []CalendarEvent `json:"events" validate:"dive"`
		CreatedAt    time.Time       `json:"createdAt"`
		UpdatedAt    time.Time       `json:"updatedAt"`
	}
)
