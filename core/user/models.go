package user

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleFaculty Role = "faculty"
	RoleStudent Role = "student"
)

var Roles = []Role{RoleAdmin, RoleFaculty, RoleStudent}

var ErrInvalidRole = errors.New("invalid role")

func ParseRole(s string) (Role, error) {
	r := Role(core.CleanString(s, true /* lower */))
	if !r.Valid() {
		return "", errors.Wrapf(ErrInvalidRole, "%q", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleFaculty, RoleStudent:
		return true
	}
	return false
}

// HomePath is the landing page of the role's dashboard.
func (r Role) HomePath() string { return "/" + string(r) }

// Details holds the fields that only exist for one role.
// It is implemented by StudentDetails, FacultyDetails and AdminDetails only.
type Details interface {
	Role() Role
	isDetails()
}

type StudentDetails struct {
	RegistrationNumber string   `json:"registrationNumber"`
	Batch              string   `json:"batch"`
	CGPA               float64  `json:"cgpa" validate:"gte=0,lte=10"`
	Credits            int      `json:"credits" validate:"gte=0"`
	EnrolledCourses    []string `json:"enrolledCourses"`
	CompletedCourses   []string `json:"completedCourses"`
}

type FacultyDetails struct {
	EmployeeID      string   `json:"employeeId"`
	Designation     string   `json:"designation"`
	Specialization  []string `json:"specialization"`
	AssignedCourses []string `json:"assignedCourses"`
}

type AdminDetails struct {
	Permissions []string `json:"permissions"`
}

func (StudentDetails) Role() Role { return RoleStudent }
func (FacultyDetails) Role() Role { return RoleFaculty }
func (AdminDetails) Role() Role   { return RoleAdmin }

func (StudentDetails) isDetails() {}
func (FacultyDetails) isDetails() {}
func (AdminDetails) isDetails()   {}

// EmptyDetails returns the zero details of role.
func EmptyDetails(role Role) (Details, error) {
	switch role {
	case RoleStudent:
		return StudentDetails{EnrolledCourses: []string{}, CompletedCourses: []string{}}, nil
	case RoleFaculty:
		return FacultyDetails{Specialization: []string{}, AssignedCourses: []string{}}, nil
	case RoleAdmin:
		return AdminDetails{Permissions: []string{}}, nil
	}
	return nil, errors.Wrapf(ErrInvalidRole, "%q", role)
}

func decodeDetails(role Role, data []byte) (Details, error) {
	switch role {
	case RoleStudent:
		var d StudentDetails
		err := json.Unmarshal(data, &d)
		return d, err
	case RoleFaculty:
		var d FacultyDetails
		err := json.Unmarshal(data, &d)
		return d, err
	case RoleAdmin:
		var d AdminDetails
		err := json.Unmarshal(data, &d)
		return d, err
	}
	return nil, errors.Wrapf(ErrInvalidRole, "%q", role)
}

// flatten merges the JSON objects of base and details, plus the role.
func flatten(base interface{}, details Details) ([]byte, error) {
	var m map[string]interface{}
	b, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	if details != nil {
		b, err = json.Marshal(details)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, err
		}
		m["role"] = details.Role()
	}
	return json.Marshal(m)
}

// Profile is the domain record of a person, keyed by their identity uid.
// Its JSON form is flat: role-specific fields sit next to the common ones, with a "role" discriminator.
type Profile struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Department  string    `json:"department,omitempty"`
	Program     string    `json:"program,omitempty"`
	Semester    int       `json:"semester,omitempty"`
	IsActive    bool      `json:"isActive"`
	JoinedAt    time.Time `json:"joinedAt"`  // UTC
	LastLogin   time.Time `json:"lastLogin"` // UTC
	PhotoURL    string    `json:"photoURL,omitempty"`
	Details     Details   `json:"-"`
}

type profileFields Profile

func (p Profile) MarshalJSON() ([]byte, error) {
	return flatten(profileFields(p), p.Details)
}

func (p *Profile) UnmarshalJSON(data []byte) error {
	var base profileFields
	if err := json.Unmarshal(data, &base); err != nil {
		return err
	}
	var disc struct {
		Role Role `json:"role"`
	}
	if err := json.Unmarshal(data, &disc); err != nil {
		return err
	}
	details, err := decodeDetails(disc.Role, data)
	if err != nil {
		return err
	}
	*p = Profile(base)
	p.Details = details
	return nil
}

// Role is immutable once the profile is created.
func (p Profile) Role() Role {
	if p.Details == nil {
		return ""
	}
	return p.Details.Role()
}

func (p Profile) IsAdmin() bool   { return p.Role() == RoleAdmin }
func (p Profile) IsFaculty() bool { return p.Role() == RoleFaculty }
func (p Profile) IsStudent() bool { return p.Role() == RoleStudent }

// NewProfile contains the information needed to create a Profile for a new identity.
type NewProfile struct {
	Role        Role    `json:"role" validate:"required,role"`
	DisplayName string  `json:"displayName" validate:"required"`
	Department  string  `json:"department"`
	Program     string  `json:"program"`
	Semester    int     `json:"semester" validate:"gte=0,lte=12"`
	PhotoURL    string  `json:"photoURL" validate:"omitempty,url"`
	Details     Details `json:"-"`
}

type newProfileFields NewProfile

func (np NewProfile) MarshalJSON() ([]byte, error) {
	return flatten(newProfileFields(np), np.Details)
}

func (np *NewProfile) UnmarshalJSON(data []byte) error {
	var base newProfileFields
	if err := json.Unmarshal(data, &base); err != nil {
		return err
	}
	*np = NewProfile(base)
	if r := Role(core.CleanString(string(base.Role), true /* lower */)); r.Valid() {
		np.Role = r
		details, err := decodeDetails(r, data)
		if err != nil {
			return err
		}
		np.Details = details
	}
	return nil
}

// Validate cleans np and checks it. Missing details default to the role's empty details.
func (np *NewProfile) Validate(validate *validator.Validate) error {
	np.Role = Role(core.CleanString(string(np.Role), true /* lower */))
	np.DisplayName = core.CleanString(np.DisplayName)
	np.Department = core.CleanString(np.Department)
	np.Program = core.CleanString(np.Program)
	np.PhotoURL = core.CleanString(np.PhotoURL)

	if err := validate.Struct(np); err != nil {
		return err
	}

	if np.Details == nil {
		details, err := EmptyDetails(np.Role)
		if err != nil {
			return err
		}
		np.Details = details
	}
	if np.Details.Role() != np.Role {
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: "role does not match the role details"})
	}
	return validate.Struct(np.Details)
}

// Build returns the active Profile of the identity uid, joined and last logged in at now.
func (np NewProfile) Build(uid, email string, now time.Time) Profile {
	now = now.UTC()
	return Profile{
		UID:         uid,
		Email:       email,
		DisplayName: np.DisplayName,
		Department:  np.Department,
		Program:     np.Program,
		Semester:    np.Semester,
		IsActive:    true,
		JoinedAt:    now,
		LastLogin:   now,
		PhotoURL:    np.PhotoURL,
		Details:     np.Details,
	}
}
