// Package students is a representative guarded resource: every route sits
// behind a permission slug resolved through the versioned cache.
package students

import "time"

// Student is a school enrolment record.
type Student struct {
	ID            int64     `json:"id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	AdmissionNo   string    `json:"admission_no"`
	ClassName     string    `json:"class_name"`
	GuardianPhone string    `json:"guardian_phone"`
	IsActive      bool      `json:"is_active"`
	EnrolledAt    time.Time `json:"enrolled_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateStudentInput carries the fields for a new enrolment.
type CreateStudentInput struct {
	FirstName     string
	LastName      string
	AdmissionNo   string
	ClassName     string
	GuardianPhone string
}

// UpdateStudentInput carries the mutable fields of a student.
type UpdateStudentInput struct {
	FirstName     string
	LastName      string
	ClassName     string
	GuardianPhone string
}
