package models

import "time"

// Student is a registered learner able to hold enrollments.
type Student struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`

	Enrollments []StudentCourse `db:"-" json:"enrollments,omitempty"`
}

// HasCourse reports whether the student already holds an enrollment in courseID.
func (s *Student) HasCourse(courseID int64) bool {
	for _, e := range s.Enrollments {
		if e.CourseID == courseID {
			return true
		}
	}
	return false
}

// HasInstructor reports whether any enrollment is taught by instructorID.
func (s *Student) HasInstructor(instructorID int64) bool {
	for _, e := range s.Enrollments {
		if e.InstructorID == instructorID {
			return true
		}
	}
	return false
}
