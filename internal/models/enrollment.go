package models

import "time"

// StudentCourse is an active enrollment of a student in a course under one instructor.
type StudentCourse struct {
	ID           int64     `db:"id" json:"id"`
	StudentID    int64     `db:"student_id" json:"student_id"`
	CourseID     int64     `db:"course_id" json:"course_id"`
	InstructorID int64     `db:"instructor_id" json:"instructor_id"`
	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`

	Student *Student `db:"-" json:"student,omitempty"`
}

// EnrollRequest is the payload for enrolling the acting student in a course.
type EnrollRequest struct {
	CourseID int64 `json:"course_id" binding:"required,gt=0"`
}
