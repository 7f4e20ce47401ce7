package models

// Course is a subject students can enroll in.
type Course struct {
	ID      int64  `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	Credits int    `db:"credits" json:"credits"`

	Instructors []CourseInstructor `db:"-" json:"instructors,omitempty"`
	Enrollments []StudentCourse    `db:"-" json:"enrollments,omitempty"`
}

// InstructorName returns the first resolvable instructor name or an empty string.
func (c *Course) InstructorName() string {
	for _, ci := range c.Instructors {
		if ci.Instructor != nil {
			return ci.Instructor.Name
		}
	}
	return ""
}

// Instructor teaches one or more courses.
type Instructor struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// CourseInstructor assigns an instructor to a course.
type CourseInstructor struct {
	ID           int64 `db:"id" json:"id"`
	CourseID     int64 `db:"course_id" json:"course_id"`
	InstructorID int64 `db:"instructor_id" json:"instructor_id"`

	Instructor *Instructor `db:"-" json:"instructor,omitempty"`
}

// CourseListing is one row of the course catalog for the acting student.
type CourseListing struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	InstructorName string `json:"instructor_name"`
	IsEnrolled     bool   `json:"is_enrolled"`
}

// EnrolledCourse is one row of the acting student's study load.
type EnrolledCourse struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	Credits        int      `json:"credits"`
	InstructorName string   `json:"instructor_name"`
	IsEnrolled     bool     `json:"is_enrolled"`
	ClassmateNames []string `json:"classmate_names,omitempty"`
}
