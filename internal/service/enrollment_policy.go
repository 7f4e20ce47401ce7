package service

import (
	"github.com/noah-isme/enrollment-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-api/pkg/errors"
)

const defaultMaxActiveEnrollments = 3

// Rule names reported on rejection.
const (
	ruleMaxEnrollments     = "max_enrollments"
	ruleCourseConfig       = "course_configuration"
	ruleAlreadyEnrolled    = "already_enrolled"
	ruleInstructorConflict = "instructor_conflict"
	ruleNotEnrolled        = "not_enrolled"
)

// violation is a broken enrollment rule.
type violation struct {
	rule    string
	message string
}

func (v *violation) err() error {
	return appErrors.Clone(appErrors.ErrValidation, v.message)
}

var (
	errMaxEnrollments     = &violation{rule: ruleMaxEnrollments, message: "maximum enrollments reached"}
	errCourseConfig       = &violation{rule: ruleCourseConfig, message: "invalid course configuration"}
	errAlreadyEnrolled    = &violation{rule: ruleAlreadyEnrolled, message: "already enrolled"}
	errInstructorConflict = &violation{rule: ruleInstructorConflict, message: "instructor conflict"}
	errNotEnrolled        = &violation{rule: ruleNotEnrolled, message: "not enrolled"}
)

// enrollmentPolicy evaluates enrollment rules against already loaded state.
type enrollmentPolicy struct {
	maxActive int
}

func newEnrollmentPolicy(maxActive int) enrollmentPolicy {
	if maxActive <= 0 {
		maxActive = defaultMaxActiveEnrollments
	}
	return enrollmentPolicy{maxActive: maxActive}
}

// checkCapacity needs the student's enrollments loaded.
func (p enrollmentPolicy) checkCapacity(student *models.Student) *violation {
	if len(student.Enrollments) >= p.maxActive {
		return errMaxEnrollments
	}
	return nil
}

// admit returns the instructor the new enrollment is bound to. The course
// must carry its instructor assignments.
func (p enrollmentPolicy) admit(student *models.Student, course *models.Course) (int64, *violation) {
	if len(course.Instructors) != 1 {
		return 0, errCourseConfig
	}
	instructorID := course.Instructors[0].InstructorID
	if student.HasCourse(course.ID) {
		return 0, errAlreadyEnrolled
	}
	if student.HasInstructor(instructorID) {
		return 0, errInstructorConflict
	}
	return instructorID, nil
}
