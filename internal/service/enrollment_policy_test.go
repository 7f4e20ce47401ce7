package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/enrollment-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-api/pkg/errors"
)

func courseTaughtBy(id int64, instructors ...int64) *models.Course {
	course := &models.Course{ID: id, Name: "course"}
	for _, instructorID := range instructors {
		course.Instructors = append(course.Instructors, models.CourseInstructor{CourseID: id, InstructorID: instructorID})
	}
	return course
}

func studentWith(enrollments ...models.StudentCourse) *models.Student {
	return &models.Student{ID: 1, Enrollments: enrollments}
}

func TestPolicyCapacity(t *testing.T) {
	policy := newEnrollmentPolicy(0)
	assert.Equal(t, defaultMaxActiveEnrollments, policy.maxActive)

	full := studentWith(
		models.StudentCourse{CourseID: 1, InstructorID: 1},
		models.StudentCourse{CourseID: 2, InstructorID: 2},
		models.StudentCourse{CourseID: 3, InstructorID: 3},
	)
	assert.Equal(t, errMaxEnrollments, policy.checkCapacity(full))
	assert.Nil(t, policy.checkCapacity(studentWith(models.StudentCourse{CourseID: 1})))
	assert.Nil(t, newEnrollmentPolicy(4).checkCapacity(full))
}

func TestPolicyAdmit(t *testing.T) {
	policy := newEnrollmentPolicy(3)
	student := studentWith(models.StudentCourse{CourseID: 10, InstructorID: 7})

	cases := []struct {
		name       string
		course     *models.Course
		instructor int64
		violation  *violation
	}{
		{name: "no instructor", course: courseTaughtBy(11), violation: errCourseConfig},
		{name: "two instructors", course: courseTaughtBy(11, 8, 9), violation: errCourseConfig},
		{name: "same course", course: courseTaughtBy(10, 7), violation: errAlreadyEnrolled},
		{name: "same instructor", course: courseTaughtBy(12, 7), violation: errInstructorConflict},
		{name: "admitted", course: courseTaughtBy(13, 8), instructor: 8},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			instructorID, v := policy.admit(student, tc.course)
			assert.Equal(t, tc.violation, v)
			assert.Equal(t, tc.instructor, instructorID)
		})
	}
}

func TestViolationMapsToInvalidRequest(t *testing.T) {
	err := errInstructorConflict.err()
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, 400, appErr.Status)
	assert.Equal(t, "instructor conflict", appErr.Message)
}
