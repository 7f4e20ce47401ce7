package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourseServiceListCourses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	enrollments := NewEnrollmentService(store, fixedClock(), nil, nil, EnrollmentConfig{})
	svc := NewCourseService(store, nil)

	ines := seedInstructor(t, store, "Ines")
	ivan := seedInstructor(t, store, "Ivan")
	algebra := seedCourse(t, store, "Algebra", 4, ines)
	biology := seedCourse(t, store, "Biology", 3, ivan)
	chemistry := seedCourse(t, store, "Chemistry", 3)
	sara := seedStudent(t, store, "Sara", "sara@example.com")

	_, err := enrollments.Enroll(ctx, sara, algebra)
	require.NoError(t, err)

	listings, err := svc.ListCourses(ctx, sara)
	require.NoError(t, err)
	require.Len(t, listings, 3)

	assert.Equal(t, biology, listings[0].ID)
	assert.Equal(t, "Ivan", listings[0].InstructorName)
	assert.False(t, listings[0].IsEnrolled)

	assert.Equal(t, chemistry, listings[1].ID)
	assert.Empty(t, listings[1].InstructorName)
	assert.False(t, listings[1].IsEnrolled)

	assert.Equal(t, algebra, listings[2].ID)
	assert.Equal(t, "Ines", listings[2].InstructorName)
	assert.True(t, listings[2].IsEnrolled)
}

func TestCourseServiceListCoursesEmptyCatalog(t *testing.T) {
	store := newTestStore(t)
	svc := NewCourseService(store, nil)

	listings, err := svc.ListCourses(context.Background(), seedStudent(t, store, "Sara", "sara@example.com"))
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestCourseServiceListMyCourses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	enrollments := NewEnrollmentService(store, fixedClock(), nil, nil, EnrollmentConfig{})
	svc := NewCourseService(store, nil)

	ines := seedInstructor(t, store, "Ines")
	ivan := seedInstructor(t, store, "Ivan")
	algebra := seedCourse(t, store, "Algebra", 4, ines)
	biology := seedCourse(t, store, "Biology", 3, ivan)
	seedCourse(t, store, "Chemistry", 3, seedInstructor(t, store, "Iris"))

	sara := seedStudent(t, store, "Sara", "sara@example.com")
	tomas := seedStudent(t, store, "Tomás", "tomas@example.com")
	lucia := seedStudent(t, store, "Lucía", "lucia@example.com")

	for _, pair := range [][2]int64{{sara, algebra}, {sara, biology}, {tomas, algebra}, {lucia, algebra}} {
		_, err := enrollments.Enroll(ctx, pair[0], pair[1])
		require.NoError(t, err)
	}

	mine, err := svc.ListMyCourses(ctx, sara)
	require.NoError(t, err)
	require.Len(t, mine, 2)

	assert.Equal(t, algebra, mine[0].ID)
	assert.Equal(t, 4, mine[0].Credits)
	assert.Equal(t, "Ines", mine[0].InstructorName)
	assert.True(t, mine[0].IsEnrolled)
	assert.ElementsMatch(t, []string{"Tomás", "Lucía"}, mine[0].ClassmateNames)

	assert.Equal(t, biology, mine[1].ID)
	assert.Empty(t, mine[1].ClassmateNames)

	none, err := svc.ListMyCourses(ctx, seedStudent(t, store, "Nadia", "nadia@example.com"))
	require.NoError(t, err)
	assert.Empty(t, none)
}
