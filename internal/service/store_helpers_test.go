package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/enrollment-api/internal/models"
	"github.com/noah-isme/enrollment-api/internal/repository"
	"github.com/noah-isme/enrollment-api/pkg/clock"
	"github.com/noah-isme/enrollment-api/pkg/config"
	"github.com/noah-isme/enrollment-api/pkg/database"
)

var testNow = time.Date(2024, time.August, 5, 8, 30, 0, 0, time.FixedZone("COT", -5*60*60))

func newTestStore(t *testing.T) *repository.Provider {
	t.Helper()
	db, err := database.NewSQLite(config.DatabaseConfig{
		SQLitePath:   filepath.Join(t.TempDir(), "enrollment.db"),
		MaxOpenConns: 4,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, config.DriverSQLite))
	return repository.NewProvider(db, nil, nil)
}

func fixedClock() clock.Clock {
	return fixedClockAt(testNow)
}

func fixedClockAt(t time.Time) clock.Clock {
	return clock.Fixed(t)
}

func seedInstructor(t *testing.T, p *repository.Provider, name string) int64 {
	t.Helper()
	uow := p.Begin()
	defer uow.Close() //nolint:errcheck

	instructor := &models.Instructor{Name: name}
	require.NoError(t, uow.Instructors().Add(context.Background(), instructor))
	_, err := uow.Complete(context.Background())
	require.NoError(t, err)
	return instructor.ID
}

// seedCourse creates a course assigned to every given instructor.
func seedCourse(t *testing.T, p *repository.Provider, name string, credits int, instructorIDs ...int64) int64 {
	t.Helper()
	ctx := context.Background()
	uow := p.Begin()
	defer uow.Close() //nolint:errcheck

	course := &models.Course{Name: name, Credits: credits}
	require.NoError(t, uow.Courses().Add(ctx, course))
	_, err := uow.Complete(ctx)
	require.NoError(t, err)

	assignments := make([]*models.CourseInstructor, 0, len(instructorIDs))
	for _, id := range instructorIDs {
		assignments = append(assignments, &models.CourseInstructor{CourseID: course.ID, InstructorID: id})
	}
	require.NoError(t, uow.CourseInstructors().AddMany(ctx, assignments))
	_, err = uow.Complete(ctx)
	require.NoError(t, err)
	return course.ID
}

func seedStudent(t *testing.T, p *repository.Provider, name, email string) int64 {
	t.Helper()
	uow := p.Begin()
	defer uow.Close() //nolint:errcheck

	student := &models.Student{Name: name, Email: email, PasswordHash: "not-a-hash", RegisteredAt: testNow}
	require.NoError(t, uow.Students().Add(context.Background(), student))
	_, err := uow.Complete(context.Background())
	require.NoError(t, err)
	return student.ID
}

func enrollmentsOf(t *testing.T, p *repository.Provider, studentID int64) []*models.StudentCourse {
	t.Helper()
	uow := p.Begin()
	defer uow.Close() //nolint:errcheck

	rows, err := uow.Enrollments().Query().Where("student_id = ?", studentID).OrderBy(repository.Asc("id")).All(context.Background())
	require.NoError(t, err)
	return rows
}
