package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/enrollment-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-api/pkg/errors"
	"github.com/noah-isme/enrollment-api/pkg/export"
)

type studyLoadStub struct {
	courses []models.EnrolledCourse
	err     error
	calls   int
}

func (s *studyLoadStub) ListMyCourses(ctx context.Context, studentID int64) ([]models.EnrolledCourse, error) {
	s.calls++
	return s.courses, s.err
}

type failingPDF struct{}

func (failingPDF) Render(data export.Dataset, title string) ([]byte, error) {
	return nil, errors.New("font missing")
}

func sampleStudyLoad() *studyLoadStub {
	return &studyLoadStub{courses: []models.EnrolledCourse{
		{ID: 1, Name: "Algebra", Credits: 4, InstructorName: "Ines", IsEnrolled: true, ClassmateNames: []string{"Tomás", "Lucía"}},
		{ID: 2, Name: "Biology", Credits: 3, InstructorName: "Ivan", IsEnrolled: true},
	}}
}

func TestExportServiceStudyLoadCSV(t *testing.T) {
	svc := NewExportService(sampleStudyLoad(), fixedClock(), nil, nil, nil)

	file, err := svc.StudyLoad(context.Background(), 7, "CSV")
	require.NoError(t, err)
	assert.Equal(t, "study-load-7-20240805.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	body := string(bytes.TrimPrefix(file.Content, []byte{0xEF, 0xBB, 0xBF}))
	assert.Equal(t, "Course,Credits,Instructor,Classmates\nAlgebra,4,Ines,\"Tomás, Lucía\"\nBiology,3,Ivan,\n", body)
}

func TestExportServiceStudyLoadDefaultsToCSV(t *testing.T) {
	svc := NewExportService(sampleStudyLoad(), fixedClock(), nil, nil, nil)

	file, err := svc.StudyLoad(context.Background(), 7, "")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
}

func TestExportServiceStudyLoadPDF(t *testing.T) {
	svc := NewExportService(sampleStudyLoad(), fixedClock(), nil, nil, nil)

	file, err := svc.StudyLoad(context.Background(), 7, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "study-load-7-20240805.pdf", file.Filename)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Content, []byte("%PDF")))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	reader := sampleStudyLoad()
	svc := NewExportService(reader, fixedClock(), nil, nil, nil)

	_, err := svc.StudyLoad(context.Background(), 7, "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Zero(t, reader.calls)
}

func TestExportServicePropagatesFailures(t *testing.T) {
	reader := &studyLoadStub{err: appErrors.ErrQuery}
	svc := NewExportService(reader, fixedClock(), nil, nil, nil)
	_, err := svc.StudyLoad(context.Background(), 7, "csv")
	assert.True(t, appErrors.Is(err, appErrors.ErrQuery))

	svc = NewExportService(sampleStudyLoad(), fixedClock(), nil, nil, failingPDF{})
	_, err = svc.StudyLoad(context.Background(), 7, "pdf")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
