package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-api/internal/models"
	"github.com/noah-isme/enrollment-api/internal/repository"
)

// CourseService serves read-only catalog views for the acting student.
type CourseService struct {
	uow    unitOfWorkFactory
	logger *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(uow unitOfWorkFactory, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{uow: uow, logger: logger}
}

// ListCourses returns every course with its instructor and whether the
// student is enrolled. Unenrolled courses come first.
func (s *CourseService) ListCourses(ctx context.Context, studentID int64) ([]models.CourseListing, error) {
	uow := s.uow.Begin()
	defer uow.Close() //nolint:errcheck

	courses, err := uow.Courses().FindManyWithRelations(ctx, repository.Filter{},
		[]repository.Include[models.Course]{
			repository.IncludeCourseInstructors,
			repository.IncludeCourseEnrollmentsOf(studentID),
		},
		repository.OrderBy{repository.Asc("id")},
		false)
	if err != nil {
		return nil, err
	}

	listings := make([]models.CourseListing, 0, len(courses))
	for _, course := range courses {
		listings = append(listings, models.CourseListing{
			ID:             course.ID,
			Name:           course.Name,
			InstructorName: course.InstructorName(),
			IsEnrolled:     len(course.Enrollments) > 0,
		})
	}
	sort.SliceStable(listings, func(i, j int) bool {
		return !listings[i].IsEnrolled && listings[j].IsEnrolled
	})
	return listings, nil
}

// ListMyCourses returns the courses the student is enrolled in together with
// the names of the other enrolled students.
func (s *CourseService) ListMyCourses(ctx context.Context, studentID int64) ([]models.EnrolledCourse, error) {
	uow := s.uow.Begin()
	defer uow.Close() //nolint:errcheck

	courses, err := uow.Courses().FindManyWithRelations(ctx,
		repository.Where("id IN (SELECT course_id FROM student_courses WHERE student_id = ?)", studentID),
		[]repository.Include[models.Course]{
			repository.IncludeCourseInstructors,
			repository.IncludeCourseEnrollments,
		},
		repository.OrderBy{repository.Asc("id")},
		false)
	if err != nil {
		return nil, err
	}

	result := make([]models.EnrolledCourse, 0, len(courses))
	for _, course := range courses {
		item := models.EnrolledCourse{
			ID:             course.ID,
			Name:           course.Name,
			Credits:        course.Credits,
			InstructorName: course.InstructorName(),
		}
		for _, enrollment := range course.Enrollments {
			if enrollment.StudentID == studentID {
				item.IsEnrolled = true
				continue
			}
			if enrollment.Student != nil {
				item.ClassmateNames = append(item.ClassmateNames, enrollment.Student.Name)
			}
		}
		result = append(result, item)
	}
	return result, nil
}
