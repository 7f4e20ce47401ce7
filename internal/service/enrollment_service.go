package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-api/internal/models"
	"github.com/noah-isme/enrollment-api/internal/repository"
	"github.com/noah-isme/enrollment-api/pkg/clock"
	appErrors "github.com/noah-isme/enrollment-api/pkg/errors"
)

type unitOfWorkFactory interface {
	Begin() *repository.UnitOfWork
}

type ruleMetrics interface {
	RecordRuleRejection(rule string)
}

// EnrollmentConfig tunes enrollment limits.
type EnrollmentConfig struct {
	MaxActive int
}

// EnrollmentService enrolls students in courses and cancels enrollments.
type EnrollmentService struct {
	uow     unitOfWorkFactory
	clock   clock.Clock
	policy  enrollmentPolicy
	metrics ruleMetrics
	logger  *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(uow unitOfWorkFactory, clk clock.Clock, metrics ruleMetrics, logger *zap.Logger, cfg EnrollmentConfig) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk, _ = clock.New("")
	}
	return &EnrollmentService{
		uow:     uow,
		clock:   clk,
		policy:  newEnrollmentPolicy(cfg.MaxActive),
		metrics: metrics,
		logger:  logger,
	}
}

// Enroll binds the student to the course under the course's instructor.
func (s *EnrollmentService) Enroll(ctx context.Context, studentID, courseID int64) (*models.StudentCourse, error) {
	uow := s.uow.Begin()
	defer uow.Close() //nolint:errcheck

	student, err := uow.Students().FindOneWithRelations(ctx,
		repository.Where("id = ?", studentID),
		[]repository.Include[models.Student]{repository.IncludeStudentEnrollments},
		true)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	if v := s.policy.checkCapacity(student); v != nil {
		return nil, s.reject(v, studentID, courseID)
	}

	course, err := uow.Courses().FindOneWithRelations(ctx,
		repository.Where("id = ?", courseID),
		[]repository.Include[models.Course]{repository.IncludeCourseInstructors},
		false)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	instructorID, v := s.policy.admit(student, course)
	if v != nil {
		return nil, s.reject(v, studentID, courseID)
	}

	enrollment := &models.StudentCourse{
		StudentID:    studentID,
		CourseID:     courseID,
		InstructorID: instructorID,
		RegisteredAt: s.clock.Now(),
	}
	if err := uow.Enrollments().Add(ctx, enrollment); err != nil {
		return nil, err
	}
	if _, err := uow.Complete(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("student enrolled",
		zap.Int64("student_id", studentID),
		zap.Int64("course_id", courseID),
		zap.Int64("instructor_id", instructorID),
	)
	return enrollment, nil
}

// Cancel removes the student's enrollment in the course.
func (s *EnrollmentService) Cancel(ctx context.Context, studentID, courseID int64) error {
	uow := s.uow.Begin()
	defer uow.Close() //nolint:errcheck

	enrollment, err := uow.Enrollments().FindOne(ctx,
		repository.Where("student_id = ? AND course_id = ?", studentID, courseID),
		true)
	if err != nil {
		return err
	}
	if enrollment == nil {
		return s.reject(errNotEnrolled, studentID, courseID)
	}

	if err := uow.Enrollments().Remove(ctx, enrollment); err != nil {
		return err
	}
	if _, err := uow.Complete(ctx); err != nil {
		return err
	}

	s.logger.Info("enrollment cancelled", zap.Int64("student_id", studentID), zap.Int64("course_id", courseID))
	return nil
}

func (s *EnrollmentService) reject(v *violation, studentID, courseID int64) error {
	s.logger.Debug("enrollment rejected",
		zap.String("rule", v.rule),
		zap.Int64("student_id", studentID),
		zap.Int64("course_id", courseID),
	)
	if s.metrics != nil {
		s.metrics.RecordRuleRejection(v.rule)
	}
	return v.err()
}
