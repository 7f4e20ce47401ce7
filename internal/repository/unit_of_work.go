package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-api/internal/models"
	"github.com/noah-isme/enrollment-api/pkg/database"
	appErrors "github.com/noah-isme/enrollment-api/pkg/errors"
)

// Commit outcomes reported to a CommitObserver.
const (
	CommitSucceeded = "committed"
	CommitConflict  = "conflict"
	CommitFailed    = "failed"
	CommitCancelled = "cancelled"
)

// CommitObserver receives the outcome of every commit attempt.
type CommitObserver interface {
	ObserveCommit(outcome string, duration time.Duration)
}

// UnitOfWork is the transaction boundary of one logical operation. It owns a
// dedicated connection, the identity maps of its repositories and the ordered
// list of staged writes. It is not safe for concurrent use.
type UnitOfWork struct {
	session  *session
	logger   *zap.Logger
	observer CommitObserver

	students          *Repository[models.Student, int64]
	courses           *Repository[models.Course, int64]
	instructors       *Repository[models.Instructor, int64]
	courseInstructors *Repository[models.CourseInstructor, int64]
	enrollments       *Repository[models.StudentCourse, int64]
}

// NewUnitOfWork opens a unit of work over db. The connection is acquired on first use.
func NewUnitOfWork(db *sqlx.DB, logger *zap.Logger, observer CommitObserver) *UnitOfWork {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UnitOfWork{session: newSession(db), logger: logger, observer: observer}
}

// Students returns the student repository bound to this unit.
func (u *UnitOfWork) Students() *Repository[models.Student, int64] {
	if u.students == nil {
		u.students = newRepository(u.session, StudentTable)
	}
	return u.students
}

// Courses returns the course repository bound to this unit.
func (u *UnitOfWork) Courses() *Repository[models.Course, int64] {
	if u.courses == nil {
		u.courses = newRepository(u.session, CourseTable)
	}
	return u.courses
}

// Instructors returns the instructor repository bound to this unit.
func (u *UnitOfWork) Instructors() *Repository[models.Instructor, int64] {
	if u.instructors == nil {
		u.instructors = newRepository(u.session, InstructorTable)
	}
	return u.instructors
}

// CourseInstructors returns the course assignment repository.
func (u *UnitOfWork) CourseInstructors() *Repository[models.CourseInstructor, int64] {
	if u.courseInstructors == nil {
		u.courseInstructors = newRepository(u.session, CourseInstructorTable)
	}
	return u.courseInstructors
}

// Enrollments returns the student course repository.
func (u *UnitOfWork) Enrollments() *Repository[models.StudentCourse, int64] {
	if u.enrollments == nil {
		u.enrollments = newRepository(u.session, EnrollmentTable)
	}
	return u.enrollments
}

// Pending returns the number of staged writes.
func (u *UnitOfWork) Pending() int {
	return len(u.session.pending())
}

// Complete applies every staged write in one transaction and returns the
// number of affected rows. A cancelled ctx discards the staged writes; once
// the transaction has begun, cancellation is ignored. On failure nothing is
// applied, staged writes are discarded and a unique index violation is
// reported as ErrConflict, anything else as ErrTransaction. Tracking state is
// cleared after a successful commit.
func (u *UnitOfWork) Complete(ctx context.Context) (int64, error) {
	if u.session.closed {
		return 0, appErrors.ErrUnitOfWorkClosed
	}
	if err := ctx.Err(); err != nil {
		u.session.reset()
		u.observe(CommitCancelled, 0)
		return 0, err
	}

	pending := u.session.pending()
	if len(pending) == 0 {
		return 0, nil
	}

	start := time.Now()
	commitCtx := context.WithoutCancel(ctx)

	conn, err := u.session.querier(commitCtx)
	if err != nil {
		return 0, u.fail(fmt.Errorf("acquire connection: %w", err), start)
	}
	tx, err := conn.BeginTxx(commitCtx, nil)
	if err != nil {
		return 0, u.fail(fmt.Errorf("begin transaction: %w", err), start)
	}

	var affected int64
	for _, c := range pending {
		n, err := c.apply(commitCtx, tx)
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				u.logger.Warn("rollback failed", zap.Error(rbErr))
			}
			return 0, u.fail(err, start)
		}
		affected += n
	}

	if err := tx.Commit(); err != nil {
		return 0, u.fail(fmt.Errorf("commit transaction: %w", err), start)
	}

	for _, c := range pending {
		if c.onDone != nil {
			c.onDone()
		}
	}
	u.session.reset()
	u.observe(CommitSucceeded, time.Since(start))
	return affected, nil
}

// Close discards staged writes and releases the connection. Further calls fail
// with ErrUnitOfWorkClosed.
func (u *UnitOfWork) Close() error {
	return u.session.close()
}

func (u *UnitOfWork) fail(err error, start time.Time) error {
	u.session.reset()
	if database.IsUniqueViolation(err) {
		u.logger.Warn("commit rejected by unique constraint", zap.Error(err))
		u.observe(CommitConflict, time.Since(start))
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "conflicting change was rejected")
	}
	u.logger.Error("commit failed", zap.Error(err))
	u.observe(CommitFailed, time.Since(start))
	return appErrors.Wrap(err, appErrors.ErrTransaction.Code, appErrors.ErrTransaction.Status, appErrors.ErrTransaction.Message)
}

func (u *UnitOfWork) observe(outcome string, d time.Duration) {
	if u.observer != nil {
		u.observer.ObserveCommit(outcome, d)
	}
}

// Provider hands out a fresh unit of work per operation.
type Provider struct {
	db       *sqlx.DB
	logger   *zap.Logger
	observer CommitObserver
}

// NewProvider constructs a Provider.
func NewProvider(db *sqlx.DB, logger *zap.Logger, observer CommitObserver) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{db: db, logger: logger, observer: observer}
}

// Begin opens a new unit of work. Callers must Close it.
func (p *Provider) Begin() *UnitOfWork {
	return NewUnitOfWork(p.db, p.logger, p.observer)
}
