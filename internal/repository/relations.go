package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/enrollment-api/internal/models"
)

// Relation loaders attach related rows to a batch of parents. Related rows are
// never tracked; callers that need to change them read them through their own
// repository.

// IncludeStudentEnrollments loads every student's enrollments ordered by id.
func IncludeStudentEnrollments(ctx context.Context, q Querier, students []*models.Student) error {
	if len(students) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(students))
	byID := make(map[int64][]*models.Student, len(students))
	for _, s := range students {
		if _, seen := byID[s.ID]; !seen {
			ids = append(ids, s.ID)
		}
		byID[s.ID] = append(byID[s.ID], s)
		s.Enrollments = nil
	}

	var rows []models.StudentCourse
	query := "SELECT " + EnrollmentTable.selectList() + " FROM student_courses WHERE student_id IN (?) ORDER BY id ASC"
	if err := selectIn(ctx, q, &rows, query, ids); err != nil {
		return fmt.Errorf("load student enrollments: %w", err)
	}
	for _, row := range rows {
		for _, s := range byID[row.StudentID] {
			s.Enrollments = append(s.Enrollments, row)
		}
	}
	return nil
}

// IncludeCourseInstructors loads each course's instructor assignments together
// with the assigned instructor.
func IncludeCourseInstructors(ctx context.Context, q Querier, courses []*models.Course) error {
	ids, byID := indexCourses(courses)
	if len(ids) == 0 {
		return nil
	}
	for _, c := range courses {
		c.Instructors = nil
	}

	var assignments []models.CourseInstructor
	query := "SELECT " + CourseInstructorTable.selectList() + " FROM course_instructors WHERE course_id IN (?) ORDER BY id ASC"
	if err := selectIn(ctx, q, &assignments, query, ids); err != nil {
		return fmt.Errorf("load course instructors: %w", err)
	}
	if len(assignments) == 0 {
		return nil
	}

	instructorIDs := make([]int64, 0, len(assignments))
	seen := make(map[int64]struct{}, len(assignments))
	for _, a := range assignments {
		if _, ok := seen[a.InstructorID]; !ok {
			seen[a.InstructorID] = struct{}{}
			instructorIDs = append(instructorIDs, a.InstructorID)
		}
	}

	var instructors []models.Instructor
	query = "SELECT " + InstructorTable.selectList() + " FROM instructors WHERE id IN (?)"
	if err := selectIn(ctx, q, &instructors, query, instructorIDs); err != nil {
		return fmt.Errorf("load instructors: %w", err)
	}
	instructorByID := make(map[int64]*models.Instructor, len(instructors))
	for i := range instructors {
		instructorByID[instructors[i].ID] = &instructors[i]
	}

	for _, a := range assignments {
		a.Instructor = instructorByID[a.InstructorID]
		for _, c := range byID[a.CourseID] {
			c.Instructors = append(c.Instructors, a)
		}
	}
	return nil
}

// IncludeCourseEnrollments loads each course's enrollments together with the enrolled student.
func IncludeCourseEnrollments(ctx context.Context, q Querier, courses []*models.Course) error {
	return loadCourseEnrollments(ctx, q, courses, nil)
}

// IncludeCourseEnrollmentsOf loads only the enrollments held by studentID.
func IncludeCourseEnrollmentsOf(studentID int64) Include[models.Course] {
	return func(ctx context.Context, q Querier, courses []*models.Course) error {
		return loadCourseEnrollments(ctx, q, courses, &studentID)
	}
}

func loadCourseEnrollments(ctx context.Context, q Querier, courses []*models.Course, studentID *int64) error {
	ids, byID := indexCourses(courses)
	if len(ids) == 0 {
		return nil
	}
	for _, c := range courses {
		c.Enrollments = nil
	}

	query := "SELECT " + EnrollmentTable.selectList() + " FROM student_courses WHERE course_id IN (?)"
	args := []any{ids}
	if studentID != nil {
		query += " AND student_id = ?"
		args = append(args, *studentID)
	}
	query += " ORDER BY id ASC"

	var rows []models.StudentCourse
	if err := selectIn(ctx, q, &rows, query, args...); err != nil {
		return fmt.Errorf("load course enrollments: %w", err)
	}

	students := make(map[int64]*models.Student)
	if studentID == nil && len(rows) > 0 {
		studentIDs := make([]int64, 0, len(rows))
		for _, row := range rows {
			if _, ok := students[row.StudentID]; !ok {
				students[row.StudentID] = nil
				studentIDs = append(studentIDs, row.StudentID)
			}
		}
		var loaded []models.Student
		query := "SELECT " + StudentTable.selectList() + " FROM students WHERE id IN (?)"
		if err := selectIn(ctx, q, &loaded, query, studentIDs); err != nil {
			return fmt.Errorf("load enrolled students: %w", err)
		}
		for i := range loaded {
			students[loaded[i].ID] = &loaded[i]
		}
	}

	for _, row := range rows {
		row.Student = students[row.StudentID]
		for _, c := range byID[row.CourseID] {
			c.Enrollments = append(c.Enrollments, row)
		}
	}
	return nil
}

func indexCourses(courses []*models.Course) ([]int64, map[int64][]*models.Course) {
	ids := make([]int64, 0, len(courses))
	byID := make(map[int64][]*models.Course, len(courses))
	for _, c := range courses {
		if _, seen := byID[c.ID]; !seen {
			ids = append(ids, c.ID)
		}
		byID[c.ID] = append(byID[c.ID], c)
	}
	return ids, byID
}

func selectIn(ctx context.Context, q Querier, dest any, query string, args ...any) error {
	expanded, expandedArgs, err := sqlx.In(query, args...)
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, q, dest, q.Rebind(expanded), expandedArgs...)
}
