package repository

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/enrollment-api/internal/models"
)

// Table maps an entity type onto its table. Columns lists every persisted
// column except the key, which the store generates on insert.
type Table[T any, ID comparable] struct {
	Name    string
	Key     string
	Columns []string
	KeyOf   func(*T) ID
	SetKey  func(*T, ID)
}

var (
	StudentTable = Table[models.Student, int64]{
		Name:    "students",
		Key:     "id",
		Columns: []string{"name", "email", "password_hash", "registered_at"},
		KeyOf:   func(s *models.Student) int64 { return s.ID },
		SetKey:  func(s *models.Student, id int64) { s.ID = id },
	}
	CourseTable = Table[models.Course, int64]{
		Name:    "courses",
		Key:     "id",
		Columns: []string{"name", "credits"},
		KeyOf:   func(c *models.Course) int64 { return c.ID },
		SetKey:  func(c *models.Course, id int64) { c.ID = id },
	}
	InstructorTable = Table[models.Instructor, int64]{
		Name:    "instructors",
		Key:     "id",
		Columns: []string{"name"},
		KeyOf:   func(i *models.Instructor) int64 { return i.ID },
		SetKey:  func(i *models.Instructor, id int64) { i.ID = id },
	}
	CourseInstructorTable = Table[models.CourseInstructor, int64]{
		Name:    "course_instructors",
		Key:     "id",
		Columns: []string{"course_id", "instructor_id"},
		KeyOf:   func(ci *models.CourseInstructor) int64 { return ci.ID },
		SetKey:  func(ci *models.CourseInstructor, id int64) { ci.ID = id },
	}
	EnrollmentTable = Table[models.StudentCourse, int64]{
		Name:    "student_courses",
		Key:     "id",
		Columns: []string{"student_id", "course_id", "instructor_id", "registered_at"},
		KeyOf:   func(sc *models.StudentCourse) int64 { return sc.ID },
		SetKey:  func(sc *models.StudentCourse, id int64) { sc.ID = id },
	}
)

func (t Table[T, ID]) selectList() string {
	return t.Key + ", " + strings.Join(t.Columns, ", ")
}

func (t Table[T, ID]) hasColumn(column string) bool {
	if column == t.Key {
		return true
	}
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

func (t Table[T, ID]) selectSQL(filter Filter, order OrderBy, limit int) (string, []any, error) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(t.selectList())
	b.WriteString(" FROM ")
	b.WriteString(t.Name)

	args, err := t.writeWhere(&b, filter)
	if err != nil {
		return "", nil, err
	}

	if len(order) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range order {
			if !t.hasColumn(o.Column) {
				return "", nil, fmt.Errorf("unknown order column %q for %s", o.Column, t.Name)
			}
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(o.Column)
			if o.Desc {
				b.WriteString(" DESC")
			} else {
				b.WriteString(" ASC")
			}
		}
	}

	if limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", limit)
	}

	return b.String(), args, nil
}

func (t Table[T, ID]) countSQL(filter Filter) (string, []any, error) {
	var b strings.Builder
	b.WriteString("SELECT COUNT(*) FROM ")
	b.WriteString(t.Name)
	args, err := t.writeWhere(&b, filter)
	return b.String(), args, err
}

func (t Table[T, ID]) existsSQL(filter Filter) (string, []any, error) {
	var b strings.Builder
	b.WriteString("SELECT 1 FROM ")
	b.WriteString(t.Name)
	args, err := t.writeWhere(&b, filter)
	b.WriteString(" LIMIT 1")
	return b.String(), args, err
}

func (t Table[T, ID]) writeWhere(b *strings.Builder, filter Filter) ([]any, error) {
	if filter.IsZero() {
		return nil, nil
	}
	clause, args := filter.clause, filter.args
	if len(args) > 0 {
		var err error
		clause, args, err = sqlx.In(clause, args...)
		if err != nil {
			return nil, fmt.Errorf("expand filter for %s: %w", t.Name, err)
		}
	}
	b.WriteString(" WHERE ")
	b.WriteString(clause)
	return args, nil
}

func (t Table[T, ID]) insertSQL() string {
	named := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		named[i] = ":" + c
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		t.Name, strings.Join(t.Columns, ", "), strings.Join(named, ", "), t.Key)
}

func (t Table[T, ID]) updateSQL() string {
	sets := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		sets[i] = c + " = :" + c
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = :%s", t.Name, strings.Join(sets, ", "), t.Key, t.Key)
}

func (t Table[T, ID]) deleteSQL() string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = ?", t.Name, t.Key)
}
