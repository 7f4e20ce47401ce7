// Package seed loads a declarative course catalog into the store.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-api/internal/models"
	"github.com/noah-isme/enrollment-api/internal/repository"
)

// Entry is one course and the instructor who teaches it.
type Entry struct {
	Course     string `json:"course"`
	Credits    int    `json:"credits"`
	Instructor string `json:"instructor"`
}

// Result counts what Apply changed.
type Result struct {
	InstructorsCreated int
	CoursesCreated     int
	CoursesUpdated     int
	AssignmentsRemoved int
	AssignmentsCreated int
}

// DefaultCatalog is loaded when no catalog file is given.
var DefaultCatalog = []Entry{
	{Course: "Cálculo Diferencial", Credits: 4, Instructor: "Ana Torres"},
	{Course: "Álgebra Lineal", Credits: 3, Instructor: "Ana Torres"},
	{Course: "Física Mecánica", Credits: 4, Instructor: "Carlos Ruiz"},
	{Course: "Programación I", Credits: 3, Instructor: "Diana Mejía"},
	{Course: "Bases de Datos", Credits: 3, Instructor: "Diana Mejía"},
	{Course: "Química General", Credits: 3, Instructor: "Esteban Rojas"},
	{Course: "Estadística", Credits: 3, Instructor: "Felipe Castro"},
	{Course: "Comunicación Oral y Escrita", Credits: 2, Instructor: "Gloria Pardo"},
	{Course: "Ética Profesional", Credits: 2, Instructor: "Hernán Vélez"},
	{Course: "Inglés Técnico", Credits: 2, Instructor: "Irene Salas"},
}

// Decode reads a JSON array of entries.
func Decode(r io.Reader) ([]Entry, error) {
	var entries []Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := validate(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func validate(entries []Entry) error {
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if e.Course == "" || e.Instructor == "" || e.Credits <= 0 {
			return fmt.Errorf("catalog entry %d: course, instructor and positive credits are required", i)
		}
		if seen[e.Course] {
			return fmt.Errorf("catalog entry %d: course %q listed twice", i, e.Course)
		}
		seen[e.Course] = true
	}
	return nil
}

// Apply makes the store match entries. Courses are matched by name, their
// credits updated and their instructor assignment replaced so every listed
// course ends with exactly one instructor. Courses absent from entries are
// left alone.
//
// Rows are created in one transaction and assignments in a second. If the
// second fails, new courses exist without an instructor and cannot be enrolled
// in until Apply is run again; the returned Result counts what was committed.
func Apply(ctx context.Context, store *repository.Provider, entries []Entry, log *zap.Logger) (Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var res Result
	if err := validate(entries); err != nil {
		return res, err
	}

	uow := store.Begin()
	defer uow.Close() //nolint:errcheck

	instructors, err := uow.Instructors().FindMany(ctx, repository.Filter{}, true)
	if err != nil {
		return res, err
	}
	instructorByName := make(map[string]*models.Instructor, len(instructors))
	for _, in := range instructors {
		instructorByName[in.Name] = in
	}

	courses, err := uow.Courses().FindManyWithRelations(ctx, repository.Filter{},
		[]repository.Include[models.Course]{repository.IncludeCourseInstructors}, nil, true)
	if err != nil {
		return res, err
	}
	courseByName := make(map[string]*models.Course, len(courses))
	for _, c := range courses {
		courseByName[c.Name] = c
	}

	// First pass creates missing rows so the second can reference their keys.
	var newInstructors []*models.Instructor
	var newCourses []*models.Course
	for _, e := range entries {
		if _, ok := instructorByName[e.Instructor]; !ok {
			in := &models.Instructor{Name: e.Instructor}
			instructorByName[e.Instructor] = in
			newInstructors = append(newInstructors, in)
		}
		course, ok := courseByName[e.Course]
		if !ok {
			course = &models.Course{Name: e.Course, Credits: e.Credits}
			courseByName[e.Course] = course
			newCourses = append(newCourses, course)
			continue
		}
		if course.Credits != e.Credits {
			course.Credits = e.Credits
			if err := uow.Courses().Update(ctx, course); err != nil {
				return res, err
			}
			res.CoursesUpdated++
		}
	}
	if err := uow.Instructors().AddMany(ctx, newInstructors); err != nil {
		return res, err
	}
	if err := uow.Courses().AddMany(ctx, newCourses); err != nil {
		return res, err
	}
	if _, err := uow.Complete(ctx); err != nil {
		return res, fmt.Errorf("create catalog rows: %w", err)
	}
	res.InstructorsCreated = len(newInstructors)
	res.CoursesCreated = len(newCourses)

	var stale []*models.CourseInstructor
	var assignments []*models.CourseInstructor
	for _, e := range entries {
		course := courseByName[e.Course]
		want := instructorByName[e.Instructor].ID
		assigned := false
		for i := range course.Instructors {
			ci := &course.Instructors[i]
			if ci.InstructorID == want && !assigned {
				assigned = true
				continue
			}
			stale = append(stale, ci)
		}
		if !assigned {
			assignments = append(assignments, &models.CourseInstructor{CourseID: course.ID, InstructorID: want})
		}
	}
	if err := uow.CourseInstructors().RemoveMany(ctx, stale); err != nil {
		return res, err
	}
	if err := uow.CourseInstructors().AddMany(ctx, assignments); err != nil {
		return res, err
	}
	if _, err := uow.Complete(ctx); err != nil {
		log.Error("catalog partially seeded; courses left without instructor assignment",
			zap.Int("instructors_created", res.InstructorsCreated),
			zap.Int("courses_created", res.CoursesCreated),
			zap.Int("courses_updated", res.CoursesUpdated),
			zap.Error(err),
		)
		return res, fmt.Errorf("assign instructors: %w", err)
	}
	res.AssignmentsRemoved = len(stale)
	res.AssignmentsCreated = len(assignments)

	log.Info("catalog seeded",
		zap.Int("instructors_created", res.InstructorsCreated),
		zap.Int("courses_created", res.CoursesCreated),
		zap.Int("courses_updated", res.CoursesUpdated),
		zap.Int("assignments_removed", res.AssignmentsRemoved),
		zap.Int("assignments_created", res.AssignmentsCreated),
	)
	return res, nil
}
