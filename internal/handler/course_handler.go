package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enrollment-api/internal/models"
	"github.com/noah-isme/enrollment-api/internal/service"
	"github.com/noah-isme/enrollment-api/pkg/response"
)

type courseCatalog interface {
	ListCourses(ctx context.Context, studentID int64) ([]models.CourseListing, error)
	ListMyCourses(ctx context.Context, studentID int64) ([]models.EnrolledCourse, error)
}

type studyLoadExporter interface {
	StudyLoad(ctx context.Context, studentID int64, format string) (*service.ExportFile, error)
}

// CourseHandler exposes the course catalog and the student's study load.
type CourseHandler struct {
	courses courseCatalog
	exports studyLoadExporter
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses courseCatalog, exports studyLoadExporter) *CourseHandler {
	return &CourseHandler{courses: courses, exports: exports}
}

// List godoc
// @Summary List courses
// @Description Every course with its instructor, unenrolled courses first
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	studentID, ok := studentFromContext(c)
	if !ok {
		return
	}
	courses, err := h.courses.ListCourses(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, map[string]interface{}{"total": len(courses)})
}

// Mine godoc
// @Summary List my courses
// @Description Courses the student is enrolled in with classmates
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /courses/mine [get]
func (h *CourseHandler) Mine(c *gin.Context) {
	studentID, ok := studentFromContext(c)
	if !ok {
		return
	}
	courses, err := h.courses.ListMyCourses(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	credits := 0
	for _, course := range courses {
		credits += course.Credits
	}
	response.JSON(c, http.StatusOK, courses, map[string]interface{}{"total": len(courses), "credits": credits})
}

// Export godoc
// @Summary Export my study load
// @Tags Courses
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /courses/mine/export [get]
func (h *CourseHandler) Export(c *gin.Context) {
	studentID, ok := studentFromContext(c)
	if !ok {
		return
	}
	file, err := h.exports.StudyLoad(c.Request.Context(), studentID, c.DefaultQuery("format", service.ExportFormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}
