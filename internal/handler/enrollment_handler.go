package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enrollment-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-api/pkg/errors"
	"github.com/noah-isme/enrollment-api/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, studentID, courseID int64) (*models.StudentCourse, error)
	Cancel(ctx context.Context, studentID, courseID int64) error
}

// EnrollmentHandler exposes enrollment endpoints for the acting student.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Enroll godoc
// @Summary Enroll in a course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.EnrollRequest true "Course to enroll in"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	studentID, ok := studentFromContext(c)
	if !ok {
		return
	}
	var req models.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "course_id must be a positive integer"))
		return
	}

	enrollment, err := h.enrollments.Enroll(c.Request.Context(), studentID, req.CourseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Cancel godoc
// @Summary Cancel an enrollment
// @Tags Enrollments
// @Security BearerAuth
// @Param courseId path int true "Course ID"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /enrollments/{courseId} [delete]
func (h *EnrollmentHandler) Cancel(c *gin.Context) {
	studentID, ok := studentFromContext(c)
	if !ok {
		return
	}
	courseID, err := strconv.ParseInt(c.Param("courseId"), 10, 64)
	if err != nil || courseID <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "courseId must be a positive integer"))
		return
	}

	if err := h.enrollments.Cancel(c.Request.Context(), studentID, courseID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
