package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/enrollment-api/internal/middleware"
	"github.com/noah-isme/enrollment-api/internal/models"
	"github.com/noah-isme/enrollment-api/internal/service"
	appErrors "github.com/noah-isme/enrollment-api/pkg/errors"
)

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func newContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	return c, rec
}

func authenticate(c *gin.Context, studentID int64) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{StudentID: studentID})
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

type authStub struct {
	registered models.RegisterRequest
	login      models.LoginRequest
	err        error
}

func (s *authStub) Register(_ context.Context, req models.RegisterRequest) (*models.RegisterResponse, error) {
	s.registered = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.RegisterResponse{ID: 1, Name: req.Name, Email: req.Email}, nil
}

func (s *authStub) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	s.login = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.LoginResponse{Token: "jwt", Name: "Sara", ExpiresAt: time.Date(2024, 8, 5, 10, 0, 0, 0, time.UTC)}, nil
}

func TestAuthHandlerRegister(t *testing.T) {
	stub := &authStub{}
	h := NewAuthHandler(stub)

	c, rec := newContext(http.MethodPost, "/auth/register", `{"name":"Sara","email":"sara@example.com","password":"Secr3t!pass"}`)
	h.Register(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "sara@example.com", stub.registered.Email)
	assert.JSONEq(t, `{"id":1,"name":"Sara","email":"sara@example.com"}`, string(decode(t, rec).Data))
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestAuthHandlerRegisterErrors(t *testing.T) {
	h := NewAuthHandler(&authStub{err: appErrors.Clone(appErrors.ErrEmailTaken, "")})

	c, rec := newContext(http.MethodPost, "/auth/register", `{"name":"Sara","email":"sara@example.com","password":"Secr3t!pass"}`)
	h.Register(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, appErrors.ErrEmailTaken.Code, decode(t, rec).Error.Code)

	c, rec = newContext(http.MethodPost, "/auth/register", `{"name":`)
	h.Register(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decode(t, rec).Error.Code)
}

func TestAuthHandlerLogin(t *testing.T) {
	stub := &authStub{}
	h := NewAuthHandler(stub)

	c, rec := newContext(http.MethodPost, "/auth/login", `{"email":"sara@example.com","password":"Secr3t!pass"}`)
	c.Request.RemoteAddr = "203.0.113.7:4000"
	h.Login(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "203.0.113.7", stub.login.IP)
	assert.JSONEq(t, `{"token":"jwt","name":"Sara","expires_at":"2024-08-05T10:00:00Z"}`, string(decode(t, rec).Data))
}

func TestAuthHandlerLoginInvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&authStub{err: appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")})

	c, rec := newContext(http.MethodPost, "/auth/login", `{"email":"sara@example.com","password":"nope"}`)
	h.Login(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "invalid email or password", env.Error.Message)
}

type catalogStub struct {
	studentID int64
	err       error
}

func (s *catalogStub) ListCourses(_ context.Context, studentID int64) ([]models.CourseListing, error) {
	s.studentID = studentID
	return []models.CourseListing{
		{ID: 2, Name: "Biology", InstructorName: "Ivan"},
		{ID: 1, Name: "Algebra", InstructorName: "Ines", IsEnrolled: true},
	}, s.err
}

func (s *catalogStub) ListMyCourses(_ context.Context, studentID int64) ([]models.EnrolledCourse, error) {
	s.studentID = studentID
	return []models.EnrolledCourse{
		{ID: 1, Name: "Algebra", Credits: 4, InstructorName: "Ines", IsEnrolled: true, ClassmateNames: []string{"Tomás"}},
		{ID: 3, Name: "Chemistry", Credits: 3, InstructorName: "Iris", IsEnrolled: true},
	}, s.err
}

type exportStub struct {
	format string
	err    error
}

func (s *exportStub) StudyLoad(_ context.Context, _ int64, format string) (*service.ExportFile, error) {
	s.format = format
	if s.err != nil {
		return nil, s.err
	}
	return &service.ExportFile{Filename: "study-load-7.csv", ContentType: "text/csv", Content: []byte("Course\n")}, nil
}

func TestCourseHandlerList(t *testing.T) {
	catalog := &catalogStub{}
	h := NewCourseHandler(catalog, &exportStub{})

	c, rec := newContext(http.MethodGet, "/courses", "")
	authenticate(c, 7)
	h.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), catalog.studentID)
	env := decode(t, rec)
	assert.Equal(t, float64(2), env.Meta["total"])
	var listings []models.CourseListing
	require.NoError(t, json.Unmarshal(env.Data, &listings))
	assert.Equal(t, "Biology", listings[0].Name)
	assert.True(t, listings[1].IsEnrolled)
}

func TestCourseHandlerRequiresStudent(t *testing.T) {
	h := NewCourseHandler(&catalogStub{}, &exportStub{})

	c, rec := newContext(http.MethodGet, "/courses", "")
	h.List(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCourseHandlerMine(t *testing.T) {
	h := NewCourseHandler(&catalogStub{}, &exportStub{})

	c, rec := newContext(http.MethodGet, "/courses/mine", "")
	authenticate(c, 7)
	h.Mine(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, float64(7), env.Meta["credits"])
	assert.Contains(t, string(env.Data), `"classmate_names":["Tomás"]`)
}

func TestCourseHandlerMinePropagatesErrors(t *testing.T) {
	h := NewCourseHandler(&catalogStub{err: appErrors.ErrQuery}, &exportStub{})

	c, rec := newContext(http.MethodGet, "/courses/mine", "")
	authenticate(c, 7)
	h.Mine(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, appErrors.ErrQuery.Code, decode(t, rec).Error.Code)
}

func TestCourseHandlerExport(t *testing.T) {
	exports := &exportStub{}
	h := NewCourseHandler(&catalogStub{}, exports)

	c, rec := newContext(http.MethodGet, "/courses/mine/export", "")
	authenticate(c, 7)
	h.Export(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "csv", exports.format)
	assert.Equal(t, `attachment; filename="study-load-7.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Course\n", rec.Body.String())

	failing := NewCourseHandler(&catalogStub{}, &exportStub{err: appErrors.Clone(appErrors.ErrValidation, "unsupported export format")})
	c, rec = newContext(http.MethodGet, "/courses/mine/export?format=xlsx", "")
	authenticate(c, 7)
	failing.Export(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type enrollmentStub struct {
	studentID, courseID int64
	err                 error
}

func (s *enrollmentStub) Enroll(_ context.Context, studentID, courseID int64) (*models.StudentCourse, error) {
	s.studentID, s.courseID = studentID, courseID
	if s.err != nil {
		return nil, s.err
	}
	return &models.StudentCourse{ID: 11, StudentID: studentID, CourseID: courseID, InstructorID: 5}, nil
}

func (s *enrollmentStub) Cancel(_ context.Context, studentID, courseID int64) error {
	s.studentID, s.courseID = studentID, courseID
	return s.err
}

func TestEnrollmentHandlerEnroll(t *testing.T) {
	stub := &enrollmentStub{}
	h := NewEnrollmentHandler(stub)

	c, rec := newContext(http.MethodPost, "/enrollments", `{"course_id":3}`)
	authenticate(c, 7)
	h.Enroll(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int64(7), stub.studentID)
	assert.Equal(t, int64(3), stub.courseID)
	assert.Contains(t, string(decode(t, rec).Data), `"instructor_id":5`)
}

func TestEnrollmentHandlerEnrollRejectsBadPayload(t *testing.T) {
	h := NewEnrollmentHandler(&enrollmentStub{})

	for _, body := range []string{`{}`, `{"course_id":0}`, `{"course_id":"x"}`} {
		c, rec := newContext(http.MethodPost, "/enrollments", body)
		authenticate(c, 7)
		h.Enroll(c)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestEnrollmentHandlerEnrollRuleViolation(t *testing.T) {
	h := NewEnrollmentHandler(&enrollmentStub{err: appErrors.Clone(appErrors.ErrValidation, "instructor conflict")})

	c, rec := newContext(http.MethodPost, "/enrollments", `{"course_id":3}`)
	authenticate(c, 7)
	h.Enroll(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "instructor conflict", decode(t, rec).Error.Message)
}

func TestEnrollmentHandlerCancel(t *testing.T) {
	stub := &enrollmentStub{}
	h := NewEnrollmentHandler(stub)

	c, rec := newContext(http.MethodDelete, "/enrollments/3", "")
	c.Params = gin.Params{{Key: "courseId", Value: "3"}}
	authenticate(c, 7)
	h.Cancel(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, int64(3), stub.courseID)

	c, rec = newContext(http.MethodDelete, "/enrollments/abc", "")
	c.Params = gin.Params{{Key: "courseId", Value: "abc"}}
	authenticate(c, 7)
	h.Cancel(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type pingStub struct{ err error }

func (p pingStub) PingContext(context.Context) error { return p.err }

func TestMetricsHandlerProbes(t *testing.T) {
	h := NewMetricsHandler(service.NewMetricsService(), pingStub{}, nil)

	c, rec := newContext(http.MethodGet, "/health", "")
	h.Health(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newContext(http.MethodGet, "/ready", "")
	h.Ready(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	core, logs := observer.New(zap.WarnLevel)
	down := NewMetricsHandler(nil, pingStub{err: errors.New("dial tcp 10.0.0.5:5432: connection refused")}, zap.New(core))
	c, rec = newContext(http.MethodGet, "/ready", "")
	down.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
	require.Equal(t, 1, logs.FilterMessage("readiness check failed").Len())

	c, rec = newContext(http.MethodGet, "/metrics", "")
	h.Prometheus(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goroutines_total")
}
