package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enrollment-api/internal/middleware"
	"github.com/noah-isme/enrollment-api/pkg/response"
)

// studentFromContext writes a 401 when no student is authenticated.
func studentFromContext(c *gin.Context) (int64, bool) {
	id, err := middleware.CurrentStudentID(c)
	if err != nil {
		response.Error(c, err)
		return 0, false
	}
	return id, true
}
