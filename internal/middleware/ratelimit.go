package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/enrollment-api/pkg/errors"
	"github.com/noah-isme/enrollment-api/pkg/ratelimit"
	"github.com/noah-isme/enrollment-api/pkg/response"
)

// maxLoginBody bounds how much of the login body is buffered to read the email.
const maxLoginBody = 8 << 10

// ThrottleRecorder counts throttled login attempts.
type ThrottleRecorder interface {
	RecordLoginThrottled()
}

// LoginThrottle limits login attempts per client IP and email. Limiter
// failures let the request through.
func LoginThrottle(limiter ratelimit.Limiter, recorder ThrottleRecorder, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		key := "login:" + c.ClientIP() + ":" + loginEmail(c)
		info, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warn("login rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		setRateLimitHeaders(c, info)
		if !info.Allowed {
			if recorder != nil {
				recorder.RecordLoginThrottled()
			}
			response.Error(c, appErrors.Clone(appErrors.ErrTooManyRequests, "too many login attempts, try again later"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// loginEmail peeks at the JSON body and restores it for the handler.
func loginEmail(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxLoginBody))
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), c.Request.Body))

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(payload.Email))
}

func setRateLimitHeaders(c *gin.Context, info ratelimit.Info) {
	h := c.Writer.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(info.Reset.Unix(), 10))
	if !info.Allowed {
		wait := time.Until(info.Reset)
		if wait < time.Second {
			wait = time.Second
		}
		h.Set("Retry-After", strconv.Itoa(int(wait.Round(time.Second).Seconds())))
	}
}
