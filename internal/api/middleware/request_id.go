package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	applogger "github.com/swaaagray/CvSU-SAOMS-sub006/pkg/logger"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	// longer client ids are replaced to keep log lines bounded
	requestIDMaxLen = 64
)

// RequestID correlates an admin trigger with the run it starts. The id is taken from
// X-Request-ID or generated, echoed back, and carried on the request context so the
// run's "pipeline run finished" line logs it next to run_id.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if len(rid) > requestIDMaxLen {
			rid = ""
		}
		if rid == "" {
			rid = uuid.NewString()
		}

		c.Set(requestIDKey, rid)
		c.Request = c.Request.WithContext(applogger.WithRequestID(c.Request.Context(), rid))
		c.Header(requestIDHeader, rid)

		c.Next()
	}
}
