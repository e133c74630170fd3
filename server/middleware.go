package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hupe1980/genohdc"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

var errRateLimited = errors.New("rate limit exceeded")

func requestLogger(c *gin.Context, l *genohdc.Logger) *genohdc.Logger {
	if id := c.GetString(requestIDKey); id != "" {
		return l.WithRequestID(id)
	}
	return l
}

// requestID propagates X-Request-ID, generating one when absent.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		d := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if s.metrics != nil {
			s.metrics.ObserveRequest(route, strconv.Itoa(c.Writer.Status()), d)
		}
		requestLogger(c, s.logger).DebugContext(c.Request.Context(), "request",
			"method", c.Request.Method,
			"route", route,
			"status", c.Writer.Status(),
			"duration", d,
		)
	}
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter != nil && !s.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error:     errRateLimited.Error(),
				RequestID: c.GetString(requestIDKey),
			})
			return
		}
		c.Next()
	}
}

func (s *Server) limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.maxBodyBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBodyBytes)
		}
		c.Next()
	}
}
