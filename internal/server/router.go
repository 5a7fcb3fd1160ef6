package server

import (
	"bytes"
	"io"
	"strings"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aayushkdev/vellorun-backend/internal/app/middleware"
	"github.com/aayushkdev/vellorun-backend/internal/routes"
)

// maxLoggedBody caps how much of a JSON request body goes into access logs.
const maxLoggedBody = 2048

// SetupRouter configures and returns the Gin router with all middleware and routes
func SetupRouter(deps routes.Dependencies) *gin.Engine {
	if deps.Config.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.RequestIDMiddleware())
	r.Use(ginzap.GinzapWithConfig(deps.Logger, &ginzap.Config{
		UTC:        true,
		TimeFormat: time.RFC3339,
		Context:    zapContextFunc(),
		SkipPaths:  []string{"/health"},
	}))
	r.Use(ginzap.RecoveryWithZap(deps.Logger, true))
	r.Use(middleware.OTELGinMiddleware(deps.Config.Observability.ServiceName))
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.SecurityMiddleware())

	routes.Setup(r, deps)

	return r
}

// zapContextFunc returns the Zap context function for logging
func zapContextFunc() ginzap.Fn {
	return func(c *gin.Context) []zapcore.Field {
		fields := []zapcore.Field{}

		if requestID := c.Writer.Header().Get(middleware.RequestIDHeader); requestID != "" {
			fields = append(fields, zap.String("request_id", requestID))
		}

		if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().IsValid() {
			fields = append(fields,
				zap.String("trace_id", span.SpanContext().TraceID().String()),
				zap.String("span_id", span.SpanContext().SpanID().String()),
			)
		}

		// Request body (reads and restores; JSON only)
		if c.Request.Body != nil && strings.HasPrefix(c.ContentType(), "application/json") {
			var buf bytes.Buffer
			body, _ := io.ReadAll(io.TeeReader(c.Request.Body, &buf))
			c.Request.Body = io.NopCloser(&buf)
			if len(body) > maxLoggedBody {
				body = body[:maxLoggedBody]
			}
			if len(body) > 0 {
				fields = append(fields, zap.ByteString("body", body))
			}
		}

		return fields
	}
}
