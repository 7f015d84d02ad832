package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"persona-probe/internal/service"
)

// NewRouter configura el router de Gin con middlewares y las rutas de reportes.
func NewRouter(logger *zap.Logger, runH *RunHandler, jwtSvc *service.JWTService) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	runs := r.Group("/runs", JWTAuthMiddleware(jwtSvc))
	runs.GET("", runH.ListRuns)
	runs.GET("/:id", runH.GetRun)
	runs.GET("/:id/confusion", runH.GetConfusion)
	runs.GET("/:id/distributions", runH.GetDistributions)
	runs.GET("/:id/similarity", runH.GetSimilarity)
	runs.GET("/:id/generations", runH.ListGenerations)
	runs.GET("/:id/generations/:trial/nearest", runH.GetNearest)

	return r
}

// zapLoggerMiddleware loguea cada request con la ruta de gin y el lector autenticado.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		}
		if sub := c.GetString(readerSubjectKey); sub != "" {
			fields = append(fields, zap.String("reader", sub))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request", fields...)
			return
		}
		logger.Info("request", fields...)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
