package handler

import (
	"time"

	"apiquery/internal/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// NewRouter wires the resource API under mount (e.g. "/prod"). CORS covers
// the read-only resource routes only; /connect stays same-origin.
func NewRouter(log logr.Logger, mount string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(log))

	r.GET("/ping", Ping)
	r.POST("/connect", ConnectHandler)

	api := r.Group(mount, cors.Default())
	for _, path := range []string{"/query", "/:table", "/:table/:id"} {
		// preflights are answered by the cors middleware before this runs
		api.OPTIONS(path, func(c *gin.Context) {})
	}
	api.GET("/query", RawQueryHandler)
	api.GET("/:table", ListRowsHandler)
	api.GET("/:table/:id", GetRowHandler)

	return r
}

// RequestLogger tags each request with an id, puts a request-scoped logger in
// its context and logs the outcome.
func RequestLogger(log logr.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)

		reqLog := log.WithValues("request_id", id)
		c.Request = c.Request.WithContext(logger.WithLogger(c.Request.Context(), reqLog))

		start := time.Now()
		c.Next()

		reqLog.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}
