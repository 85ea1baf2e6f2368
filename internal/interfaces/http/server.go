// Package http exposes the workflow service over a JSON API. Handlers only
// translate requests into application service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/garyjia/service-workflow/internal/application/service"
	"github.com/garyjia/service-workflow/internal/domain/entity"
)

const requestIDHeader = "X-Request-ID"

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	Mode         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// DocumentsDir is served read-only under /documents when set
	DocumentsDir string
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		Mode:         gin.ReleaseMode,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	auth       *Authenticator
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config ServerConfig,
	workflowService service.WorkflowService,
	directoryService service.DirectoryService,
	auth *Authenticator,
	logger Logger,
) *Server {
	if config.Mode == "" {
		config.Mode = gin.ReleaseMode
	}
	gin.SetMode(config.Mode)

	server := &Server{
		config:   config,
		router:   gin.New(),
		handlers: NewHandlers(workflowService, directoryService, logger),
		auth:     auth,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(corsMiddleware())
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+requestIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// requestIDMiddleware echoes the caller's request id or assigns a new one
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
			"request_id", c.GetString(requestIDHeader),
		)
	}
}

func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.GET("/health", h.HealthCheck)
	if s.config.DocumentsDir != "" {
		s.router.StaticFS("/documents", gin.Dir(s.config.DocumentsDir, false))
	}

	api := s.router.Group("/api")
	api.Use(s.auth.Middleware())
	{
		// Directory
		api.POST("/service-centers", h.CreateServiceCenter)
		api.GET("/service-centers/:id", h.GetServiceCenter)
		api.POST("/staff", h.CreateStaff)
		api.POST("/appointments", h.CreateAppointment)
		api.GET("/appointments/:id", h.GetAppointment)
		api.POST("/appointments/:id/job-card", h.CreateJobCardFromAppointment)

		// Job cards
		api.POST("/job-cards", h.CreateJobCard)
		api.GET("/job-cards/:id", h.GetJobCard)
		api.PATCH("/job-cards/:id", h.UpdateJobCard)
		api.POST("/job-cards/:id/assign", h.AssignJobCard)
		api.POST("/job-cards/:id/start", h.StartJobCard)
		api.POST("/job-cards/:id/complete", h.CompleteJobCard)
		api.POST("/job-cards/:id/cancel", h.CancelJobCard)
		api.POST("/job-cards/:id/pass-to-manager", h.PassJobCardToManager)
		api.POST("/job-cards/:id/review", h.ReviewJobCard)
		api.GET("/job-cards/:id/history", h.HistoryHandler(entity.EntityJobCard))

		// Parts requests
		api.POST("/job-cards/:id/parts-requests", h.CreatePartsRequest)
		api.GET("/job-cards/:id/parts-requests", h.ListPartsRequests)
		api.POST("/parts-requests/:id/fulfill", h.FulfillPartsRequest)
		api.POST("/parts-requests/:id/cancel", h.CancelPartsRequest)
		api.GET("/parts-requests/:id/history", h.HistoryHandler(entity.EntityPartsRequest))

		// Quotations
		api.POST("/quotations", h.CreateQuotation)
		api.GET("/quotations/:id", h.GetQuotation)
		api.PATCH("/quotations/:id", h.UpdateQuotation)
		api.POST("/quotations/:id/send-to-customer", h.SendQuotationToCustomer)
		api.POST("/quotations/:id/customer-decision", h.RecordCustomerDecision)
		api.POST("/quotations/:id/send-to-manager", h.SendQuotationToManager)
		api.POST("/quotations/:id/manager-decision", h.RecordManagerDecision)
		api.GET("/quotations/:id/history", h.HistoryHandler(entity.EntityQuotation))
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}
	s.httpServer = nil

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
