// Package container wires the service-center workflow: it builds every
// component in dependency order and tears them down in reverse.
package container

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/service-workflow/internal/application/dispatcher"
	"github.com/garyjia/service-workflow/internal/application/port"
	"github.com/garyjia/service-workflow/internal/application/service"
	"github.com/garyjia/service-workflow/internal/application/workflow"
	"github.com/garyjia/service-workflow/internal/config"
	"github.com/garyjia/service-workflow/internal/domain/event"
	"github.com/garyjia/service-workflow/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/service-workflow/internal/infrastructure/worker"
	httpiface "github.com/garyjia/service-workflow/internal/interfaces/http"
	"github.com/garyjia/service-workflow/pkg/database"
)

// Container manages all application dependencies and lifecycle.
type Container struct {
	config *config.Config
	logger *zap.Logger

	// Data
	database     *database.DB
	db           *sqlite.DB
	repositories *RepositoryBundle

	// External
	external *ExternalBundle

	// Application
	dispatcher   dispatcher.Dispatcher
	orchestrator workflow.Orchestrator
	services     *ServiceBundle

	// Background
	workers *worker.Manager

	// Interfaces
	server *httpiface.Server

	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	JobCards       port.JobCardRepository
	Quotations     port.QuotationRepository
	Appointments   port.AppointmentRepository
	PartsRequests  port.PartsRequestRepository
	Leads          port.LeadRepository
	History        port.HistoryRepository
	ServiceCenters port.ServiceCenterRepository
	Staff          port.StaffRepository
	Notifications  port.NotificationRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Workflow  service.WorkflowService
	Directory service.DirectoryService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components in dependency order:
// 1. Database, migrations and repositories
// 2. Document storage and WhatsApp adapters
// 3. Effect dispatcher and orchestrator
// 4. Application services
// 5. Background workers
// 6. HTTP server
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	external, err := ProvideExternal(c.config, c.repositories, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize external adapters: %w", err)
	}
	c.external = external
	c.logger.Info("External adapters initialized")

	c.dispatcher, err = ProvideDispatcher(&c.config.Workflow, c.external.Notifier, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}
	c.orchestrator = ProvideOrchestrator(&c.config.Workflow)
	c.logger.Info("Dispatcher and orchestrator initialized")

	c.services, err = ProvideServices(&ServiceDeps{
		Repos:        c.repositories,
		TxManager:    c.db,
		Orchestrator: c.orchestrator,
		External:     c.external,
		Dispatcher:   c.dispatcher,
		WorkflowCfg:  &c.config.Workflow,
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	c.workers, err = ProvideWorkers(&WorkerDeps{
		SQLDB:       c.database.DB,
		Repos:       c.repositories,
		Notifier:    c.external.Notifier,
		WorkflowCfg: &c.config.Workflow,
		Logger:      c.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize workers: %w", err)
	}
	if err := c.workers.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	c.logger.Info("Workers started", zap.Int("count", c.workers.Count()))

	c.server, err = ProvideHTTPServer(c.config, c.services, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize http server: %w", err)
	}

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

func (c *Container) initDatabase() error {
	bundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.database = bundle.Database
	c.db = bundle.TransactionMgr

	repos, err := ProvideRepositories(c.database.DB, c.logger)
	if err != nil {
		_ = c.database.Close()
		return err
	}
	c.repositories = repos
	return nil
}

// Close shuts components down in reverse order. Background effects are
// drained before the database closes.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	if c.server != nil {
		if err := c.server.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop http server: %w", err))
		}
	}

	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		}
	}

	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	if c.database != nil {
		if err := c.database.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health() *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	check := func(name string, healthy bool, message string) {
		status.Components[name] = ComponentHealth{Healthy: healthy, Message: message}
		if !healthy {
			status.Overall = false
		}
	}

	switch {
	case c.database == nil:
		check("database", false, "not initialized")
	default:
		if err := c.database.Ping(); err != nil {
			check("database", false, fmt.Sprintf("ping failed: %v", err))
		} else {
			check("database", true, "")
		}
	}

	if c.dispatcher != nil {
		handlers := c.dispatcher.Handlers(event.TypeNotificationSend)
		check("dispatcher", len(handlers) > 0, fmt.Sprintf("notification handlers: %d", len(handlers)))
	} else {
		check("dispatcher", false, "not initialized")
	}

	if c.workers != nil {
		check("workers", c.workers.IsRunning(), strings.Join(c.workers.Names(), ","))
	} else {
		check("workers", false, "not initialized")
	}

	check("repositories", c.repositories != nil, "")
	check("services", c.services != nil, "")

	return status
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Dispatcher returns the effect dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Server returns the HTTP server.
func (c *Container) Server() *httpiface.Server {
	return c.server
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *config.Config {
	return c.config
}
