package container

import (
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/service-workflow/internal/application/dispatcher"
	"github.com/garyjia/service-workflow/internal/application/port"
	"github.com/garyjia/service-workflow/internal/application/service"
	"github.com/garyjia/service-workflow/internal/application/workflow"
	"github.com/garyjia/service-workflow/internal/config"
	"github.com/garyjia/service-workflow/internal/domain/event"
	"github.com/garyjia/service-workflow/internal/infrastructure/external/document"
	"github.com/garyjia/service-workflow/internal/infrastructure/external/whatsapp"
	"github.com/garyjia/service-workflow/internal/infrastructure/persistence/repository"
	"github.com/garyjia/service-workflow/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/service-workflow/internal/infrastructure/storage"
	"github.com/garyjia/service-workflow/internal/infrastructure/worker"
	httpiface "github.com/garyjia/service-workflow/internal/interfaces/http"
	"github.com/garyjia/service-workflow/migrations"
	"github.com/garyjia/service-workflow/pkg/database"
	"github.com/garyjia/service-workflow/pkg/utils"
)

const notifierHandlerName = "whatsapp_notifier"

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Database       *database.DB
	TransactionMgr *sqlite.DB
}

// ExternalBundle holds the adapters the workflow reaches after commit.
type ExternalBundle struct {
	Store     port.DocumentStore
	Documents port.DocumentGenerator
	Channels  *whatsapp.ChannelResolver
	Notifier  port.Notifier
}

// ProvideDatabase opens the database and applies the embedded migrations.
func ProvideDatabase(cfg *config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	if _, err := database.NewMigrator(db, logger).Run(migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		Database:       db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		JobCards:       repository.NewJobCardRepository(sqlDB, logger),
		Quotations:     repository.NewQuotationRepository(sqlDB, logger),
		Appointments:   repository.NewAppointmentRepository(sqlDB, logger),
		PartsRequests:  repository.NewPartsRequestRepository(sqlDB, logger),
		Leads:          repository.NewLeadRepository(sqlDB, logger),
		History:        repository.NewHistoryRepository(sqlDB, logger),
		ServiceCenters: repository.NewServiceCenterRepository(sqlDB, logger),
		Staff:          repository.NewStaffRepository(sqlDB, logger),
		Notifications:  repository.NewNotificationRepository(sqlDB, logger),
	}, nil
}

// ProvideExternal creates document storage, the document generator and the
// WhatsApp channel adapters.
func ProvideExternal(cfg *config.Config, repos *RepositoryBundle, logger *zap.Logger) (*ExternalBundle, error) {
	if cfg == nil || repos == nil {
		return nil, fmt.Errorf("config and repositories are required")
	}

	store := storage.NewLocalDocumentStore(cfg.Documents.OutputDir, logger)
	baseURL := strings.TrimRight(cfg.Documents.BaseURL, "/")
	channels := whatsapp.NewChannelResolver(cfg.WhatsApp.DefaultRegion, cfg.WhatsApp.LinkBase)

	return &ExternalBundle{
		Store:     store,
		Documents: document.NewExcelGenerator(store, baseURL, cfg.Documents.CompanyName, logger),
		Channels:  channels,
		Notifier:  whatsapp.NewNotifier(repos.Staff, repos.Notifications, channels, logger),
	}, nil
}

// ProvideDispatcher creates the post-commit effect dispatcher and subscribes
// the notifier to notification effects.
func ProvideDispatcher(cfg *config.WorkflowConfig, notifier port.Notifier, logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("workflow config is required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}

	d := dispatcher.NewDispatcher(
		dispatcher.WithLogger(utils.NewKVLogger(logger.Named("dispatcher"))),
		dispatcher.WithRetry(cfg.EffectRetries+1, cfg.EffectBackoff),
		dispatcher.WithHandlerTimeout(cfg.EffectTimeout),
	)
	if err := d.Subscribe(event.TypeNotificationSend, notifierHandlerName, service.NotificationHandler(notifier)); err != nil {
		return nil, fmt.Errorf("failed to subscribe notifier: %w", err)
	}
	return d, nil
}

// ProvideOrchestrator creates the workflow orchestrator.
func ProvideOrchestrator(cfg *config.WorkflowConfig) workflow.Orchestrator {
	return workflow.NewOrchestrator(workflow.WithLeadFollowUpDays(cfg.LeadFollowUpDays))
}

// ServiceDeps contains dependencies for creating services.
type ServiceDeps struct {
	Repos        *RepositoryBundle
	TxManager    port.TransactionManager
	Orchestrator workflow.Orchestrator
	External     *ExternalBundle
	Dispatcher   dispatcher.Dispatcher
	WorkflowCfg  *config.WorkflowConfig
	Logger       *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil || deps.TxManager == nil || deps.Orchestrator == nil ||
		deps.External == nil || deps.Dispatcher == nil || deps.WorkflowCfg == nil {
		return nil, fmt.Errorf("incomplete service dependencies")
	}

	logger := utils.NewKVLogger(deps.Logger.Named("service"))
	r := deps.Repos

	wf := service.NewWorkflowService(
		service.Repositories{
			JobCards:       r.JobCards,
			Quotations:     r.Quotations,
			Appointments:   r.Appointments,
			PartsRequests:  r.PartsRequests,
			Leads:          r.Leads,
			History:        r.History,
			ServiceCenters: r.ServiceCenters,
		},
		deps.Orchestrator,
		deps.TxManager,
		service.NewManagerDirectory(r.Staff),
		deps.External.Documents,
		deps.External.Channels,
		deps.Dispatcher,
		service.Options{
			ConflictRetries:    deps.WorkflowCfg.ConflictRetries,
			AsyncNotifications: deps.WorkflowCfg.AsyncNotifications,
		},
		logger,
	)

	return &ServiceBundle{
		Workflow:  wf,
		Directory: service.NewDirectoryService(r.ServiceCenters, r.Staff, r.Appointments, logger),
	}, nil
}

// WorkerDeps contains dependencies for creating background workers.
type WorkerDeps struct {
	SQLDB       *sql.DB
	Repos       *RepositoryBundle
	Notifier    port.Notifier
	WorkflowCfg *config.WorkflowConfig
	Logger      *zap.Logger
}

// ProvideWorkers creates the background worker manager with the lead
// follow-up worker registered.
func ProvideWorkers(deps *WorkerDeps) (*worker.Manager, error) {
	if deps == nil || deps.SQLDB == nil || deps.Repos == nil || deps.Notifier == nil || deps.WorkflowCfg == nil {
		return nil, fmt.Errorf("incomplete worker dependencies")
	}

	followUps := worker.NewFollowUpWorker(
		worker.FollowUpWorkerConfig{
			PollInterval: deps.WorkflowCfg.FollowUpPollInterval,
			BatchSize:    deps.WorkflowCfg.FollowUpBatchSize,
			Timeout:      deps.WorkflowCfg.EffectTimeout,
		},
		repository.NewLeadFollowUpRepository(deps.SQLDB, deps.Logger),
		deps.Repos.Quotations,
		deps.Repos.Staff,
		deps.Notifier,
		deps.Logger.Named("followup"),
	)

	manager := worker.NewManager(deps.Logger)
	manager.Register(followUps)
	return manager, nil
}

// ProvideHTTPServer creates the API server.
func ProvideHTTPServer(cfg *config.Config, services *ServiceBundle, logger *zap.Logger) (*httpiface.Server, error) {
	if services == nil {
		return nil, fmt.Errorf("services are required")
	}

	auth := httpiface.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	return httpiface.NewServer(
		httpiface.ServerConfig{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			Mode:         cfg.Server.Mode,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			DocumentsDir: cfg.Documents.OutputDir,
		},
		services.Workflow,
		services.Directory,
		auth,
		utils.NewKVLogger(logger.Named("http")),
	), nil
}
