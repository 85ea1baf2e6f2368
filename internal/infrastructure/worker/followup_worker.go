package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/service-workflow/internal/application/port"
	"github.com/garyjia/service-workflow/internal/domain/entity"
	"github.com/garyjia/service-workflow/internal/domain/event"
)

// FollowUpWorkerConfig holds configuration for the lead follow-up worker
type FollowUpWorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	Timeout      time.Duration
}

// DefaultFollowUpWorkerConfig returns default configuration
func DefaultFollowUpWorkerConfig() FollowUpWorkerConfig {
	return FollowUpWorkerConfig{
		PollInterval: time.Minute,
		BatchSize:    20,
		Timeout:      30 * time.Second,
	}
}

// FollowUpWorker reminds service advisors about leads whose follow-up date
// has passed. Each due lead is reminded once; its follow-up date is cleared
// after the reminder is handed to the notifier. Advisors without a usable
// phone do not hold the lead back.
type FollowUpWorker struct {
	config FollowUpWorkerConfig

	leads      port.LeadFollowUpRepository
	quotations port.QuotationRepository
	staff      port.StaffRepository
	notifier   port.Notifier
	now        func() time.Time
	logger     *zap.Logger

	mu          sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}
	isRunning   bool
	remindedCnt int
	failedCnt   int
}

// NewFollowUpWorker creates a new follow-up worker
func NewFollowUpWorker(
	config FollowUpWorkerConfig,
	leads port.LeadFollowUpRepository,
	quotations port.QuotationRepository,
	staff port.StaffRepository,
	notifier port.Notifier,
	logger *zap.Logger,
) *FollowUpWorker {
	def := DefaultFollowUpWorkerConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	return &FollowUpWorker{
		config:     config,
		leads:      leads,
		quotations: quotations,
		staff:      staff,
		notifier:   notifier,
		now:        time.Now,
		logger:     logger,
	}
}

// Name returns the worker name for identification
func (w *FollowUpWorker) Name() string {
	return "FollowUpWorker"
}

// Start begins the polling loop
func (w *FollowUpWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isRunning {
		return fmt.Errorf("follow-up worker already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.isRunning = true

	w.logger.Info("FollowUpWorker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize))

	go w.pollLoop(loopCtx, w.done)
	return nil
}

// Stop cancels the loop and waits for the in-flight batch to finish
func (w *FollowUpWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done

	w.mu.Lock()
	w.logger.Info("FollowUpWorker stopped",
		zap.Int("reminded", w.remindedCnt),
		zap.Int("failed", w.failedCnt))
	w.mu.Unlock()
	return nil
}

func (w *FollowUpWorker) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("Failed to process due follow-ups", zap.Error(err))
			}
		}
	}
}

// RunOnce reminds every lead due now, up to one batch, and returns how many
// reminders were sent
func (w *FollowUpWorker) RunOnce(ctx context.Context) (int, error) {
	now := w.now()
	due, err := w.leads.ListDueForFollowUp(ctx, now, w.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list due leads: %w", err)
	}

	sent := 0
	for _, lead := range due {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if err := w.remind(ctx, lead, now); err != nil {
			w.logger.Warn("Failed to send follow-up reminder",
				zap.String("lead_id", lead.ID),
				zap.String("quotation_id", lead.QuotationID),
				zap.Error(err))
			w.mu.Lock()
			w.failedCnt++
			w.mu.Unlock()
			continue
		}
		sent++
		w.mu.Lock()
		w.remindedCnt++
		w.mu.Unlock()
	}
	return sent, nil
}

func (w *FollowUpWorker) remind(ctx context.Context, lead *entity.Lead, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	advisors, err := w.staff.ListActiveByRole(ctx, lead.ServiceCenterID, entity.RoleServiceAdvisor)
	if err != nil {
		return fmt.Errorf("resolve advisors: %w", err)
	}
	recipients := make([]string, 0, len(advisors))
	for _, a := range advisors {
		recipients = append(recipients, a.ID)
	}

	reference := lead.QuotationID
	customer := lead.CustomerID
	if q, err := w.quotations.GetByID(ctx, lead.QuotationID); err == nil {
		reference = q.QuotationNumber
		if q.CustomerName != "" {
			customer = q.CustomerName
		}
	}

	if len(recipients) > 0 {
		note := &port.Notification{
			Template:   event.TemplateLeadFollowUp,
			EntityType: entity.EntityLead,
			EntityID:   lead.ID,
			Recipients: recipients,
			Message: fmt.Sprintf("Follow-up due: %s rejected %s. Reach out about vehicle %s.",
				customer, reference, lead.VehicleID),
		}
		if err := w.notifier.Notify(ctx, note); err != nil {
			if !port.OnlyUnreachable(err) {
				return fmt.Errorf("notify: %w", err)
			}
			w.logger.Warn("Some advisors have no usable phone",
				zap.String("lead_id", lead.ID),
				zap.Error(err))
		}
	} else {
		w.logger.Info("No active service advisors for follow-up",
			zap.String("lead_id", lead.ID),
			zap.String("service_center_id", lead.ServiceCenterID))
	}

	err = w.leads.ClearFollowUp(ctx, lead.ID, *lead.FollowUpDate, now)
	if errors.Is(err, port.ErrVersionConflict) {
		// rescheduled by a workflow transition while we were sending
		return nil
	}
	return err
}
