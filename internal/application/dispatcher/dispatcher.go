package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/garyjia/service-workflow/internal/domain/event"
)

// ErrClosed is returned by Dispatch after Close
var ErrClosed = errors.New("dispatcher is closed")

// Dispatcher executes post-commit effects through named handlers
type Dispatcher interface {
	// Subscribe registers a handler for an effect type; names must be unique per type
	Subscribe(eventType event.Type, name string, handler Handler) error

	// Dispatch runs every handler for evt in registration order. A failing
	// handler does not stop the others; all failures are joined.
	Dispatch(ctx context.Context, evt *event.Event) error

	// DispatchAsync runs the handlers in the background; failures are logged
	DispatchAsync(ctx context.Context, evt *event.Event)

	// Handlers lists the handler names registered for an effect type
	Handlers(eventType event.Type) []string

	// Close stops accepting effects and waits for background handlers
	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type effectDispatcher struct {
	mu       sync.RWMutex
	handlers map[event.Type][]HandlerInfo
	logger   Logger

	attempts int
	backoff  time.Duration
	timeout  time.Duration

	wg     sync.WaitGroup
	closed atomic.Bool
}

// Option configures the dispatcher
type Option func(*effectDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *effectDispatcher) {
		d.logger = logger
	}
}

// WithRetry retries a failing handler up to attempts times in total, waiting
// backoff between tries
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(d *effectDispatcher) {
		if attempts > 0 {
			d.attempts = attempts
		}
		d.backoff = backoff
	}
}

// WithHandlerTimeout bounds each handler call
func WithHandlerTimeout(timeout time.Duration) Option {
	return func(d *effectDispatcher) {
		d.timeout = timeout
	}
}

// NewDispatcher creates a new effect dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &effectDispatcher{
		handlers: make(map[event.Type][]HandlerInfo),
		attempts: 1,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *effectDispatcher) Subscribe(eventType event.Type, name string, handler Handler) error {
	if !eventType.IsValid() {
		return fmt.Errorf("unknown effect type %q", eventType)
	}
	if handler == nil {
		return fmt.Errorf("handler %s is nil", name)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, h := range d.handlers[eventType] {
		if h.Name == name {
			return fmt.Errorf("handler %s already registered for %s", name, eventType)
		}
	}
	d.handlers[eventType] = append(d.handlers[eventType], HandlerInfo{
		Name:      name,
		EventType: eventType,
		Handler:   handler,
	})

	d.logInfo("Effect handler registered", "event_type", eventType, "handler_name", name)
	return nil
}

func (d *effectDispatcher) snapshot(eventType event.Type) []HandlerInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]HandlerInfo(nil), d.handlers[eventType]...)
}

func (d *effectDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	if d.closed.Load() {
		return ErrClosed
	}

	handlers := d.snapshot(evt.Type)
	d.logInfo("Dispatching effect",
		"event_type", evt.Type,
		"event_id", evt.ID,
		"correlation_id", evt.CorrelationID,
		"handler_count", len(handlers),
	)

	var errs []error
	for _, h := range handlers {
		if err := d.run(ctx, evt, h); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *effectDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	if d.closed.Load() {
		d.logError("Effect dropped, dispatcher is closed", "event_type", evt.Type, "event_id", evt.ID)
		return
	}

	// Detach from the request so handlers outlive it.
	bg := context.WithoutCancel(ctx)
	for _, h := range d.snapshot(evt.Type) {
		d.wg.Add(1)
		go func(h HandlerInfo) {
			defer d.wg.Done()
			_ = d.run(bg, evt, h)
		}(h)
	}
}

// run executes h with retries; the last failure is logged and returned
func (d *effectDispatcher) run(ctx context.Context, evt *event.Event, h HandlerInfo) error {
	var err error
retry:
	for attempt := 1; ; attempt++ {
		if err = d.safeExecute(ctx, evt, h); err == nil {
			return nil
		}
		if attempt >= d.attempts {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break retry
		case <-time.After(d.backoff):
		}
	}

	d.logError("Effect handler failed",
		"event_type", evt.Type,
		"event_id", evt.ID,
		"handler_name", h.Name,
		"attempts", d.attempts,
		"error", err,
	)
	return &HandlerError{Handler: h.Name, EventType: evt.Type, EventID: evt.ID, Err: err}
}

// safeExecute runs a handler with panic recovery
func (d *effectDispatcher) safeExecute(ctx context.Context, evt *event.Event, h HandlerInfo) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	return h.Handler(ctx, evt)
}

func (d *effectDispatcher) Handlers(eventType event.Type) []string {
	handlers := d.snapshot(eventType)
	names := make([]string, len(handlers))
	for i, h := range handlers {
		names[i] = h.Name
	}
	return names
}

func (d *effectDispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("dispatcher already closed")
	}
	d.logInfo("Closing dispatcher, waiting for async handlers")
	d.wg.Wait()
	d.logInfo("Dispatcher closed")
	return nil
}

func (d *effectDispatcher) logInfo(msg string, kv ...interface{}) {
	if d.logger != nil {
		d.logger.Info(msg, kv...)
	}
}

func (d *effectDispatcher) logError(msg string, kv ...interface{}) {
	if d.logger != nil {
		d.logger.Error(msg, kv...)
	}
}
