package dispatcher

import (
	"context"
	"fmt"

	"github.com/garyjia/service-workflow/internal/domain/event"
)

// Handler executes one effect
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo describes a registered handler
type HandlerInfo struct {
	Name      string
	EventType event.Type
	Handler   Handler
}

// HandlerError records the handler that failed an effect
type HandlerError struct {
	Handler   string
	EventType event.Type
	EventID   string
	Err       error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s failed on %s %s: %v", e.Handler, e.EventType, e.EventID, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
