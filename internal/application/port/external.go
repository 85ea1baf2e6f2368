package port

import (
	"context"
	"errors"
	"time"

	"github.com/garyjia/service-workflow/internal/domain/entity"
)

// Document is a generated customer-facing document
type Document struct {
	FileName string
	Path     string
	URL      string
}

// DocumentGenerator renders a quotation, proforma invoice or check-in slip
type DocumentGenerator interface {
	Generate(ctx context.Context, q *entity.Quotation, sc *entity.ServiceCenter) (*Document, error)
}

// Channel kinds
const (
	ChannelWhatsApp = "whatsapp"
)

// Channel is a resolved delivery address for a customer
type Channel struct {
	Kind    string `json:"kind"`
	Address string `json:"address"`
	Link    string `json:"link,omitempty"`
}

// ChannelResolver turns a customer phone number into a delivery channel
type ChannelResolver interface {
	Resolve(phone, message string) (*Channel, error)
}

// Notification is one outbound message. Recipients are staff user ids;
// Channel is set for customer messages.
type Notification struct {
	Template   string
	EntityType entity.EntityType
	EntityID   string
	Recipients []string
	Channel    *Channel
	Message    string
}

// Notifier delivers notifications
type Notifier interface {
	Notify(ctx context.Context, n *Notification) error
}

// UnreachableError reports a recipient with no usable channel. The delivery
// was recorded as failed; retrying will not help until the staff record changes.
type UnreachableError struct {
	Recipient string
	Err       error
}

func (e *UnreachableError) Error() string {
	return "recipient " + e.Recipient + " unreachable: " + e.Err.Error()
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// OnlyUnreachable reports whether every error joined in err is an
// UnreachableError
func OnlyUnreachable(err error) bool {
	if err == nil {
		return false
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if !OnlyUnreachable(e) {
				return false
			}
		}
		return true
	}
	var u *UnreachableError
	return errors.As(err, &u)
}

// NotificationRecord is a persisted delivery attempt
type NotificationRecord struct {
	ID         int64
	Template   string
	EntityType entity.EntityType
	EntityID   string
	Recipient  string
	Channel    string
	Address    string
	Link       string
	Status     string
	Error      string
	CreatedAt  time.Time
}

// Notification record statuses
const (
	NotificationSent   = "sent"
	NotificationFailed = "failed"
)

// NotificationRepository stores delivery attempts
type NotificationRepository interface {
	Create(ctx context.Context, rec *NotificationRecord) error
	ListByEntity(ctx context.Context, entityType entity.EntityType, entityID string) ([]*NotificationRecord, error)
}
