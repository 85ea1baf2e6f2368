package whatsapp

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/service-workflow/internal/application/port"
	"go.uber.org/zap"
)

// RecipientCustomer is the recipient recorded for customer-channel messages
const RecipientCustomer = "customer"

// Notifier implements port.Notifier. Every message becomes one outbox row
// per recipient carrying its chat link; staff recipients are resolved to
// their phone numbers first.
type Notifier struct {
	staff    port.StaffRepository
	records  port.NotificationRepository
	resolver *ChannelResolver
	logger   *zap.Logger
}

// NewNotifier creates a new notifier
func NewNotifier(staff port.StaffRepository, records port.NotificationRepository, resolver *ChannelResolver, logger *zap.Logger) *Notifier {
	return &Notifier{
		staff:    staff,
		records:  records,
		resolver: resolver,
		logger:   logger,
	}
}

// Notify records the message for the customer channel and each staff
// recipient. Recipients that cannot be reached are recorded as failed and
// reported in the returned error as *port.UnreachableError.
func (n *Notifier) Notify(ctx context.Context, note *port.Notification) error {
	var errs []error

	if note.Channel != nil {
		rec := n.newRecord(note, RecipientCustomer)
		rec.Channel = note.Channel.Kind
		rec.Address = note.Channel.Address
		rec.Link = note.Channel.Link
		if err := n.save(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}

	for _, userID := range note.Recipients {
		rec := n.newRecord(note, userID)
		if ch, err := n.staffChannel(ctx, userID, note.Message); err != nil {
			rec.Status = port.NotificationFailed
			rec.Error = err.Error()
			errs = append(errs, &port.UnreachableError{Recipient: userID, Err: err})
		} else {
			rec.Address = ch.Address
			rec.Link = ch.Link
		}
		if err := n.save(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		n.logger.Warn("Notification partially delivered",
			zap.String("template", note.Template),
			zap.String("entity_id", note.EntityID),
			zap.Error(err))
		return err
	}

	n.logger.Info("Notification recorded",
		zap.String("template", note.Template),
		zap.String("entity_id", note.EntityID),
		zap.Int("recipients", len(note.Recipients)),
		zap.Bool("customer", note.Channel != nil))
	return nil
}

func (n *Notifier) staffChannel(ctx context.Context, userID, message string) (*port.Channel, error) {
	member, err := n.staff.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup staff: %w", err)
	}
	if member.Phone == "" {
		return nil, fmt.Errorf("%w: no phone on file", ErrInvalidPhone)
	}
	return n.resolver.Resolve(member.Phone, message)
}

func (n *Notifier) newRecord(note *port.Notification, recipient string) *port.NotificationRecord {
	return &port.NotificationRecord{
		Template:   note.Template,
		EntityType: note.EntityType,
		EntityID:   note.EntityID,
		Recipient:  recipient,
		Channel:    port.ChannelWhatsApp,
		Status:     port.NotificationSent,
	}
}

func (n *Notifier) save(ctx context.Context, rec *port.NotificationRecord) error {
	if err := n.records.Create(ctx, rec); err != nil {
		n.logger.Error("Failed to record notification",
			zap.String("recipient", rec.Recipient),
			zap.Error(err))
		return fmt.Errorf("record notification for %s: %w", rec.Recipient, err)
	}
	return nil
}

var _ port.Notifier = (*Notifier)(nil)
