package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/service-workflow/internal/application/dispatcher"
	"github.com/garyjia/service-workflow/internal/application/port"
	"github.com/garyjia/service-workflow/internal/application/workflow"
	"github.com/garyjia/service-workflow/internal/domain/event"
	domainwf "github.com/garyjia/service-workflow/internal/domain/workflow"
)

// afterCommit runs the document and notification effects of a committed
// result. Failures become warnings; the transition stands.
func (s *workflowServiceImpl) afterCommit(ctx context.Context, result *workflow.Result) (*Outcome, error) {
	out := &Outcome{Result: result}

	for _, e := range result.Effects {
		var err error
		switch e.Type {
		case event.TypeDocumentGenerate:
			err = s.generateDocument(ctx, out, e)
		case event.TypeNotificationSend:
			err = s.sendNotification(ctx, out, e)
		default:
			continue
		}
		if err != nil {
			s.logger.Error("Post-commit effect failed",
				"effect", e.Type,
				"effect_id", e.ID,
				"entity_id", e.EntityID,
				"error", err,
			)
			out.Warnings = append(out.Warnings, &domainwf.SideEffectFailure{
				Effect:   string(e.Type),
				EffectID: e.ID,
				Err:      err,
			})
		}
	}

	if len(out.Warnings) > 0 {
		return out, out.Warnings[0]
	}
	return out, nil
}

func (s *workflowServiceImpl) generateDocument(ctx context.Context, out *Outcome, e *event.Event) error {
	q, ok := e.Quotation()
	if !ok {
		return fmt.Errorf("document effect %s carries no quotation", e.ID)
	}
	if s.documents == nil {
		return errors.New("no document generator configured")
	}
	sc, err := s.repos.ServiceCenters.GetByID(ctx, q.ServiceCenterID)
	if err != nil {
		return fmt.Errorf("get service center: %w", err)
	}
	doc, err := s.documents.Generate(ctx, q, sc)
	if err != nil {
		return fmt.Errorf("generate %s: %w", q.DocumentType, err)
	}
	out.DocumentURL = doc.URL
	s.logger.Info("Document generated", "quotation_id", q.ID, "url", doc.URL)
	return s.recordDocumentURL(ctx, out, q.ID, doc.URL)
}

// recordDocumentURL stores the generated document's URL on the quotation
func (s *workflowServiceImpl) recordDocumentURL(ctx context.Context, out *Outcome, quotationID, url string) error {
	cur, err := s.repos.Quotations.GetByID(ctx, quotationID)
	if err != nil {
		return fmt.Errorf("reload quotation: %w", err)
	}
	cur.DocumentURL = url
	if err := s.repos.Quotations.Update(ctx, cur, cur.Version); err != nil {
		return fmt.Errorf("record document url: %w", err)
	}
	if q := out.Quotation; q != nil && q.ID == quotationID {
		q.DocumentURL = url
		q.Version = cur.Version
	}
	return nil
}

// sendNotification composes the message, resolves the customer channel when
// the effect targets a phone, and hands the effect to the dispatcher
func (s *workflowServiceImpl) sendNotification(ctx context.Context, out *Outcome, e *event.Event) error {
	msg := composeMessage(e, out.Result, out.DocumentURL)
	e = e.WithPayload(event.PayloadMessage, msg)
	if out.DocumentURL != "" {
		e = e.WithPayload(event.PayloadDocumentURL, out.DocumentURL)
	}

	if phone := e.GetPayloadString(event.PayloadPhone); phone != "" {
		if s.channels == nil {
			return errors.New("no channel resolver configured")
		}
		ch, err := s.channels.Resolve(phone, msg)
		if err != nil {
			return fmt.Errorf("resolve channel: %w", err)
		}
		out.RecipientChannel = ch
		e = e.WithPayload(event.PayloadChannel, ch.Kind).
			WithPayload(event.PayloadAddress, ch.Address).
			WithPayload(event.PayloadLink, ch.Link)
	}

	if s.dispatcher == nil {
		return nil
	}
	if s.opts.AsyncNotifications {
		s.dispatcher.DispatchAsync(ctx, e)
		return nil
	}
	return s.dispatcher.Dispatch(ctx, e)
}

// NotificationHandler adapts a notifier to the dispatcher
func NotificationHandler(n port.Notifier) dispatcher.Handler {
	return func(ctx context.Context, e *event.Event) error {
		note := &port.Notification{
			Template:   e.GetPayloadString(event.PayloadTemplate),
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			Recipients: e.GetPayloadStrings(event.PayloadRecipients),
			Message:    e.GetPayloadString(event.PayloadMessage),
		}
		if addr := e.GetPayloadString(event.PayloadAddress); addr != "" {
			note.Channel = &port.Channel{
				Kind:    e.GetPayloadString(event.PayloadChannel),
				Address: addr,
				Link:    e.GetPayloadString(event.PayloadLink),
			}
		}
		return n.Notify(ctx, note)
	}
}
