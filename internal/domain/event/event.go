package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/service-workflow/internal/domain/entity"
)

// Payload keys used by notification and document effects
const (
	PayloadTemplate     = "template"
	PayloadRecipients   = "recipients"
	PayloadPhone        = "phone"
	PayloadMessage      = "message"
	PayloadDocumentType = "document_type"
	PayloadAction       = "action"
	PayloadChannel      = "channel"
	PayloadAddress      = "address"
	PayloadLink         = "link"
	PayloadDocumentURL  = "document_url"
)

// Notification templates
const (
	TemplateQuotationSent        = "quotation_sent"
	TemplateQuotationForApproval = "quotation_pending_manager_approval"
	TemplateQuotationDecided     = "quotation_manager_decision"
	TemplateJobCardForReview     = "job_card_pending_warranty_review"
	TemplateJobCardReviewed      = "job_card_warranty_reviewed"
	TemplateJobCardAssigned      = "job_card_assigned"
	TemplatePartsFulfilled       = "parts_request_fulfilled"
	TemplateLeadFollowUp         = "lead_follow_up_due"
)

// Event is a declarative side-effect instruction produced by a transition.
// Entity carries the new entity state for create, update and lead effects.
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	EntityType    entity.EntityType      `json:"entity_type"`
	EntityID      string                 `json:"entity_id"`
	Entity        interface{}            `json:"entity,omitempty"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new event with a generated ID and the current time
func NewEvent(eventType Type, entityType entity.EntityType, entityID string, payload map[string]interface{}) *Event {
	id := uuid.NewString()
	return &Event{
		ID:            id,
		Type:          eventType,
		EntityType:    entityType,
		EntityID:      entityID,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: id,
	}
}

// NewEventAt creates an event with an explicit ID, timestamp and correlation ID.
// Used where time and identity are injected.
func NewEventAt(id string, at time.Time, correlationID string, eventType Type, entityType entity.EntityType, entityID string) *Event {
	return &Event{
		ID:            id,
		Type:          eventType,
		EntityType:    entityType,
		EntityID:      entityID,
		Payload:       map[string]interface{}{},
		Timestamp:     at,
		CorrelationID: correlationID,
	}
}

// WithEntity returns a copy of the event carrying the given entity state
func (e *Event) WithEntity(v interface{}) *Event {
	c := e.copy()
	c.Entity = v
	return c
}

// WithPayload returns a new Event with an added payload key-value pair (immutable operation)
func (e *Event) WithPayload(key string, value interface{}) *Event {
	c := e.copy()
	c.Payload[key] = value
	return c
}

func (e *Event) copy() *Event {
	payload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		payload[k] = v
	}
	c := *e
	c.Payload = payload
	return &c
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadStrings retrieves a string slice from the payload
func (e *Event) GetPayloadStrings(key string) []string {
	val, ok := e.Payload[key]
	if !ok {
		return nil
	}
	switch v := val.(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// GetPayloadBool retrieves a bool value from the payload
func (e *Event) GetPayloadBool(key string) bool {
	if val, ok := e.Payload[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}

// JobCard returns the job card carried by the event, if any
func (e *Event) JobCard() (*entity.JobCard, bool) {
	jc, ok := e.Entity.(*entity.JobCard)
	return jc, ok && jc != nil
}

// Quotation returns the quotation carried by the event, if any
func (e *Event) Quotation() (*entity.Quotation, bool) {
	q, ok := e.Entity.(*entity.Quotation)
	return q, ok && q != nil
}

// PartsRequest returns the parts request carried by the event, if any
func (e *Event) PartsRequest() (*entity.PartsRequest, bool) {
	pr, ok := e.Entity.(*entity.PartsRequest)
	return pr, ok && pr != nil
}

// Appointment returns the appointment carried by the event, if any
func (e *Event) Appointment() (*entity.Appointment, bool) {
	a, ok := e.Entity.(*entity.Appointment)
	return a, ok && a != nil
}

// Lead returns the lead carried by the event, if any
func (e *Event) Lead() (*entity.Lead, bool) {
	l, ok := e.Entity.(*entity.Lead)
	return l, ok && l != nil
}
