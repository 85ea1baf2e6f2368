package entity

import "time"

// EntityType names the workflow entity a history row or effect refers to
type EntityType string

const (
	EntityJobCard      EntityType = "job_card"
	EntityQuotation    EntityType = "quotation"
	EntityPartsRequest EntityType = "parts_request"
	EntityAppointment  EntityType = "appointment"
	EntityLead         EntityType = "lead"
)

// IsValid returns true if the entity type is defined
func (t EntityType) IsValid() bool {
	switch t {
	case EntityJobCard, EntityQuotation, EntityPartsRequest, EntityAppointment, EntityLead:
		return true
	}
	return false
}

// StatusHistory records one committed transition
type StatusHistory struct {
	ID             int64      `json:"id"`
	EntityType     EntityType `json:"entity_type"`
	EntityID       string     `json:"entity_id"`
	ActorID        string     `json:"actor_id"`
	ActorRole      Role       `json:"actor_role"`
	Action         string     `json:"action"`
	PreviousStatus string     `json:"previous_status"`
	NewStatus      string     `json:"new_status"`
	Notes          string     `json:"notes,omitempty"`
	Timestamp      time.Time  `json:"timestamp"`
}
