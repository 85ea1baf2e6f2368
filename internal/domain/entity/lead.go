package entity

import "time"

// LeadStatus tracks the sales follow-up state derived from quotation activity
type LeadStatus string

const (
	LeadNew               LeadStatus = "new"
	LeadQuotationSent     LeadStatus = "quotation_sent"
	LeadInDiscussion      LeadStatus = "in_discussion"
	LeadJobCardInProgress LeadStatus = "job_card_in_progress"
	LeadConverted         LeadStatus = "converted"
	LeadLost              LeadStatus = "lost"
)

// IsValid returns true if the lead status is defined
func (s LeadStatus) IsValid() bool {
	switch s {
	case LeadNew, LeadQuotationSent, LeadInDiscussion, LeadJobCardInProgress, LeadConverted, LeadLost:
		return true
	}
	return false
}

// Lead is keyed by quotation; there is at most one lead per quotation
type Lead struct {
	ID              string     `json:"id"`
	ServiceCenterID string     `json:"service_center_id"`
	CustomerID      string     `json:"customer_id"`
	VehicleID       string     `json:"vehicle_id"`
	QuotationID     string     `json:"quotation_id"`
	JobCardID       string     `json:"job_card_id,omitempty"`
	Status          LeadStatus `json:"status"`
	FollowUpDate    *time.Time `json:"follow_up_date,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
