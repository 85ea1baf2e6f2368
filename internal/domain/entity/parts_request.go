package entity

import "time"

// PartsRequestStatus is the lightweight status of a technician parts request
type PartsRequestStatus string

const (
	PartsRequestPending   PartsRequestStatus = "PENDING"
	PartsRequestFulfilled PartsRequestStatus = "FULFILLED"
	PartsRequestCancelled PartsRequestStatus = "CANCELLED"
)

// IsValid returns true if the status is defined
func (s PartsRequestStatus) IsValid() bool {
	return s == PartsRequestPending || s == PartsRequestFulfilled || s == PartsRequestCancelled
}

// IsTerminal returns true once the request is fulfilled or cancelled
func (s PartsRequestStatus) IsTerminal() bool {
	return s == PartsRequestFulfilled || s == PartsRequestCancelled
}

func (s PartsRequestStatus) String() string {
	return string(s)
}

// PartsRequestItem is one requested part
type PartsRequestItem struct {
	PartName string `json:"part_name" validate:"required"`
	PartCode string `json:"part_code,omitempty"`
	Quantity int    `json:"quantity" validate:"gte=1"`
}

// PartsRequest is a technician's request for inventory parts against a job card
type PartsRequest struct {
	ID          string             `json:"id"`
	JobCardID   string             `json:"job_card_id"`
	RequestedBy string             `json:"requested_by"`
	Items       []PartsRequestItem `json:"items"`
	Status      PartsRequestStatus `json:"status"`
	FulfilledBy string             `json:"fulfilled_by,omitempty"`
	FulfilledAt *time.Time         `json:"fulfilled_at,omitempty"`
	CancelledAt *time.Time         `json:"cancelled_at,omitempty"`
	Version     int64              `json:"version"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Clone returns a deep copy
func (p *PartsRequest) Clone() *PartsRequest {
	if p == nil {
		return nil
	}
	c := *p
	c.Items = append([]PartsRequestItem(nil), p.Items...)
	c.FulfilledAt = cloneTime(p.FulfilledAt)
	c.CancelledAt = cloneTime(p.CancelledAt)
	return &c
}
