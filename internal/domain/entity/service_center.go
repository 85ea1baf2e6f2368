package entity

import "time"

// ServiceCenter owns the numbering prefix for its documents
type ServiceCenter struct {
	ID                string    `json:"id"`
	Code              string    `json:"code"`
	Name              string    `json:"name"`
	CheckInSlipPrefix string    `json:"check_in_slip_prefix,omitempty"`
	StateCode         string    `json:"state_code"`
	CreatedAt         time.Time `json:"created_at"`
}

// Staff is a service-center user
type Staff struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Role            Role      `json:"role"`
	ServiceCenterID string    `json:"service_center_id"`
	Phone           string    `json:"phone,omitempty"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
}
