package entity

import "time"

// AppointmentStatus is the intake status of an appointment
type AppointmentStatus string

const (
	AppointmentScheduled        AppointmentStatus = "SCHEDULED"
	AppointmentConfirmed        AppointmentStatus = "CONFIRMED"
	AppointmentCheckedIn        AppointmentStatus = "CHECKED_IN"
	AppointmentQuotationCreated AppointmentStatus = "QUOTATION_CREATED"
	AppointmentJobCardCreated   AppointmentStatus = "JOB_CARD_CREATED"
	AppointmentCompleted        AppointmentStatus = "COMPLETED"
	AppointmentCancelled        AppointmentStatus = "CANCELLED"
)

// IsValid returns true if the status is a defined appointment status
func (s AppointmentStatus) IsValid() bool {
	switch s {
	case AppointmentScheduled, AppointmentConfirmed, AppointmentCheckedIn, AppointmentQuotationCreated,
		AppointmentJobCardCreated, AppointmentCompleted, AppointmentCancelled:
		return true
	}
	return false
}

// IsTerminal returns true for completed and cancelled appointments
func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentCompleted || s == AppointmentCancelled
}

func (s AppointmentStatus) String() string {
	return string(s)
}

// Appointment is the intake record for a customer visit. The workflow only
// ever writes its Status.
type Appointment struct {
	ID                  string            `json:"id"`
	ServiceCenterID     string            `json:"service_center_id"`
	CustomerID          string            `json:"customer_id"`
	VehicleID           string            `json:"vehicle_id"`
	CustomerName        string            `json:"customer_name"`
	CustomerPhone       string            `json:"customer_phone"`
	VehicleRegistration string            `json:"vehicle_registration"`
	Complaint           string            `json:"complaint"`
	RequestedServices   []string          `json:"requested_services,omitempty"`
	ScheduledAt         time.Time         `json:"scheduled_at"`
	Status              AppointmentStatus `json:"status"`
	Version             int64             `json:"version"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// Clone returns a deep copy
func (a *Appointment) Clone() *Appointment {
	if a == nil {
		return nil
	}
	c := *a
	c.RequestedServices = append([]string(nil), a.RequestedServices...)
	return &c
}
