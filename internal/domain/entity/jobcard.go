package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// JobCardStatus is the main lifecycle status of a job card
type JobCardStatus string

const (
	JobCardCreated                   JobCardStatus = "CREATED"
	JobCardAssigned                  JobCardStatus = "ASSIGNED"
	JobCardInProgress                JobCardStatus = "IN_PROGRESS"
	JobCardAwaitingQuotationApproval JobCardStatus = "AWAITING_QUOTATION_APPROVAL"
	JobCardCompleted                 JobCardStatus = "COMPLETED"
	JobCardCancelled                 JobCardStatus = "CANCELLED"
)

// IsValid returns true if the status is a defined job card status
func (s JobCardStatus) IsValid() bool {
	switch s {
	case JobCardCreated, JobCardAssigned, JobCardInProgress, JobCardAwaitingQuotationApproval,
		JobCardCompleted, JobCardCancelled:
		return true
	}
	return false
}

// IsTerminal returns true if no further transitions are allowed
func (s JobCardStatus) IsTerminal() bool {
	return s == JobCardCompleted || s == JobCardCancelled
}

func (s JobCardStatus) String() string {
	return string(s)
}

// ManagerReviewStatus is the warranty review sub-state of a job card
type ManagerReviewStatus string

const (
	ReviewNone     ManagerReviewStatus = "NONE"
	ReviewPending  ManagerReviewStatus = "PENDING"
	ReviewApproved ManagerReviewStatus = "APPROVED"
	ReviewRejected ManagerReviewStatus = "REJECTED"
)

// IsValid returns true if the review status is defined
func (s ManagerReviewStatus) IsValid() bool {
	switch s {
	case ReviewNone, ReviewPending, ReviewApproved, ReviewRejected:
		return true
	}
	return false
}

func (s ManagerReviewStatus) String() string {
	return string(s)
}

// Priority of a job card
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityNormal   Priority = "NORMAL"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// IsValid returns true if the priority is defined
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// ItemType distinguishes parts from labour lines
type ItemType string

const (
	ItemTypePart     ItemType = "part"
	ItemTypeWorkItem ItemType = "work_item"
)

// IsValid returns true if the item type is defined
func (t ItemType) IsValid() bool {
	return t == ItemTypePart || t == ItemTypeWorkItem
}

// LabourCodeAutoSelect is the labour code forced onto part-type items
const LabourCodeAutoSelect = "Auto Select With Part"

// JobCardPart1 holds the intake details captured at check-in
type JobCardPart1 struct {
	CustomerName        string `json:"customer_name"`
	CustomerPhone       string `json:"customer_phone"`
	VehicleRegistration string `json:"vehicle_registration"`
	VIN                 string `json:"vin,omitempty"`
	VehicleModel        string `json:"vehicle_model,omitempty"`
	OdometerReading     int64  `json:"odometer_reading,omitempty"`
	Complaint           string `json:"complaint"`
	FuelLevel           string `json:"fuel_level,omitempty"`
	Remarks             string `json:"remarks,omitempty"`
}

// Part2Item is one line of work or parts on a job card
type Part2Item struct {
	SrNo            int             `json:"sr_no"`
	PartName        string          `json:"part_name" validate:"required"`
	PartCode        string          `json:"part_code,omitempty"`
	LabourCode      string          `json:"labour_code,omitempty"`
	Quantity        int             `json:"quantity" validate:"gte=1"`
	Amount          decimal.Decimal `json:"amount"`
	ItemType        ItemType        `json:"item_type" validate:"required,oneof=part work_item"`
	PartWarrantyTag bool            `json:"part_warranty_tag"`
}

// JobCardPart2A is the warranty case evidence metadata
type JobCardPart2A struct {
	IssueDescription     string   `json:"issue_description,omitempty"`
	NumberOfObservations int      `json:"number_of_observations,omitempty"`
	Symptom              string   `json:"symptom,omitempty"`
	DefectPart           string   `json:"defect_part,omitempty"`
	EvidenceFiles        []string `json:"evidence_files,omitempty"`
}

// JobCard is the unit of service work on one vehicle
type JobCard struct {
	ID                  string              `json:"id"`
	JobCardNumber       string              `json:"job_card_number"`
	ServiceCenterID     string              `json:"service_center_id"`
	CustomerID          string              `json:"customer_id"`
	VehicleID           string              `json:"vehicle_id"`
	AppointmentID       string              `json:"appointment_id,omitempty"`
	Status              JobCardStatus       `json:"status"`
	Priority            Priority            `json:"priority"`
	Part1               JobCardPart1        `json:"part1"`
	Part2               []Part2Item         `json:"part2"`
	Part2A              *JobCardPart2A      `json:"part2a,omitempty"`
	PassedToManager     bool                `json:"passed_to_manager"`
	PassedToManagerAt   *time.Time          `json:"passed_to_manager_at,omitempty"`
	ManagerID           string              `json:"manager_id,omitempty"`
	ManagerReviewStatus ManagerReviewStatus `json:"manager_review_status"`
	ManagerReviewNotes  string              `json:"manager_review_notes,omitempty"`
	ManagerReviewedAt   *time.Time          `json:"manager_reviewed_at,omitempty"`
	AssignedEngineerID  string              `json:"assigned_engineer_id,omitempty"`
	QuotationID         string              `json:"quotation_id,omitempty"`
	CreatedBy           string              `json:"created_by"`
	Version             int64               `json:"version"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
	CompletedAt         *time.Time          `json:"completed_at,omitempty"`
}

// HasWarrantyItems reports whether any part2 item carries the warranty tag
func (j *JobCard) HasWarrantyItems() bool {
	for _, item := range j.Part2 {
		if item.PartWarrantyTag {
			return true
		}
	}
	return false
}

// IsActive reports whether the job card still occupies its vehicle
func (j *JobCard) IsActive() bool {
	return !j.Status.IsTerminal()
}

// Clone returns a deep copy so transitions never mutate a caller's snapshot
func (j *JobCard) Clone() *JobCard {
	if j == nil {
		return nil
	}
	c := *j
	c.Part2 = append([]Part2Item(nil), j.Part2...)
	if j.Part2A != nil {
		p := *j.Part2A
		p.EvidenceFiles = append([]string(nil), j.Part2A.EvidenceFiles...)
		c.Part2A = &p
	}
	c.PassedToManagerAt = cloneTime(j.PassedToManagerAt)
	c.ManagerReviewedAt = cloneTime(j.ManagerReviewedAt)
	c.CompletedAt = cloneTime(j.CompletedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
