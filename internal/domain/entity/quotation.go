package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentType is the kind of customer-facing document a quotation represents
type DocumentType string

const (
	DocumentQuotation       DocumentType = "Quotation"
	DocumentProformaInvoice DocumentType = "Proforma Invoice"
	DocumentCheckInSlip     DocumentType = "Check-in Slip"
)

// IsValid returns true if the document type is defined
func (d DocumentType) IsValid() bool {
	switch d {
	case DocumentQuotation, DocumentProformaInvoice, DocumentCheckInSlip:
		return true
	}
	return false
}

func (d DocumentType) String() string {
	return string(d)
}

// QuotationStatus is the approval chain status of a quotation
type QuotationStatus string

const (
	QuotationDraft            QuotationStatus = "DRAFT"
	QuotationSentToCustomer   QuotationStatus = "SENT_TO_CUSTOMER"
	QuotationCustomerApproved QuotationStatus = "CUSTOMER_APPROVED"
	QuotationCustomerRejected QuotationStatus = "CUSTOMER_REJECTED"
	QuotationSentToManager    QuotationStatus = "SENT_TO_MANAGER"
	QuotationManagerApproved  QuotationStatus = "MANAGER_APPROVED"
	QuotationManagerRejected  QuotationStatus = "MANAGER_REJECTED"
)

// IsValid returns true if the status is defined
func (s QuotationStatus) IsValid() bool {
	switch s {
	case QuotationDraft, QuotationSentToCustomer, QuotationCustomerApproved, QuotationCustomerRejected,
		QuotationSentToManager, QuotationManagerApproved, QuotationManagerRejected:
		return true
	}
	return false
}

// IsTerminal returns true for approved or rejected end states
func (s QuotationStatus) IsTerminal() bool {
	switch s {
	case QuotationCustomerRejected, QuotationManagerApproved, QuotationManagerRejected:
		return true
	}
	return false
}

// IsRejected returns true if the quotation was rejected by customer or manager
func (s QuotationStatus) IsRejected() bool {
	return s == QuotationCustomerRejected || s == QuotationManagerRejected
}

func (s QuotationStatus) String() string {
	return string(s)
}

// QuotationItem is a priced line on a quotation
type QuotationItem struct {
	SrNo       int             `json:"sr_no"`
	PartName   string          `json:"part_name" validate:"required"`
	PartCode   string          `json:"part_code,omitempty"`
	HSNCode    string          `json:"hsn_code,omitempty"`
	Quantity   int             `json:"quantity" validate:"gte=1"`
	Rate       decimal.Decimal `json:"rate"`
	GSTPercent decimal.Decimal `json:"gst_percent"`
	Amount     decimal.Decimal `json:"amount"`
}

// Totals is the derived monetary breakdown of a quotation. Discount is the
// amount applied after clamping to the subtotal.
type Totals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	Discount     decimal.Decimal `json:"discount"`
	PreGSTAmount decimal.Decimal `json:"pre_gst_amount"`
	CGST         decimal.Decimal `json:"cgst"`
	SGST         decimal.Decimal `json:"sgst"`
	IGST         decimal.Decimal `json:"igst"`
	Total        decimal.Decimal `json:"total"`
}

// Quotation is a priced proposal moving through customer then manager approval
type Quotation struct {
	ID                 string          `json:"id"`
	QuotationNumber    string          `json:"quotation_number"`
	DocumentType       DocumentType    `json:"document_type"`
	ServiceCenterID    string          `json:"service_center_id"`
	CustomerID         string          `json:"customer_id"`
	VehicleID          string          `json:"vehicle_id"`
	CustomerName       string          `json:"customer_name,omitempty"`
	CustomerPhone      string          `json:"customer_phone,omitempty"`
	JobCardID          string          `json:"job_card_id,omitempty"`
	AppointmentID      string          `json:"appointment_id,omitempty"`
	Status             QuotationStatus `json:"status"`
	Items              []QuotationItem `json:"items"`
	InterState         bool            `json:"inter_state"`
	RequestedDiscount  decimal.Decimal `json:"requested_discount"`
	Totals             Totals          `json:"totals"`
	Notes              string          `json:"notes,omitempty"`
	CustomerNotes      string          `json:"customer_notes,omitempty"`
	ManagerID          string          `json:"manager_id,omitempty"`
	ManagerNotes       string          `json:"manager_notes,omitempty"`
	SentToCustomerAt   *time.Time      `json:"sent_to_customer_at,omitempty"`
	CustomerApprovedAt *time.Time      `json:"customer_approved_at,omitempty"`
	CustomerRejectedAt *time.Time      `json:"customer_rejected_at,omitempty"`
	SentToManagerAt    *time.Time      `json:"sent_to_manager_at,omitempty"`
	ManagerApprovedAt  *time.Time      `json:"manager_approved_at,omitempty"`
	ManagerRejectedAt  *time.Time      `json:"manager_rejected_at,omitempty"`
	DocumentURL        string          `json:"document_url,omitempty"`
	CreatedBy          string          `json:"created_by"`
	Version            int64           `json:"version"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// Clone returns a deep copy
func (q *Quotation) Clone() *Quotation {
	if q == nil {
		return nil
	}
	c := *q
	c.Items = append([]QuotationItem(nil), q.Items...)
	c.SentToCustomerAt = cloneTime(q.SentToCustomerAt)
	c.CustomerApprovedAt = cloneTime(q.CustomerApprovedAt)
	c.CustomerRejectedAt = cloneTime(q.CustomerRejectedAt)
	c.SentToManagerAt = cloneTime(q.SentToManagerAt)
	c.ManagerApprovedAt = cloneTime(q.ManagerApprovedAt)
	c.ManagerRejectedAt = cloneTime(q.ManagerRejectedAt)
	return &c
}
