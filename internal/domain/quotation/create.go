package quotation

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/service-workflow/internal/domain/entity"
	"github.com/garyjia/service-workflow/internal/domain/workflow"
)

// Draft is the input for a new quotation, proforma invoice or check-in slip
type Draft struct {
	ServiceCenterID string                 `json:"service_center_id"`
	CustomerID      string                 `json:"customer_id"`
	VehicleID       string                 `json:"vehicle_id"`
	CustomerName    string                 `json:"customer_name,omitempty"`
	CustomerPhone   string                 `json:"customer_phone,omitempty"`
	JobCardID       string                 `json:"job_card_id,omitempty"`
	AppointmentID   string                 `json:"appointment_id,omitempty"`
	DocumentType    entity.DocumentType    `json:"document_type"`
	Items           []entity.QuotationItem `json:"items,omitempty"`
	Discount        decimal.Decimal        `json:"discount"`
	InterState      bool                   `json:"inter_state"`
	Notes           string                 `json:"notes,omitempty"`
}

// New builds a quotation from d. source is the job card it is raised from, if
// any; an approved warranty review on it creates the quotation already
// manager-approved. Linkage is checked by the caller.
func New(ctx context.Context, id, number string, d Draft, actor entity.Actor, source *entity.JobCard, at time.Time) (*entity.Quotation, error) {
	if err := workflow.Check(ctx, workflow.RequireRole(actor.Role, entity.RoleServiceAdvisor, entity.RoleSCManager)); err != nil {
		return nil, err
	}
	required := []struct{ field, value string }{
		{"service_center_id", d.ServiceCenterID},
		{"customer_id", d.CustomerID},
		{"vehicle_id", d.VehicleID},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return nil, workflow.NewViolation(RuleMissingField, "%s is required", r.field)
		}
	}
	if !d.DocumentType.IsValid() {
		return nil, workflow.NewViolation(RuleInvalidDocumentType, "unknown document type %q", d.DocumentType)
	}
	if d.Discount.IsNegative() {
		return nil, workflow.NewViolation(RuleInvalidDiscount, "discount cannot be negative")
	}

	items, err := normalizeItems(d.Items)
	if err != nil {
		return nil, err
	}

	q := &entity.Quotation{
		ID:                id,
		QuotationNumber:   number,
		DocumentType:      d.DocumentType,
		ServiceCenterID:   d.ServiceCenterID,
		CustomerID:        d.CustomerID,
		VehicleID:         d.VehicleID,
		CustomerName:      d.CustomerName,
		CustomerPhone:     d.CustomerPhone,
		JobCardID:         d.JobCardID,
		AppointmentID:     d.AppointmentID,
		Status:            InitialStatus(source),
		Items:             items,
		InterState:        d.InterState,
		RequestedDiscount: d.Discount,
		Totals:            ComputeTotals(items, d.Discount, d.InterState),
		Notes:             strings.TrimSpace(d.Notes),
		CreatedBy:         actor.UserID,
		CreatedAt:         at,
		UpdatedAt:         at,
	}

	if source != nil {
		q.JobCardID = source.ID
		if q.AppointmentID == "" {
			q.AppointmentID = source.AppointmentID
		}
		if q.CustomerName == "" {
			q.CustomerName = source.Part1.CustomerName
		}
		if q.CustomerPhone == "" {
			q.CustomerPhone = source.Part1.CustomerPhone
		}
	}
	if q.Status == entity.QuotationManagerApproved {
		q.ManagerID = source.ManagerID
		q.ManagerApprovedAt = &at
	}
	return q, nil
}

// Patch is a partial quotation update; nil fields are left unchanged
type Patch struct {
	Items         []entity.QuotationItem `json:"items,omitempty"`
	Discount      *decimal.Decimal       `json:"discount,omitempty"`
	InterState    *bool                  `json:"inter_state,omitempty"`
	Notes         *string                `json:"notes,omitempty"`
	CustomerName  *string                `json:"customer_name,omitempty"`
	CustomerPhone *string                `json:"customer_phone,omitempty"`
}

// ApplyPatch edits a DRAFT quotation and re-derives its totals
func ApplyPatch(ctx context.Context, q *entity.Quotation, actor entity.Actor, p Patch, at time.Time) (*entity.Quotation, error) {
	err := workflow.Check(ctx,
		workflow.RequireRole(actor.Role, entity.RoleServiceAdvisor, entity.RoleSCManager),
		workflow.Require(q.Status == entity.QuotationDraft, RuleNotEditable,
			"%s %s is %s and can no longer be edited", q.DocumentType, q.QuotationNumber, q.Status),
	)
	if err != nil {
		return nil, err
	}

	next := q.Clone()
	if p.Items != nil {
		items, err := normalizeItems(p.Items)
		if err != nil {
			return nil, err
		}
		next.Items = items
	}
	if p.Discount != nil {
		if p.Discount.IsNegative() {
			return nil, workflow.NewViolation(RuleInvalidDiscount, "discount cannot be negative")
		}
		next.RequestedDiscount = *p.Discount
	}
	if p.InterState != nil {
		next.InterState = *p.InterState
	}
	if p.Notes != nil {
		next.Notes = strings.TrimSpace(*p.Notes)
	}
	if p.CustomerName != nil {
		next.CustomerName = strings.TrimSpace(*p.CustomerName)
	}
	if p.CustomerPhone != nil {
		next.CustomerPhone = strings.TrimSpace(*p.CustomerPhone)
	}
	next.Totals = ComputeTotals(next.Items, next.RequestedDiscount, next.InterState)
	next.UpdatedAt = at
	return next, nil
}

func normalizeItems(items []entity.QuotationItem) ([]entity.QuotationItem, error) {
	out := make([]entity.QuotationItem, 0, len(items))
	for i, item := range items {
		item.PartName = strings.TrimSpace(item.PartName)
		if item.PartName == "" || item.Quantity <= 0 {
			return nil, workflow.NewViolation(RuleInvalidItem, "line %d needs a name and a positive quantity", i+1)
		}
		if item.Rate.IsNegative() || item.GSTPercent.IsNegative() || item.GSTPercent.GreaterThan(hundred) {
			return nil, workflow.NewViolation(RuleInvalidItem, "line %d has an invalid rate or GST percent", i+1)
		}
		item.SrNo = i + 1
		item.Amount = LineAmount(item)
		out = append(out, item)
	}
	return out, nil
}
