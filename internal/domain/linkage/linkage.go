// Package linkage enforces the cross-entity uniqueness rules that span job
// cards and quotations. Checks run against snapshots before a transition and
// are repeated by unique indexes at commit time.
package linkage

import (
	"github.com/garyjia/service-workflow/internal/domain/entity"
	"github.com/garyjia/service-workflow/internal/domain/workflow"
)

// Rule identifiers carried by *workflow.LinkageConflict
const (
	RuleActiveJobCardExists     = "linkage.active_job_card_exists"
	RuleActiveQuotationExists   = "linkage.active_quotation_exists"
	RuleJobCardQuotationExists  = "linkage.job_card_quotation_exists"
	RuleJobCardMismatch         = "linkage.job_card_mismatch"
	RuleJobCardAlreadyLinked    = "linkage.job_card_already_linked"
	RuleJobCardVehicleMismatch  = "linkage.job_card_vehicle_mismatch"
	RuleJobCardCenterMismatch   = "linkage.job_card_service_center_mismatch"
	RuleJobCardNotActive        = "linkage.job_card_not_active"
	RuleQuotationAlreadyHasCard = "linkage.quotation_already_has_job_card"
)

// QuotationKey is the identity a new quotation would occupy
type QuotationKey struct {
	ServiceCenterID string
	CustomerID      string
	VehicleID       string
	DocumentType    entity.DocumentType
	JobCardID       string
}

// ActiveJobCard returns the non-terminal job card for (vehicle, service center), if any
func ActiveJobCard(vehicleID, serviceCenterID string, cards []*entity.JobCard) *entity.JobCard {
	for _, jc := range cards {
		if jc == nil {
			continue
		}
		if jc.VehicleID == vehicleID && jc.ServiceCenterID == serviceCenterID && jc.IsActive() {
			return jc
		}
	}
	return nil
}

// ValidateJobCardCreation rejects a second open job card for the same vehicle
// at the same service center.
func ValidateJobCardCreation(vehicleID, serviceCenterID string, existing []*entity.JobCard) error {
	if active := ActiveJobCard(vehicleID, serviceCenterID, existing); active != nil {
		return workflow.NewLinkageConflict(RuleActiveJobCardExists, string(entity.EntityJobCard),
			active.ID, active.JobCardNumber,
			"vehicle already has active job card %s (%s)", active.JobCardNumber, active.Status)
	}
	return nil
}

// ValidateQuotationCreation applies the creation guards in order:
// no other non-rejected quotation for (customer, vehicle, document type);
// no other live quotation of the document type on the same job card (a
// rejected quotation releases its job card);
// and when the vehicle has an active job card the quotation must reference it.
func ValidateQuotationCreation(key QuotationKey, existing []*entity.Quotation, jobCards []*entity.JobCard) error {
	for _, q := range existing {
		if q == nil || q.DocumentType != key.DocumentType {
			continue
		}
		if q.CustomerID == key.CustomerID && q.VehicleID == key.VehicleID && !q.Status.IsRejected() {
			return workflow.NewLinkageConflict(RuleActiveQuotationExists, string(entity.EntityQuotation),
				q.ID, q.QuotationNumber,
				"customer already has %s %s for this vehicle in status %s", q.DocumentType, q.QuotationNumber, q.Status)
		}
	}

	if key.JobCardID != "" {
		for _, q := range existing {
			if q == nil || q.DocumentType != key.DocumentType {
				continue
			}
			if q.JobCardID == key.JobCardID && !q.Status.IsRejected() {
				return workflow.NewLinkageConflict(RuleJobCardQuotationExists, string(entity.EntityQuotation),
					q.ID, q.QuotationNumber,
					"job card already has %s %s", q.DocumentType, q.QuotationNumber)
			}
		}
	}

	active := ActiveJobCard(key.VehicleID, key.ServiceCenterID, jobCards)
	if active != nil && active.ID != key.JobCardID {
		return workflow.NewLinkageConflict(RuleJobCardMismatch, string(entity.EntityJobCard),
			active.ID, active.JobCardNumber,
			"vehicle has active job card %s; the %s must reference it", active.JobCardNumber, key.DocumentType)
	}

	if key.JobCardID != "" {
		source := findJobCard(key.JobCardID, jobCards)
		if source == nil {
			return nil
		}
		if source.ServiceCenterID != key.ServiceCenterID {
			return centerMismatch(source)
		}
		if source.VehicleID != key.VehicleID || source.CustomerID != key.CustomerID {
			return workflow.NewLinkageConflict(RuleJobCardVehicleMismatch, string(entity.EntityJobCard),
				source.ID, source.JobCardNumber,
				"job card %s belongs to a different customer or vehicle", source.JobCardNumber)
		}
		if !source.IsActive() {
			return workflow.NewLinkageConflict(RuleJobCardNotActive, string(entity.EntityJobCard),
				source.ID, source.JobCardNumber,
				"job card %s is %s", source.JobCardNumber, source.Status)
		}
	}
	return nil
}

// ValidateJobCardLink checks that jc may be linked to quotation q. A job card
// holds a single quotation reference at a time, and a closed job card takes
// no new link.
func ValidateJobCardLink(jc *entity.JobCard, q *entity.Quotation) error {
	if !jc.IsActive() {
		return workflow.NewLinkageConflict(RuleJobCardNotActive, string(entity.EntityJobCard),
			jc.ID, jc.JobCardNumber,
			"job card %s is %s", jc.JobCardNumber, jc.Status)
	}
	if jc.ServiceCenterID != q.ServiceCenterID {
		return centerMismatch(jc)
	}
	if jc.QuotationID != "" && jc.QuotationID != q.ID {
		return workflow.NewLinkageConflict(RuleJobCardAlreadyLinked, string(entity.EntityQuotation),
			jc.QuotationID, "",
			"job card %s is already linked to another quotation", jc.JobCardNumber)
	}
	if q.JobCardID != "" && q.JobCardID != jc.ID {
		return workflow.NewLinkageConflict(RuleQuotationAlreadyHasCard, string(entity.EntityJobCard),
			q.JobCardID, "",
			"quotation %s already references another job card", q.QuotationNumber)
	}
	if jc.VehicleID != q.VehicleID || jc.CustomerID != q.CustomerID {
		return workflow.NewLinkageConflict(RuleJobCardVehicleMismatch, string(entity.EntityJobCard),
			jc.ID, jc.JobCardNumber,
			"job card %s belongs to a different customer or vehicle", jc.JobCardNumber)
	}
	return nil
}

func centerMismatch(jc *entity.JobCard) error {
	return workflow.NewLinkageConflict(RuleJobCardCenterMismatch, string(entity.EntityJobCard),
		jc.ID, jc.JobCardNumber,
		"job card %s belongs to another service center", jc.JobCardNumber)
}

func findJobCard(id string, cards []*entity.JobCard) *entity.JobCard {
	for _, jc := range cards {
		if jc != nil && jc.ID == id {
			return jc
		}
	}
	return nil
}
