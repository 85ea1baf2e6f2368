// Package jobcard holds the job card state machine, the warranty review gate,
// line item editing and the parts request sub-flow.
package jobcard

// Rule identifiers carried by *workflow.Violation
const (
	RuleMissingField           = "job_card.missing_field"
	RuleInvalidPriority        = "job_card.invalid_priority"
	RuleEngineerRequired       = "job_card.engineer_required"
	RuleQuotationAlreadyLinked = "job_card.quotation_already_linked"
	RuleQuotationPending       = "job_card.quotation_pending"
	RuleClosed                 = "job_card.closed"

	RuleNoWarrantyItems       = "review.no_warranty_items"
	RuleManagerRequired       = "review.manager_required"
	RuleReviewInProgress      = "review.already_pending_or_approved"
	RuleNotPassedToManager    = "review.not_passed_to_manager"
	RuleReviewNotPending      = "review.not_pending"
	RuleInvalidReviewDecision = "review.invalid_decision"
	RuleRejectionNotes        = "review.rejection_notes_required"
	RuleReviewAfterQuotation  = "review.quotation_already_linked"

	RuleInvalidItem        = "part2.invalid_item"
	RuleLabourCodeRequired = "part2.labour_code_required"
	RuleItemNotFound       = "part2.item_not_found"
	RuleWarrantyTagLocked  = "part2.warranty_tag_locked"

	RulePartsRequestJobCardState = "parts_request.job_card_not_in_work"
	RulePartsRequestEmpty        = "parts_request.no_items"
	RulePartsRequestInvalidItem  = "parts_request.invalid_item"
)
