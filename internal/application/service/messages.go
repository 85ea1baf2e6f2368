package service

import (
	"fmt"
	"strings"

	"github.com/garyjia/service-workflow/internal/application/workflow"
	"github.com/garyjia/service-workflow/internal/domain/entity"
	"github.com/garyjia/service-workflow/internal/domain/event"
)

var documentLabels = map[entity.DocumentType]string{
	entity.DocumentQuotation:       "quotation",
	entity.DocumentProformaInvoice: "proforma invoice",
	entity.DocumentCheckInSlip:     "check-in slip",
}

// composeMessage renders the text for a notification effect
func composeMessage(e *event.Event, res *workflow.Result, documentURL string) string {
	var jobCardNumber, quotationNumber string
	if res.JobCard != nil {
		jobCardNumber = res.JobCard.JobCardNumber
	}
	if res.Quotation != nil {
		quotationNumber = res.Quotation.QuotationNumber
	}

	switch e.GetPayloadString(event.PayloadTemplate) {
	case event.TemplateQuotationSent:
		q := res.Quotation
		if q == nil {
			return ""
		}
		var b strings.Builder
		if name := strings.TrimSpace(q.CustomerName); name != "" {
			fmt.Fprintf(&b, "Dear %s, ", name)
		}
		fmt.Fprintf(&b, "your %s %s for Rs. %s is ready.", documentLabels[q.DocumentType], q.QuotationNumber, q.Totals.Total.StringFixed(2))
		if documentURL != "" {
			fmt.Fprintf(&b, " View it here: %s", documentURL)
		}
		return b.String()
	case event.TemplateQuotationForApproval:
		return fmt.Sprintf("Quotation %s is waiting for your approval.", quotationNumber)
	case event.TemplateQuotationDecided:
		return fmt.Sprintf("Quotation %s is now %s.", quotationNumber, res.NewStatus)
	case event.TemplateJobCardForReview:
		return fmt.Sprintf("Job card %s needs a warranty review.", jobCardNumber)
	case event.TemplateJobCardReviewed:
		status := ""
		if res.JobCard != nil {
			status = string(res.JobCard.ManagerReviewStatus)
		}
		return fmt.Sprintf("Warranty review of job card %s: %s.", jobCardNumber, status)
	case event.TemplateJobCardAssigned:
		return fmt.Sprintf("Job card %s has been assigned to you.", jobCardNumber)
	case event.TemplatePartsFulfilled:
		return fmt.Sprintf("Parts request %s has been fulfilled.", e.EntityID)
	}
	return ""
}
