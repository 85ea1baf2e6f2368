package jobcard

import (
	"strings"
	"time"

	"github.com/garyjia/service-workflow/internal/domain/entity"
	"github.com/garyjia/service-workflow/internal/domain/workflow"
)

// Draft is the input for a new job card, manual or seeded from an appointment
// or an approved quotation
type Draft struct {
	ServiceCenterID string                `json:"service_center_id"`
	CustomerID      string                `json:"customer_id"`
	VehicleID       string                `json:"vehicle_id"`
	AppointmentID   string                `json:"appointment_id,omitempty"`
	Priority        entity.Priority       `json:"priority,omitempty"`
	Part1           entity.JobCardPart1   `json:"part1"`
	Part2           []entity.Part2Item    `json:"part2,omitempty"`
	Part2A          *entity.JobCardPart2A `json:"part2a,omitempty"`
}

// DraftFromAppointment seeds a draft with the appointment's intake details
func DraftFromAppointment(a *entity.Appointment) Draft {
	return Draft{
		ServiceCenterID: a.ServiceCenterID,
		CustomerID:      a.CustomerID,
		VehicleID:       a.VehicleID,
		AppointmentID:   a.ID,
		Priority:        entity.PriorityNormal,
		Part1: entity.JobCardPart1{
			CustomerName:        a.CustomerName,
			CustomerPhone:       a.CustomerPhone,
			VehicleRegistration: a.VehicleRegistration,
			Complaint:           a.Complaint,
			Remarks:             strings.Join(a.RequestedServices, ", "),
		},
	}
}

// DraftFromQuotation seeds a draft from an approved quotation. Priced lines
// become part items.
func DraftFromQuotation(q *entity.Quotation) Draft {
	items := make([]entity.Part2Item, 0, len(q.Items))
	for _, qi := range q.Items {
		items = append(items, entity.Part2Item{
			PartName: qi.PartName,
			PartCode: qi.PartCode,
			Quantity: qi.Quantity,
			Amount:   qi.Amount,
			ItemType: entity.ItemTypePart,
		})
	}
	return Draft{
		ServiceCenterID: q.ServiceCenterID,
		CustomerID:      q.CustomerID,
		VehicleID:       q.VehicleID,
		AppointmentID:   q.AppointmentID,
		Priority:        entity.PriorityNormal,
		Part1: entity.JobCardPart1{
			CustomerName:  q.CustomerName,
			CustomerPhone: q.CustomerPhone,
		},
		Part2: items,
	}
}

// New builds a job card in CREATED from d. Linkage against other job cards is
// checked by the caller.
func New(id, number string, d Draft, actor entity.Actor, at time.Time) (*entity.JobCard, error) {
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

	priority := d.Priority
	if priority == "" {
		priority = entity.PriorityNormal
	}
	if !priority.IsValid() {
		return nil, workflow.NewViolation(RuleInvalidPriority, "unknown priority %q", priority)
	}

	items, err := normalizeItems(d.Part2)
	if err != nil {
		return nil, err
	}

	jc := &entity.JobCard{
		ID:                  id,
		JobCardNumber:       number,
		ServiceCenterID:     d.ServiceCenterID,
		CustomerID:          d.CustomerID,
		VehicleID:           d.VehicleID,
		AppointmentID:       d.AppointmentID,
		Status:              entity.JobCardCreated,
		Priority:            priority,
		Part1:               d.Part1,
		Part2:               items,
		ManagerReviewStatus: entity.ReviewNone,
		CreatedBy:           actor.UserID,
		CreatedAt:           at,
		UpdatedAt:           at,
	}
	if d.Part2A != nil {
		p := *d.Part2A
		jc.Part2A = &p
	}
	return jc, nil
}
