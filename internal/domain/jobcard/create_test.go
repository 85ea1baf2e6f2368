package jobcard

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/service-workflow/internal/domain/entity"
)

func TestNew(t *testing.T) {
	d := Draft{
		ServiceCenterID: "sc-1",
		CustomerID:      "c-1",
		VehicleID:       "v-1",
		Part2:           []entity.Part2Item{partItem("a", false), workItem("b", "LC-2")},
	}

	jc, err := New("jc-1", "SC001-2025-01-0001", d, advisor, now)
	require.NoError(t, err)
	assert.Equal(t, entity.JobCardCreated, jc.Status)
	assert.Equal(t, entity.PriorityNormal, jc.Priority)
	assert.Equal(t, entity.ReviewNone, jc.ManagerReviewStatus)
	assert.Equal(t, "u-adv", jc.CreatedBy)
	assert.Equal(t, []int{1, 2}, srNos(jc.Part2))
	assert.Equal(t, entity.LabourCodeAutoSelect, jc.Part2[0].LabourCode)
}

func TestNew_Invalid(t *testing.T) {
	_, err := New("jc-1", "n", Draft{CustomerID: "c", VehicleID: "v"}, advisor, now)
	requireViolation(t, err, RuleMissingField)

	_, err = New("jc-1", "n", Draft{ServiceCenterID: "s", CustomerID: "c", VehicleID: "v", Priority: "ASAP"}, advisor, now)
	requireViolation(t, err, RuleInvalidPriority)

	_, err = New("jc-1", "n", Draft{ServiceCenterID: "s", CustomerID: "c", VehicleID: "v",
		Part2: []entity.Part2Item{workItem("x", "")}}, advisor, now)
	requireViolation(t, err, RuleLabourCodeRequired)
}

func TestDraftFromAppointment(t *testing.T) {
	a := &entity.Appointment{
		ID:                  "ap-1",
		ServiceCenterID:     "sc-1",
		CustomerID:          "c-1",
		VehicleID:           "v-1",
		CustomerName:        "Asha",
		CustomerPhone:       "+919876543210",
		VehicleRegistration: "KA01AB1234",
		Complaint:           "brake noise",
		RequestedServices:   []string{"General service", "Brake check"},
		ScheduledAt:         time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC),
	}

	d := DraftFromAppointment(a)
	assert.Equal(t, "ap-1", d.AppointmentID)
	assert.Equal(t, "brake noise", d.Part1.Complaint)
	assert.Equal(t, "General service, Brake check", d.Part1.Remarks)
	assert.Equal(t, "KA01AB1234", d.Part1.VehicleRegistration)
}

func TestDraftFromQuotation(t *testing.T) {
	q := &entity.Quotation{
		ServiceCenterID: "sc-1",
		CustomerID:      "c-1",
		VehicleID:       "v-1",
		CustomerName:    "Asha",
		Items: []entity.QuotationItem{
			{SrNo: 1, PartName: "Brake pad", PartCode: "BP-1", Quantity: 2, Amount: decimal.NewFromInt(2400)},
		},
	}

	d := DraftFromQuotation(q)
	require.Len(t, d.Part2, 1)
	assert.Equal(t, entity.ItemTypePart, d.Part2[0].ItemType)
	assert.Equal(t, "Asha", d.Part1.CustomerName)

	jc, err := New("jc-1", "SC001-2025-01-0001", d, callDesk, now)
	require.NoError(t, err)
	assert.Equal(t, 1, jc.Part2[0].SrNo)
}
