package quotation

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/service-workflow/internal/domain/entity"
	"github.com/garyjia/service-workflow/internal/domain/workflow"
)

var (
	now      = time.Date(2025, 3, 2, 11, 0, 0, 0, time.UTC)
	advisor  = entity.Actor{UserID: "u-adv", Role: entity.RoleServiceAdvisor, ServiceCenterID: "sc-1"}
	manager  = entity.Actor{UserID: "u-mgr", Role: entity.RoleSCManager, ServiceCenterID: "sc-1"}
	callDesk = entity.Actor{UserID: "u-cc", Role: entity.RoleCallCenter, ServiceCenterID: "sc-1"}
	engineer = entity.Actor{UserID: "u-eng", Role: entity.RoleServiceEngineer, ServiceCenterID: "sc-1"}
	allRoles = []entity.Actor{advisor, manager, callDesk, engineer,
		{UserID: "u-adm", Role: entity.RoleAdmin}, {UserID: "u-inv", Role: entity.RoleInventoryManager}}
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, got.Equal(dec(want)), "%s: got %s, want %s", msg, got, want)
}

func item(name, rate string, qty int, gst string) entity.QuotationItem {
	return entity.QuotationItem{PartName: name, Rate: dec(rate), Quantity: qty, GSTPercent: dec(gst)}
}

func newQuotation(status entity.QuotationStatus) *entity.Quotation {
	return &entity.Quotation{
		ID:              "q-1",
		QuotationNumber: "SC001-QT-2025-0001",
		DocumentType:    entity.DocumentQuotation,
		ServiceCenterID: "sc-1",
		CustomerID:      "c-1",
		VehicleID:       "v-1",
		Status:          status,
		Items:           []entity.QuotationItem{item("Brake pad", "1000", 2, "18")},
	}
}

func requireViolation(t *testing.T, err error, rule string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, workflow.ErrWorkflowViolation), "expected workflow violation, got %v", err)
	var v *workflow.Violation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, rule, v.Rule)
}
