package jobcard

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
	now      = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	advisor  = entity.Actor{UserID: "u-adv", Role: entity.RoleServiceAdvisor, ServiceCenterID: "sc-1"}
	manager  = entity.Actor{UserID: "u-mgr", Role: entity.RoleSCManager, ServiceCenterID: "sc-1"}
	engineer = entity.Actor{UserID: "u-eng", Role: entity.RoleServiceEngineer, ServiceCenterID: "sc-1"}
	callDesk = entity.Actor{UserID: "u-cc", Role: entity.RoleCallCenter, ServiceCenterID: "sc-1"}
	store    = entity.Actor{UserID: "u-inv", Role: entity.RoleInventoryManager, ServiceCenterID: "sc-1"}
)

func newJobCard(status entity.JobCardStatus) *entity.JobCard {
	return &entity.JobCard{
		ID:                  "jc-1",
		JobCardNumber:       "SC001-2025-01-0001",
		ServiceCenterID:     "sc-1",
		CustomerID:          "c-1",
		VehicleID:           "v-1",
		Status:              status,
		Priority:            entity.PriorityNormal,
		ManagerReviewStatus: entity.ReviewNone,
		Version:             3,
	}
}

func partItem(name string, warranty bool) entity.Part2Item {
	return entity.Part2Item{
		PartName:        name,
		PartCode:        "P-" + name,
		Quantity:        1,
		Amount:          decimal.NewFromInt(1200),
		ItemType:        entity.ItemTypePart,
		PartWarrantyTag: warranty,
	}
}

func workItem(name, labour string) entity.Part2Item {
	return entity.Part2Item{
		PartName:   name,
		LabourCode: labour,
		Quantity:   1,
		Amount:     decimal.NewFromInt(500),
		ItemType:   entity.ItemTypeWorkItem,
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
