package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/service-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/service-workflow/internal/domain/workflow"
)

var admin = entity.Actor{UserID: "u-root", Role: entity.RoleAdmin}

func newDirectory() (DirectoryService, *fakeCenters, *fakeStaff, *fakeAppointments) {
	centers := &fakeCenters{items: map[string]*entity.ServiceCenter{}}
	staff := &fakeStaff{}
	appts := &fakeAppointments{items: map[string]*entity.Appointment{}}
	return NewDirectoryService(centers, staff, appts, &mockLogger{}), centers, staff, appts
}

func TestDirectoryService_CreateServiceCenter(t *testing.T) {
	svc, centers, _, _ := newDirectory()
	ctx := context.Background()

	sc := &entity.ServiceCenter{Code: " sc001 ", Name: "Bengaluru Central"}
	require.NoError(t, svc.CreateServiceCenter(ctx, admin, sc))
	assert.Equal(t, "SC001", sc.Code)
	assert.NotEmpty(t, sc.ID)
	assert.Contains(t, centers.items, sc.ID)

	err := svc.CreateServiceCenter(ctx, advisor, &entity.ServiceCenter{Code: "SC002", Name: "x"})
	assert.True(t, errors.Is(err, domainwf.ErrWorkflowViolation))

	err = svc.CreateServiceCenter(ctx, admin, &entity.ServiceCenter{Name: "no code"})
	var v *domainwf.Violation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, RuleDirectoryMissingField, v.Rule)
}

func TestDirectoryService_StaffAndManagers(t *testing.T) {
	svc, _, staff, _ := newDirectory()
	ctx := context.Background()

	require.NoError(t, svc.CreateStaff(ctx, admin, &entity.Staff{ID: "m1", Name: "Meera", Role: entity.RoleSCManager, ServiceCenterID: "sc-1"}))
	require.NoError(t, svc.CreateStaff(ctx, admin, &entity.Staff{ID: "a1", Name: "Arun", Role: entity.RoleServiceAdvisor, ServiceCenterID: "sc-1"}))
	require.NoError(t, svc.CreateStaff(ctx, admin, &entity.Staff{ID: "m2", Name: "Ravi", Role: entity.RoleSCManager, ServiceCenterID: "sc-2"}))

	err := svc.CreateStaff(ctx, admin, &entity.Staff{Name: "Ghost", Role: "owner"})
	var v *domainwf.Violation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, RuleDirectoryInvalidRole, v.Rule)

	ids, err := NewManagerDirectory(staff).Resolve(ctx, "sc-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, ids)
}

func TestDirectoryService_CreateAppointment(t *testing.T) {
	svc, _, _, appts := newDirectory()
	ctx := context.Background()

	a := &entity.Appointment{CustomerID: "c-1", VehicleID: "V1", CustomerName: "Asha"}
	require.NoError(t, svc.CreateAppointment(ctx, callDesk, a))
	assert.Equal(t, "sc-1", a.ServiceCenterID)
	assert.Equal(t, entity.AppointmentScheduled, a.Status)
	assert.Equal(t, int64(1), appts.items[a.ID].Version)

	got, err := svc.GetAppointment(ctx, advisor, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha", got.CustomerName)

	_, err = svc.GetAppointment(ctx, outsider, a.ID)
	assert.Error(t, err)

	err = svc.CreateAppointment(ctx, engineer, &entity.Appointment{CustomerID: "c-1", VehicleID: "V1"})
	assert.True(t, errors.Is(err, domainwf.ErrWorkflowViolation))
}
