package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/garyjia/service-workflow/internal/application/port"
	"github.com/garyjia/service-workflow/internal/domain/entity"
	"github.com/garyjia/service-workflow/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/service-workflow/migrations"
	"github.com/garyjia/service-workflow/pkg/database"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "workflow.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = database.NewMigrator(db, logger).Run(migrations.FS)
	require.NoError(t, err)

	centers := NewServiceCenterRepository(db.DB, logger)
	require.NoError(t, centers.Create(context.Background(), &entity.ServiceCenter{
		ID: "sc-1", Code: "SC001", Name: "Bangalore Central", CheckInSlipPrefix: "BLR", StateCode: "KA", CreatedAt: testNow,
	}))
	return db.DB
}

func newJobCard(id, number, vehicleID string) *entity.JobCard {
	return &entity.JobCard{
		ID:                  id,
		JobCardNumber:       number,
		ServiceCenterID:     "sc-1",
		CustomerID:          "cust-1",
		VehicleID:           vehicleID,
		Status:              entity.JobCardCreated,
		Priority:            entity.PriorityNormal,
		Part1:               entity.JobCardPart1{CustomerName: "Asha", Complaint: "brake noise"},
		Part2:               []entity.Part2Item{{SrNo: 1, PartName: "Brake pad", Quantity: 2, Amount: decimal.NewFromInt(1200), ItemType: entity.ItemTypePart, PartWarrantyTag: true}},
		ManagerReviewStatus: entity.ReviewNone,
		CreatedBy:           "advisor-1",
		CreatedAt:           testNow,
		UpdatedAt:           testNow,
	}
}

func newQuotation(id, number string) *entity.Quotation {
	return &entity.Quotation{
		ID:              id,
		QuotationNumber: number,
		DocumentType:    entity.DocumentQuotation,
		ServiceCenterID: "sc-1",
		CustomerID:      "cust-1",
		VehicleID:       "veh-1",
		CustomerName:    "Asha",
		CustomerPhone:   "9876543210",
		Status:          entity.QuotationDraft,
		Items: []entity.QuotationItem{{
			SrNo: 1, PartName: "Brake pad", Quantity: 2,
			Rate: decimal.RequireFromString("600.00"), GSTPercent: decimal.NewFromInt(18), Amount: decimal.RequireFromString("1200.00"),
		}},
		RequestedDiscount: decimal.RequireFromString("1500.00"),
		Totals: entity.Totals{
			Subtotal:     decimal.RequireFromString("1200.00"),
			Discount:     decimal.Zero,
			PreGSTAmount: decimal.RequireFromString("1200.00"),
			CGST:         decimal.RequireFromString("108.00"),
			SGST:         decimal.RequireFromString("108.00"),
			IGST:         decimal.Zero,
			Total:        decimal.RequireFromString("1416.00"),
		},
		CreatedBy: "advisor-1",
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
}

func TestJobCardRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewJobCardRepository(db, zap.NewNop())
	ctx := context.Background()

	jc := newJobCard("jc-1", "SC001-2025-01-0001", "veh-1")
	require.NoError(t, repo.Create(ctx, jc))
	assert.Equal(t, int64(1), jc.Version)

	got, err := repo.GetByID(ctx, "jc-1")
	require.NoError(t, err)
	assert.Equal(t, "SC001-2025-01-0001", got.JobCardNumber)
	assert.Equal(t, entity.JobCardCreated, got.Status)
	assert.Equal(t, "brake noise", got.Part1.Complaint)
	require.Len(t, got.Part2, 1)
	assert.True(t, got.Part2[0].PartWarrantyTag)
	assert.True(t, got.Part2[0].Amount.Equal(decimal.NewFromInt(1200)))
	assert.Nil(t, got.Part2A)
	assert.Nil(t, got.CompletedAt)
	assert.True(t, got.CreatedAt.Equal(testNow))
}

func TestJobCardRepository_GetMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewJobCardRepository(db, zap.NewNop())

	_, err := repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestJobCardRepository_UpdateChecksVersion(t *testing.T) {
	db := setupTestDB(t)
	repo := NewJobCardRepository(db, zap.NewNop())
	ctx := context.Background()

	jc := newJobCard("jc-1", "SC001-2025-01-0001", "veh-1")
	require.NoError(t, repo.Create(ctx, jc))

	stale := jc.Clone()
	jc.Status = entity.JobCardAssigned
	jc.AssignedEngineerID = "eng-1"
	require.NoError(t, repo.Update(ctx, jc, 1))
	assert.Equal(t, int64(2), jc.Version)

	stale.Status = entity.JobCardCancelled
	err := repo.Update(ctx, stale, 1)
	assert.ErrorIs(t, err, port.ErrVersionConflict)

	got, err := repo.GetByID(ctx, "jc-1")
	require.NoError(t, err)
	assert.Equal(t, entity.JobCardAssigned, got.Status)
	assert.Equal(t, "eng-1", got.AssignedEngineerID)
	assert.Equal(t, int64(2), got.Version)
}

func TestJobCardRepository_OneActivePerVehicle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewJobCardRepository(db, zap.NewNop())
	ctx := context.Background()

	first := newJobCard("jc-1", "SC001-2025-01-0001", "veh-1")
	require.NoError(t, repo.Create(ctx, first))

	err := repo.Create(ctx, newJobCard("jc-2", "SC001-2025-01-0002", "veh-1"))
	var dup *port.DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, port.ConstraintActiveJobCard, dup.Constraint)
	assert.False(t, dup.IsNumberConstraint())

	first.Status = entity.JobCardCompleted
	completed := testNow.Add(time.Hour)
	first.CompletedAt = &completed
	require.NoError(t, repo.Update(ctx, first, first.Version))

	require.NoError(t, repo.Create(ctx, newJobCard("jc-2", "SC001-2025-01-0002", "veh-1")))

	active, err := repo.ListActiveByVehicle(ctx, "sc-1", "veh-1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "jc-2", active[0].ID)
}

func TestJobCardRepository_DuplicateNumber(t *testing.T) {
	db := setupTestDB(t)
	repo := NewJobCardRepository(db, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newJobCard("jc-1", "SC001-2025-01-0001", "veh-1")))
	err := repo.Create(ctx, newJobCard("jc-2", "SC001-2025-01-0001", "veh-2"))

	assert.ErrorIs(t, err, port.ErrDuplicate)
	var dup *port.DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, port.ConstraintJobCardNumber, dup.Constraint)
	assert.True(t, dup.IsNumberConstraint())
}

func TestJobCardRepository_CountCreatedBetween(t *testing.T) {
	db := setupTestDB(t)
	repo := NewJobCardRepository(db, zap.NewNop())
	ctx := context.Background()

	december := newJobCard("jc-0", "SC001-2024-12-0001", "veh-0")
	december.CreatedAt = time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, december))
	require.NoError(t, repo.Create(ctx, newJobCard("jc-1", "SC001-2025-01-0001", "veh-1")))
	require.NoError(t, repo.Create(ctx, newJobCard("jc-2", "SC001-2025-01-0002", "veh-2")))

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	count, err := repo.CountCreatedBetween(ctx, "sc-1", start, start.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestQuotationRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewQuotationRepository(db, zap.NewNop())
	ctx := context.Background()

	q := newQuotation("q-1", "SC001-QT-2025-0001")
	require.NoError(t, repo.Create(ctx, q))

	got, err := repo.GetByID(ctx, "q-1")
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentQuotation, got.DocumentType)
	assert.True(t, got.Totals.Total.Equal(decimal.RequireFromString("1416")))
	assert.True(t, got.Totals.CGST.Equal(decimal.RequireFromString("108")))
	assert.True(t, got.RequestedDiscount.Equal(decimal.RequireFromString("1500")))
	require.Len(t, got.Items, 1)
	assert.True(t, got.Items[0].Rate.Equal(decimal.NewFromInt(600)))
	assert.Empty(t, got.JobCardID)
	assert.Nil(t, got.SentToCustomerAt)
}

func TestQuotationRepository_OneLivePerCustomerVehicle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewQuotationRepository(db, zap.NewNop())
	ctx := context.Background()

	first := newQuotation("q-1", "SC001-QT-2025-0001")
	require.NoError(t, repo.Create(ctx, first))

	err := repo.Create(ctx, newQuotation("q-2", "SC001-QT-2025-0002"))
	var dup *port.DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, port.ConstraintActiveQuotation, dup.Constraint)

	first.Status = entity.QuotationCustomerRejected
	rejected := testNow.Add(time.Hour)
	first.CustomerRejectedAt = &rejected
	require.NoError(t, repo.Update(ctx, first, first.Version))

	require.NoError(t, repo.Create(ctx, newQuotation("q-2", "SC001-QT-2025-0002")))

	all, err := repo.ListByCustomerVehicle(ctx, "cust-1", "veh-1")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestQuotationRepository_JobCardLink(t *testing.T) {
	db := setupTestDB(t)
	jobCards := NewJobCardRepository(db, zap.NewNop())
	repo := NewQuotationRepository(db, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, jobCards.Create(ctx, newJobCard("jc-1", "SC001-2025-01-0001", "veh-1")))

	q := newQuotation("q-1", "SC001-QT-2025-0001")
	q.JobCardID = "jc-1"
	require.NoError(t, repo.Create(ctx, q))

	other := newQuotation("q-2", "SC001-QT-2025-0002")
	other.CustomerID = "cust-2"
	other.JobCardID = "jc-1"
	err := repo.Create(ctx, other)
	var dup *port.DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, port.ConstraintJobCardQuotation, dup.Constraint)

	linked, err := repo.ListByJobCard(ctx, "jc-1")
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, "q-1", linked[0].ID)
}

func TestQuotationRepository_CountByDocumentType(t *testing.T) {
	db := setupTestDB(t)
	repo := NewQuotationRepository(db, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newQuotation("q-1", "SC001-QT-2025-0001")))
	slip := newQuotation("q-2", "BLR-CIS-20250115-0001")
	slip.DocumentType = entity.DocumentCheckInSlip
	require.NoError(t, repo.Create(ctx, slip))

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	count, err := repo.CountCreatedBetween(ctx, "sc-1", entity.DocumentQuotation, start, start.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLeadRepository_Upsert(t *testing.T) {
	db := setupTestDB(t)
	quotations := NewQuotationRepository(db, zap.NewNop())
	repo := NewLeadRepository(db, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, quotations.Create(ctx, newQuotation("q-1", "SC001-QT-2025-0001")))

	_, err := repo.GetByQuotationID(ctx, "q-1")
	assert.ErrorIs(t, err, port.ErrNotFound)

	lead := &entity.Lead{
		ID: "lead-1", ServiceCenterID: "sc-1", CustomerID: "cust-1", VehicleID: "veh-1",
		QuotationID: "q-1", Status: entity.LeadQuotationSent, CreatedAt: testNow, UpdatedAt: testNow,
	}
	require.NoError(t, repo.Upsert(ctx, lead))

	followUp := testNow.AddDate(0, 0, 7)
	require.NoError(t, repo.Upsert(ctx, &entity.Lead{
		ID: "lead-2", ServiceCenterID: "sc-1", CustomerID: "cust-1", VehicleID: "veh-1",
		QuotationID: "q-1", Status: entity.LeadInDiscussion, FollowUpDate: &followUp,
		CreatedAt: testNow, UpdatedAt: testNow.Add(time.Hour),
	}))

	got, err := repo.GetByQuotationID(ctx, "q-1")
	require.NoError(t, err)
	assert.Equal(t, "lead-1", got.ID)
	assert.Equal(t, entity.LeadInDiscussion, got.Status)
	require.NotNil(t, got.FollowUpDate)
	assert.True(t, got.FollowUpDate.Equal(followUp))
}

func TestLeadRepository_FollowUps(t *testing.T) {
	db := setupTestDB(t)
	quotations := NewQuotationRepository(db, zap.NewNop())
	leads := NewLeadRepository(db, zap.NewNop())
	followUps := NewLeadFollowUpRepository(db, zap.NewNop())
	ctx := context.Background()

	due := testNow.Add(-time.Hour)
	later := testNow.AddDate(0, 0, 3)
	for i, fu := range []*time.Time{&due, &later, nil} {
		q := newQuotation(fmt.Sprintf("q-%d", i), fmt.Sprintf("SC001-QT-2025-%04d", i+1))
		q.VehicleID = fmt.Sprintf("veh-%d", i)
		require.NoError(t, quotations.Create(ctx, q))
		require.NoError(t, leads.Upsert(ctx, &entity.Lead{
			ID: fmt.Sprintf("lead-%d", i), ServiceCenterID: "sc-1", CustomerID: "cust-1", VehicleID: q.VehicleID,
			QuotationID: q.ID, Status: entity.LeadInDiscussion, FollowUpDate: fu,
			CreatedAt: testNow, UpdatedAt: testNow,
		}))
	}

	got, err := followUps.ListDueForFollowUp(ctx, testNow, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "lead-0", got[0].ID)

	err = followUps.ClearFollowUp(ctx, "lead-0", due.Add(time.Minute), testNow)
	assert.ErrorIs(t, err, port.ErrVersionConflict, "a rescheduled lead is left alone")

	require.NoError(t, followUps.ClearFollowUp(ctx, "lead-0", *got[0].FollowUpDate, testNow))

	got, err = followUps.ListDueForFollowUp(ctx, testNow, 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	lead, err := leads.GetByQuotationID(ctx, "q-0")
	require.NoError(t, err)
	assert.Nil(t, lead.FollowUpDate)
}

func TestHistoryRepository_ListInCommitOrder(t *testing.T) {
	db := setupTestDB(t)
	repo := NewHistoryRepository(db, zap.NewNop())
	ctx := context.Background()

	for _, status := range []string{"CREATED", "ASSIGNED", "IN_PROGRESS"} {
		require.NoError(t, repo.Create(ctx, &entity.StatusHistory{
			EntityType: entity.EntityJobCard, EntityID: "jc-1", ActorID: "advisor-1",
			ActorRole: entity.RoleServiceAdvisor, Action: "transition", NewStatus: status, Timestamp: testNow,
		}))
	}

	records, err := repo.ListByEntity(ctx, entity.EntityJobCard, "jc-1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "CREATED", records[0].NewStatus)
	assert.Empty(t, records[0].PreviousStatus)
	assert.Equal(t, "IN_PROGRESS", records[2].NewStatus)
}

func TestStaffRepository_ListActiveByRole(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStaffRepository(db, zap.NewNop())
	ctx := context.Background()

	staff := []*entity.Staff{
		{ID: "mgr-1", Name: "Ravi", Role: entity.RoleSCManager, ServiceCenterID: "sc-1", Active: true, CreatedAt: testNow},
		{ID: "mgr-2", Name: "Meena", Role: entity.RoleSCManager, ServiceCenterID: "sc-1", Active: false, CreatedAt: testNow},
		{ID: "adv-1", Name: "Kiran", Role: entity.RoleServiceAdvisor, ServiceCenterID: "sc-1", Active: true, CreatedAt: testNow},
	}
	for _, s := range staff {
		require.NoError(t, repo.Create(ctx, s))
	}

	managers, err := repo.ListActiveByRole(ctx, "sc-1", entity.RoleSCManager)
	require.NoError(t, err)
	require.Len(t, managers, 1)
	assert.Equal(t, "mgr-1", managers[0].ID)
}

func TestNotificationRepository_CreateAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNotificationRepository(db, zap.NewNop())
	ctx := context.Background()

	rec := &port.NotificationRecord{
		Template: "quotation_sent", EntityType: entity.EntityQuotation, EntityID: "q-1",
		Recipient: "customer", Channel: port.ChannelWhatsApp, Address: "+919876543210",
		Link: "https://wa.me/919876543210", Status: port.NotificationSent,
	}
	require.NoError(t, repo.Create(ctx, rec))
	assert.NotZero(t, rec.ID)

	records, err := repo.ListByEntity(ctx, entity.EntityQuotation, "q-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "+919876543210", records[0].Address)
}

func TestTransactionRollback(t *testing.T) {
	db := setupTestDB(t)
	tx := sqlite.NewDB(db, zap.NewNop())
	repo := NewJobCardRepository(db, zap.NewNop())
	ctx := context.Background()

	errAbort := errors.New("abort")
	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := repo.Create(ctx, newJobCard("jc-1", "SC001-2025-01-0001", "veh-1")); err != nil {
			return err
		}
		return errAbort
	})
	assert.ErrorIs(t, err, errAbort)

	_, err = repo.GetByID(ctx, "jc-1")
	assert.ErrorIs(t, err, port.ErrNotFound)
}
