package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/service-workflow/internal/application/port"
	"github.com/garyjia/service-workflow/internal/domain/entity"
	"github.com/garyjia/service-workflow/internal/domain/event"
)

var fixedNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeFollowUps struct {
	mu       sync.Mutex
	leads    []*entity.Lead
	cleared  []string
	conflict map[string]bool
}

func (f *fakeFollowUps) ListDueForFollowUp(ctx context.Context, before time.Time, limit int) ([]*entity.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Lead
	for _, l := range f.leads {
		if l.FollowUpDate != nil && !l.FollowUpDate.After(before) && len(out) < limit {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeFollowUps) ClearFollowUp(ctx context.Context, leadID string, due, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conflict[leadID] {
		return port.ErrVersionConflict
	}
	for _, l := range f.leads {
		if l.ID == leadID {
			l.FollowUpDate = nil
		}
	}
	f.cleared = append(f.cleared, leadID)
	return nil
}

type fakeQuotations struct {
	port.QuotationRepository
}

func (fakeQuotations) GetByID(ctx context.Context, id string) (*entity.Quotation, error) {
	if id == "q-missing" {
		return nil, port.ErrNotFound
	}
	return &entity.Quotation{ID: id, QuotationNumber: "SC001-QT-2025-0007", CustomerName: "Asha"}, nil
}

type fakeStaff struct {
	port.StaffRepository
	advisors []*entity.Staff
}

func (f *fakeStaff) ListActiveByRole(ctx context.Context, serviceCenterID string, role entity.Role) ([]*entity.Staff, error) {
	return f.advisors, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	notes []*port.Notification
	err   error
}

func (f *fakeNotifier) Notify(ctx context.Context, n *port.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.notes = append(f.notes, n)
	return nil
}

func dueLead(id, quotationID string, at time.Time) *entity.Lead {
	return &entity.Lead{
		ID: id, ServiceCenterID: "sc-1", CustomerID: "cust-1", VehicleID: "veh-1",
		QuotationID: quotationID, Status: entity.LeadInDiscussion, FollowUpDate: &at,
	}
}

func newTestWorker(leads *fakeFollowUps, staff *fakeStaff, notifier *fakeNotifier) *FollowUpWorker {
	w := NewFollowUpWorker(FollowUpWorkerConfig{BatchSize: 10}, leads, fakeQuotations{}, staff, notifier, zap.NewNop())
	w.now = func() time.Time { return fixedNow }
	return w
}

func TestFollowUpWorker_RemindsDueLeads(t *testing.T) {
	leads := &fakeFollowUps{leads: []*entity.Lead{
		dueLead("lead-1", "q-1", fixedNow.Add(-time.Hour)),
		dueLead("lead-2", "q-missing", fixedNow),
		dueLead("lead-3", "q-3", fixedNow.Add(time.Hour)),
	}}
	staff := &fakeStaff{advisors: []*entity.Staff{{ID: "sa-1"}, {ID: "sa-2"}}}
	notifier := &fakeNotifier{}

	sent, err := newTestWorker(leads, staff, notifier).RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, []string{"lead-1", "lead-2"}, leads.cleared)

	require.Len(t, notifier.notes, 2)
	first := notifier.notes[0]
	assert.Equal(t, event.TemplateLeadFollowUp, first.Template)
	assert.Equal(t, entity.EntityLead, first.EntityType)
	assert.Equal(t, []string{"sa-1", "sa-2"}, first.Recipients)
	assert.Contains(t, first.Message, "SC001-QT-2025-0007")
	assert.Contains(t, first.Message, "Asha")

	assert.Contains(t, notifier.notes[1].Message, "q-missing", "falls back to the quotation id")
}

func TestFollowUpWorker_NotifierFailureKeepsLeadDue(t *testing.T) {
	leads := &fakeFollowUps{leads: []*entity.Lead{dueLead("lead-1", "q-1", fixedNow)}}
	staff := &fakeStaff{advisors: []*entity.Staff{{ID: "sa-1"}}}
	notifier := &fakeNotifier{err: errors.New("outbox unavailable")}

	sent, err := newTestWorker(leads, staff, notifier).RunOnce(context.Background())

	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, leads.cleared)
	assert.NotNil(t, leads.leads[0].FollowUpDate)
}

func TestFollowUpWorker_UnreachableAdvisorDoesNotBlock(t *testing.T) {
	leads := &fakeFollowUps{leads: []*entity.Lead{dueLead("lead-1", "q-1", fixedNow)}}
	staff := &fakeStaff{advisors: []*entity.Staff{{ID: "sa-1"}}}
	notifier := &fakeNotifier{err: errors.Join(&port.UnreachableError{Recipient: "sa-1", Err: errors.New("no phone on file")})}

	sent, err := newTestWorker(leads, staff, notifier).RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"lead-1"}, leads.cleared)
}

func TestFollowUpWorker_NoAdvisorsStillClears(t *testing.T) {
	leads := &fakeFollowUps{leads: []*entity.Lead{dueLead("lead-1", "q-1", fixedNow)}}
	notifier := &fakeNotifier{}

	sent, err := newTestWorker(leads, &fakeStaff{}, notifier).RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Empty(t, notifier.notes)
	assert.Equal(t, []string{"lead-1"}, leads.cleared)
}

func TestFollowUpWorker_RescheduledLeadIsNotAnError(t *testing.T) {
	leads := &fakeFollowUps{
		leads:    []*entity.Lead{dueLead("lead-1", "q-1", fixedNow)},
		conflict: map[string]bool{"lead-1": true},
	}
	staff := &fakeStaff{advisors: []*entity.Staff{{ID: "sa-1"}}}

	sent, err := newTestWorker(leads, staff, &fakeNotifier{}).RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestManager_StartStop(t *testing.T) {
	leads := &fakeFollowUps{}
	w := NewFollowUpWorker(FollowUpWorkerConfig{PollInterval: 5 * time.Millisecond}, leads, fakeQuotations{},
		&fakeStaff{}, &fakeNotifier{}, zap.NewNop())

	m := NewManager(zap.NewNop())
	m.Register(w)
	assert.Equal(t, 1, m.Count())

	require.NoError(t, m.StartAll(context.Background()))
	assert.True(t, m.IsRunning())
	assert.Error(t, m.StartAll(context.Background()))
	assert.Error(t, w.Start(context.Background()), "worker refuses a second start")

	time.Sleep(20 * time.Millisecond)

	require.NoError(t, m.StopAll())
	assert.False(t, m.IsRunning())
	require.NoError(t, m.StopAll())
}

type scriptedWorker struct {
	name     string
	startErr error
	log      *[]string
}

func (w *scriptedWorker) Start(ctx context.Context) error {
	if w.startErr != nil {
		return w.startErr
	}
	*w.log = append(*w.log, "start "+w.name)
	return nil
}

func (w *scriptedWorker) Stop() error {
	*w.log = append(*w.log, "stop "+w.name)
	return nil
}

func (w *scriptedWorker) Name() string { return w.name }

func TestManager_StopsInReverseOrder(t *testing.T) {
	var log []string
	m := NewManager(zap.NewNop())
	m.Register(&scriptedWorker{name: "a", log: &log})
	m.Register(&scriptedWorker{name: "b", log: &log})

	require.NoError(t, m.StartAll(context.Background()))
	assert.Equal(t, []string{"a", "b"}, m.Names())
	require.NoError(t, m.StopAll())

	assert.Equal(t, []string{"start a", "start b", "stop b", "stop a"}, log)
	assert.Empty(t, m.Names())
}

func TestManager_StartFailureStopsStartedWorkers(t *testing.T) {
	var log []string
	m := NewManager(zap.NewNop())
	m.Register(&scriptedWorker{name: "a", log: &log})
	m.Register(&scriptedWorker{name: "b", log: &log, startErr: errors.New("boom")})

	err := m.StartAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start b")
	assert.False(t, m.IsRunning())
	assert.Equal(t, []string{"start a", "stop a"}, log)

	require.NoError(t, m.StopAll())
}
