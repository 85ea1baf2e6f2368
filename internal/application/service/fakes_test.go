package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/garyjia/service-workflow/internal/application/dispatcher"
	"github.com/garyjia/service-workflow/internal/application/port"
	"github.com/garyjia/service-workflow/internal/application/workflow"
	"github.com/garyjia/service-workflow/internal/domain/entity"
	"github.com/garyjia/service-workflow/internal/domain/event"
)

var fixedNow = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

type fakeJobCards struct {
	mu          sync.Mutex
	items       map[string]*entity.JobCard
	createErrs  []error
	updateFails int
	updates     int
}

func (f *fakeJobCards) Create(ctx context.Context, jc *entity.JobCard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		return err
	}
	jc.Version = 1
	f.items[jc.ID] = jc.Clone()
	return nil
}

func (f *fakeJobCards) Update(ctx context.Context, jc *entity.JobCard, expected int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.updateFails > 0 {
		f.updateFails--
		return port.ErrVersionConflict
	}
	cur, ok := f.items[jc.ID]
	if !ok {
		return port.ErrNotFound
	}
	if cur.Version != expected {
		return port.ErrVersionConflict
	}
	jc.Version = expected + 1
	f.items[jc.ID] = jc.Clone()
	return nil
}

func (f *fakeJobCards) GetByID(ctx context.Context, id string) (*entity.JobCard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if jc, ok := f.items[id]; ok {
		return jc.Clone(), nil
	}
	return nil, port.ErrNotFound
}

func (f *fakeJobCards) ListActiveByVehicle(ctx context.Context, serviceCenterID, vehicleID string) ([]*entity.JobCard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.JobCard
	for _, jc := range f.items {
		if jc.ServiceCenterID == serviceCenterID && jc.VehicleID == vehicleID && jc.IsActive() {
			out = append(out, jc.Clone())
		}
	}
	return out, nil
}

func (f *fakeJobCards) CountCreatedBetween(ctx context.Context, serviceCenterID string, start, end time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, jc := range f.items {
		if jc.ServiceCenterID == serviceCenterID && !jc.CreatedAt.Before(start) && jc.CreatedAt.Before(end) {
			n++
		}
	}
	return n, nil
}

type fakeQuotations struct {
	mu         sync.Mutex
	items      map[string]*entity.Quotation
	createErrs []error
	// rival is stored alongside the first create error, as if another
	// transaction had committed it first
	rival *entity.Quotation
}

func (f *fakeQuotations) Create(ctx context.Context, q *entity.Quotation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if f.rival != nil {
			f.items[f.rival.ID] = f.rival.Clone()
			f.rival = nil
		}
		return err
	}
	q.Version = 1
	f.items[q.ID] = q.Clone()
	return nil
}

func (f *fakeQuotations) Update(ctx context.Context, q *entity.Quotation, expected int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.items[q.ID]
	if !ok {
		return port.ErrNotFound
	}
	if cur.Version != expected {
		return port.ErrVersionConflict
	}
	q.Version = expected + 1
	f.items[q.ID] = q.Clone()
	return nil
}

func (f *fakeQuotations) GetByID(ctx context.Context, id string) (*entity.Quotation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if q, ok := f.items[id]; ok {
		return q.Clone(), nil
	}
	return nil, port.ErrNotFound
}

func (f *fakeQuotations) list(match func(q *entity.Quotation) bool) []*entity.Quotation {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Quotation
	for _, q := range f.items {
		if match(q) {
			out = append(out, q.Clone())
		}
	}
	return out
}

func (f *fakeQuotations) ListByCustomerVehicle(ctx context.Context, customerID, vehicleID string) ([]*entity.Quotation, error) {
	return f.list(func(q *entity.Quotation) bool { return q.CustomerID == customerID && q.VehicleID == vehicleID }), nil
}

func (f *fakeQuotations) ListByJobCard(ctx context.Context, jobCardID string) ([]*entity.Quotation, error) {
	return f.list(func(q *entity.Quotation) bool { return q.JobCardID == jobCardID }), nil
}

func (f *fakeQuotations) CountCreatedBetween(ctx context.Context, serviceCenterID string, dt entity.DocumentType, start, end time.Time) (int, error) {
	return len(f.list(func(q *entity.Quotation) bool {
		return q.ServiceCenterID == serviceCenterID && q.DocumentType == dt &&
			!q.CreatedAt.Before(start) && q.CreatedAt.Before(end)
	})), nil
}

type fakeAppointments struct {
	mu    sync.Mutex
	items map[string]*entity.Appointment
}

func (f *fakeAppointments) Create(ctx context.Context, a *entity.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.Version = 1
	f.items[a.ID] = a.Clone()
	return nil
}

func (f *fakeAppointments) GetByID(ctx context.Context, id string) (*entity.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.items[id]; ok {
		return a.Clone(), nil
	}
	return nil, port.ErrNotFound
}

func (f *fakeAppointments) Update(ctx context.Context, a *entity.Appointment, expected int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.items[a.ID]
	if !ok {
		return port.ErrNotFound
	}
	if cur.Version != expected {
		return port.ErrVersionConflict
	}
	a.Version = expected + 1
	f.items[a.ID] = a.Clone()
	return nil
}

type fakePartsRequests struct {
	mu    sync.Mutex
	items map[string]*entity.PartsRequest
}

func (f *fakePartsRequests) Create(ctx context.Context, pr *entity.PartsRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	pr.Version = 1
	f.items[pr.ID] = pr.Clone()
	return nil
}

func (f *fakePartsRequests) Update(ctx context.Context, pr *entity.PartsRequest, expected int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.items[pr.ID]
	if !ok {
		return port.ErrNotFound
	}
	if cur.Version != expected {
		return port.ErrVersionConflict
	}
	pr.Version = expected + 1
	f.items[pr.ID] = pr.Clone()
	return nil
}

func (f *fakePartsRequests) GetByID(ctx context.Context, id string) (*entity.PartsRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pr, ok := f.items[id]; ok {
		return pr.Clone(), nil
	}
	return nil, port.ErrNotFound
}

func (f *fakePartsRequests) ListByJobCard(ctx context.Context, jobCardID string) ([]*entity.PartsRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.PartsRequest
	for _, pr := range f.items {
		if pr.JobCardID == jobCardID {
			out = append(out, pr.Clone())
		}
	}
	return out, nil
}

type fakeLeads struct {
	mu          sync.Mutex
	byQuotation map[string]entity.Lead
}

func (f *fakeLeads) GetByQuotationID(ctx context.Context, quotationID string) (*entity.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.byQuotation[quotationID]; ok {
		return &l, nil
	}
	return nil, port.ErrNotFound
}

func (f *fakeLeads) Upsert(ctx context.Context, lead *entity.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byQuotation[lead.QuotationID] = *lead
	return nil
}

type fakeHistory struct {
	mu      sync.Mutex
	entries []*entity.StatusHistory
}

func (f *fakeHistory) Create(ctx context.Context, h *entity.StatusHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	h.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, h)
	return nil
}

func (f *fakeHistory) ListByEntity(ctx context.Context, entityType entity.EntityType, entityID string) ([]*entity.StatusHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.StatusHistory
	for _, h := range f.entries {
		if h.EntityType == entityType && h.EntityID == entityID {
			out = append(out, h)
		}
	}
	return out, nil
}

type fakeCenters struct {
	items map[string]*entity.ServiceCenter
}

func (f *fakeCenters) Create(ctx context.Context, sc *entity.ServiceCenter) error {
	f.items[sc.ID] = sc
	return nil
}

func (f *fakeCenters) GetByID(ctx context.Context, id string) (*entity.ServiceCenter, error) {
	if sc, ok := f.items[id]; ok {
		return sc, nil
	}
	return nil, port.ErrNotFound
}

type fakeStaff struct {
	items []*entity.Staff
}

func (f *fakeStaff) Create(ctx context.Context, s *entity.Staff) error {
	f.items = append(f.items, s)
	return nil
}

func (f *fakeStaff) GetByID(ctx context.Context, id string) (*entity.Staff, error) {
	for _, s := range f.items {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, port.ErrNotFound
}

func (f *fakeStaff) ListActiveByRole(ctx context.Context, serviceCenterID string, role entity.Role) ([]*entity.Staff, error) {
	var out []*entity.Staff
	for _, s := range f.items {
		if s.Active && s.Role == role && s.ServiceCenterID == serviceCenterID {
			out = append(out, s)
		}
	}
	return out, nil
}

type mockTxManager struct {
	calls int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type fakeDocuments struct {
	err error
}

func (f *fakeDocuments) Generate(ctx context.Context, q *entity.Quotation, sc *entity.ServiceCenter) (*port.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	name := q.QuotationNumber + ".xlsx"
	return &port.Document{FileName: name, Path: sc.Code + "/" + name, URL: "https://docs.test/" + sc.Code + "/" + name}, nil
}

type fakeChannels struct{}

func (fakeChannels) Resolve(phone, message string) (*port.Channel, error) {
	if phone == "" || phone[0] != '+' {
		return nil, fmt.Errorf("invalid phone %q", phone)
	}
	return &port.Channel{Kind: port.ChannelWhatsApp, Address: phone, Link: "https://wa.me/" + phone[1:]}, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []*port.Notification
	err  error
}

func (r *recordingNotifier) Notify(ctx context.Context, n *port.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, n)
	return nil
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

type harness struct {
	jobCards     *fakeJobCards
	quotations   *fakeQuotations
	appointments *fakeAppointments
	parts        *fakePartsRequests
	leads        *fakeLeads
	history      *fakeHistory
	staff        *fakeStaff
	tx           *mockTxManager
	docs         *fakeDocuments
	notifier     *recordingNotifier
	svc          WorkflowService
}

func newHarness() *harness {
	h := &harness{
		jobCards:     &fakeJobCards{items: map[string]*entity.JobCard{}},
		quotations:   &fakeQuotations{items: map[string]*entity.Quotation{}},
		appointments: &fakeAppointments{items: map[string]*entity.Appointment{}},
		parts:        &fakePartsRequests{items: map[string]*entity.PartsRequest{}},
		leads:        &fakeLeads{byQuotation: map[string]entity.Lead{}},
		history:      &fakeHistory{},
		staff: &fakeStaff{items: []*entity.Staff{
			{ID: "u-mgr", Name: "Meera", Role: entity.RoleSCManager, ServiceCenterID: "sc-1", Active: true},
		}},
		tx:       &mockTxManager{},
		docs:     &fakeDocuments{},
		notifier: &recordingNotifier{},
	}
	centers := &fakeCenters{items: map[string]*entity.ServiceCenter{
		"sc-1": {ID: "sc-1", Code: "SC001", Name: "Bengaluru Central", CheckInSlipPrefix: "BLR", StateCode: "29"},
	}}

	n := 0
	clock := func() time.Time { return fixedNow }
	orch := workflow.NewOrchestrator(
		workflow.WithClock(clock),
		workflow.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	)

	d := dispatcher.NewDispatcher()
	_ = d.Subscribe(event.TypeNotificationSend, "recorder", NotificationHandler(h.notifier))

	h.svc = NewWorkflowService(
		Repositories{
			JobCards:       h.jobCards,
			Quotations:     h.quotations,
			Appointments:   h.appointments,
			PartsRequests:  h.parts,
			Leads:          h.leads,
			History:        h.history,
			ServiceCenters: centers,
		},
		orch,
		h.tx,
		NewManagerDirectory(h.staff),
		h.docs,
		fakeChannels{},
		d,
		Options{ConflictRetries: 1, Now: clock},
		&mockLogger{},
	)
	return h
}

var errBoom = errors.New("boom")
