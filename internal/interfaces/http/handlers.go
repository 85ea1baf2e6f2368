package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/garyjia/service-workflow/internal/application/service"
	"github.com/garyjia/service-workflow/internal/domain/entity"
	"github.com/garyjia/service-workflow/internal/domain/jobcard"
	"github.com/garyjia/service-workflow/internal/domain/quotation"
	"github.com/garyjia/service-workflow/pkg/utils"
)

// Version is reported by the health check
const Version = "1.0.0"

// Handlers contains all HTTP request handlers
type Handlers struct {
	workflow  service.WorkflowService
	directory service.DirectoryService
	validate  *validator.Validate
	logger    Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(workflow service.WorkflowService, directory service.DirectoryService, logger Logger) *Handlers {
	return &Handlers{
		workflow:  workflow,
		directory: directory,
		validate:  utils.NewValidator(),
		logger:    logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   Version,
	})
}

// Request bodies

type createJobCardRequest struct {
	ServiceCenterID string                `json:"service_center_id"`
	CustomerID      string                `json:"customer_id" validate:"required"`
	VehicleID       string                `json:"vehicle_id" validate:"required"`
	AppointmentID   string                `json:"appointment_id"`
	Priority        entity.Priority       `json:"priority" validate:"omitempty,oneof=LOW NORMAL HIGH CRITICAL"`
	Part1           entity.JobCardPart1   `json:"part1"`
	Part2           []entity.Part2Item    `json:"part2" validate:"dive"`
	Part2A          *entity.JobCardPart2A `json:"part2a"`
}

type updateJobCardRequest struct {
	Priority *entity.Priority      `json:"priority" validate:"omitempty,oneof=LOW NORMAL HIGH CRITICAL"`
	Part1    *entity.JobCardPart1  `json:"part1"`
	Part2    []entity.Part2Item    `json:"part2" validate:"omitempty,dive"`
	Part2A   *entity.JobCardPart2A `json:"part2a"`
}

type assignRequest struct {
	EngineerID string `json:"engineer_id" validate:"required"`
}

type notesRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

type passToManagerRequest struct {
	ManagerID string `json:"manager_id"`
}

type reviewRequest struct {
	Status entity.ManagerReviewStatus `json:"status" validate:"required,oneof=APPROVED REJECTED"`
	Notes  string                     `json:"notes" validate:"max=2000"`
}

type partsRequestRequest struct {
	Items []entity.PartsRequestItem `json:"items" validate:"required,min=1,dive"`
}

type createQuotationRequest struct {
	ServiceCenterID string                 `json:"service_center_id"`
	CustomerID      string                 `json:"customer_id" validate:"required"`
	VehicleID       string                 `json:"vehicle_id" validate:"required"`
	CustomerName    string                 `json:"customer_name"`
	CustomerPhone   string                 `json:"customer_phone"`
	JobCardID       string                 `json:"job_card_id"`
	AppointmentID   string                 `json:"appointment_id"`
	DocumentType    entity.DocumentType    `json:"document_type" validate:"required"`
	Items           []entity.QuotationItem `json:"items" validate:"dive"`
	Discount        decimal.Decimal        `json:"discount"`
	InterState      bool                   `json:"inter_state"`
	Notes           string                 `json:"notes"`
}

type updateQuotationRequest struct {
	Items         []entity.QuotationItem `json:"items" validate:"omitempty,dive"`
	Discount      *decimal.Decimal       `json:"discount"`
	InterState    *bool                  `json:"inter_state"`
	Notes         *string                `json:"notes"`
	CustomerName  *string                `json:"customer_name"`
	CustomerPhone *string                `json:"customer_phone"`
}

type decisionRequest struct {
	Approved *bool  `json:"approved" validate:"required"`
	Notes    string `json:"notes" validate:"max=2000"`
}

type createServiceCenterRequest struct {
	ID                string `json:"id"`
	Code              string `json:"code" validate:"required,max=16"`
	Name              string `json:"name" validate:"required"`
	CheckInSlipPrefix string `json:"check_in_slip_prefix"`
	StateCode         string `json:"state_code"`
}

type createStaffRequest struct {
	ID              string      `json:"id"`
	Name            string      `json:"name" validate:"required"`
	Role            entity.Role `json:"role" validate:"required"`
	ServiceCenterID string      `json:"service_center_id"`
	Phone           string      `json:"phone"`
}

type createAppointmentRequest struct {
	ServiceCenterID     string    `json:"service_center_id"`
	CustomerID          string    `json:"customer_id" validate:"required"`
	VehicleID           string    `json:"vehicle_id" validate:"required"`
	CustomerName        string    `json:"customer_name"`
	CustomerPhone       string    `json:"customer_phone"`
	VehicleRegistration string    `json:"vehicle_registration"`
	Complaint           string    `json:"complaint"`
	RequestedServices   []string  `json:"requested_services"`
	ScheduledAt         time.Time `json:"scheduled_at"`
}

// bindOptional binds req only when the request carries a body
func (h *Handlers) bindOptional(c *gin.Context, req interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return h.bind(c, req)
}

// Job cards

// CreateJobCard handles POST /api/job-cards
func (h *Handlers) CreateJobCard(c *gin.Context) {
	var req createJobCardRequest
	if !h.bind(c, &req) {
		return
	}
	actor := actorFrom(c)

	draft := jobcard.Draft{
		ServiceCenterID: req.ServiceCenterID,
		CustomerID:      req.CustomerID,
		VehicleID:       req.VehicleID,
		AppointmentID:   req.AppointmentID,
		Priority:        req.Priority,
		Part1:           req.Part1,
		Part2:           req.Part2,
		Part2A:          req.Part2A,
	}
	if draft.ServiceCenterID == "" {
		draft.ServiceCenterID = actor.ServiceCenterID
	}

	out, err := h.workflow.CreateJobCard(c.Request.Context(), actor, draft)
	h.writeOutcome(c, http.StatusCreated, out, err)
}

// CreateJobCardFromAppointment handles POST /api/appointments/:id/job-card
func (h *Handlers) CreateJobCardFromAppointment(c *gin.Context) {
	out, err := h.workflow.CreateJobCardFromAppointment(c.Request.Context(), actorFrom(c), c.Param("id"))
	h.writeOutcome(c, http.StatusCreated, out, err)
}

// jobCardView is a job card with the transitions the caller may fire on it
type jobCardView struct {
	*entity.JobCard
	PermittedActions []jobcard.Trigger `json:"permitted_actions"`
}

// GetJobCard handles GET /api/job-cards/:id
func (h *Handlers) GetJobCard(c *gin.Context) {
	ctx, actor := c.Request.Context(), actorFrom(c)
	jc, err := h.workflow.GetJobCardByID(ctx, actor, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	actions, err := h.workflow.PermittedJobCardActions(ctx, actor, jc)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: jobCardView{JobCard: jc, PermittedActions: actions}})
}

// UpdateJobCard handles PATCH /api/job-cards/:id
func (h *Handlers) UpdateJobCard(c *gin.Context) {
	var req updateJobCardRequest
	if !h.bind(c, &req) {
		return
	}
	patch := jobcard.Patch{
		Priority: req.Priority,
		Part1:    req.Part1,
		Part2:    req.Part2,
		Part2A:   req.Part2A,
	}
	if patch.IsEmpty() {
		c.JSON(http.StatusBadRequest, Response{Error: "nothing to update"})
		return
	}

	out, err := h.workflow.UpdateJobCard(c.Request.Context(), actorFrom(c), c.Param("id"), patch)
	h.writeOutcome(c, http.StatusOK, out, err)
}

// AssignJobCard handles POST /api/job-cards/:id/assign
func (h *Handlers) AssignJobCard(c *gin.Context) {
	var req assignRequest
	if !h.bind(c, &req) {
		return
	}
	out, err := h.workflow.AssignJobCard(c.Request.Context(), actorFrom(c), c.Param("id"), req.EngineerID)
	h.writeOutcome(c, http.StatusOK, out, err)
}

// StartJobCard handles POST /api/job-cards/:id/start
func (h *Handlers) StartJobCard(c *gin.Context) {
	out, err := h.workflow.StartJobCard(c.Request.Context(), actorFrom(c), c.Param("id"))
	h.writeOutcome(c, http.StatusOK, out, err)
}

// CompleteJobCard handles POST /api/job-cards/:id/complete
func (h *Handlers) CompleteJobCard(c *gin.Context) {
	out, err := h.workflow.CompleteJobCard(c.Request.Context(), actorFrom(c), c.Param("id"))
	h.writeOutcome(c, http.StatusOK, out, err)
}

// CancelJobCard handles POST /api/job-cards/:id/cancel
func (h *Handlers) CancelJobCard(c *gin.Context) {
	var req notesRequest
	if !h.bindOptional(c, &req) {
		return
	}
	out, err := h.workflow.CancelJobCard(c.Request.Context(), actorFrom(c), c.Param("id"), req.Notes)
	h.writeOutcome(c, http.StatusOK, out, err)
}

// PassJobCardToManager handles POST /api/job-cards/:id/pass-to-manager
func (h *Handlers) PassJobCardToManager(c *gin.Context) {
	var req passToManagerRequest
	if !h.bindOptional(c, &req) {
		return
	}
	out, err := h.workflow.PassJobCardToManager(c.Request.Context(), actorFrom(c), c.Param("id"), req.ManagerID)
	h.writeOutcome(c, http.StatusOK, out, err)
}

// ReviewJobCard handles POST /api/job-cards/:id/review
func (h *Handlers) ReviewJobCard(c *gin.Context) {
	var req reviewRequest
	if !h.bind(c, &req) {
		return
	}
	out, err := h.workflow.ReviewJobCard(c.Request.Context(), actorFrom(c), c.Param("id"), req.Status, req.Notes)
	h.writeOutcome(c, http.StatusOK, out, err)
}

// Parts requests

// CreatePartsRequest handles POST /api/job-cards/:id/parts-requests
func (h *Handlers) CreatePartsRequest(c *gin.Context) {
	var req partsRequestRequest
	if !h.bind(c, &req) {
		return
	}
	out, err := h.workflow.CreatePartsRequest(c.Request.Context(), actorFrom(c), c.Param("id"), req.Items)
	h.writeOutcome(c, http.StatusCreated, out, err)
}

// ListPartsRequests handles GET /api/job-cards/:id/parts-requests
func (h *Handlers) ListPartsRequests(c *gin.Context) {
	prs, err := h.workflow.ListPartsRequests(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: prs})
}

// FulfillPartsRequest handles POST /api/parts-requests/:id/fulfill
func (h *Handlers) FulfillPartsRequest(c *gin.Context) {
	out, err := h.workflow.FulfillPartsRequest(c.Request.Context(), actorFrom(c), c.Param("id"))
	h.writeOutcome(c, http.StatusOK, out, err)
}

// CancelPartsRequest handles POST /api/parts-requests/:id/cancel
func (h *Handlers) CancelPartsRequest(c *gin.Context) {
	out, err := h.workflow.CancelPartsRequest(c.Request.Context(), actorFrom(c), c.Param("id"))
	h.writeOutcome(c, http.StatusOK, out, err)
}

// Quotations

// CreateQuotation handles POST /api/quotations
func (h *Handlers) CreateQuotation(c *gin.Context) {
	var req createQuotationRequest
	if !h.bind(c, &req) {
		return
	}
	actor := actorFrom(c)

	draft := quotation.Draft{
		ServiceCenterID: req.ServiceCenterID,
		CustomerID:      req.CustomerID,
		VehicleID:       req.VehicleID,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		JobCardID:       req.JobCardID,
		AppointmentID:   req.AppointmentID,
		DocumentType:    req.DocumentType,
		Items:           req.Items,
		Discount:        req.Discount,
		InterState:      req.InterState,
		Notes:           req.Notes,
	}
	if draft.ServiceCenterID == "" {
		draft.ServiceCenterID = actor.ServiceCenterID
	}

	out, err := h.workflow.CreateQuotation(c.Request.Context(), actor, draft)
	h.writeOutcome(c, http.StatusCreated, out, err)
}

// GetQuotation handles GET /api/quotations/:id
func (h *Handlers) GetQuotation(c *gin.Context) {
	q, err := h.workflow.GetQuotationByID(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: q})
}

// UpdateQuotation handles PATCH /api/quotations/:id
func (h *Handlers) UpdateQuotation(c *gin.Context) {
	var req updateQuotationRequest
	if !h.bind(c, &req) {
		return
	}
	patch := quotation.Patch{
		Items:         req.Items,
		Discount:      req.Discount,
		InterState:    req.InterState,
		Notes:         req.Notes,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
	}
	out, err := h.workflow.UpdateQuotation(c.Request.Context(), actorFrom(c), c.Param("id"), patch)
	h.writeOutcome(c, http.StatusOK, out, err)
}

// SendQuotationToCustomer handles POST /api/quotations/:id/send-to-customer
func (h *Handlers) SendQuotationToCustomer(c *gin.Context) {
	out, err := h.workflow.SendQuotationToCustomer(c.Request.Context(), actorFrom(c), c.Param("id"))
	h.writeOutcome(c, http.StatusOK, out, err)
}

// RecordCustomerDecision handles POST /api/quotations/:id/customer-decision
func (h *Handlers) RecordCustomerDecision(c *gin.Context) {
	var req decisionRequest
	if !h.bind(c, &req) {
		return
	}
	out, err := h.workflow.RecordCustomerDecision(c.Request.Context(), actorFrom(c), c.Param("id"), *req.Approved, req.Notes)
	h.writeOutcome(c, http.StatusOK, out, err)
}

// SendQuotationToManager handles POST /api/quotations/:id/send-to-manager
func (h *Handlers) SendQuotationToManager(c *gin.Context) {
	out, err := h.workflow.SendQuotationToManager(c.Request.Context(), actorFrom(c), c.Param("id"))
	h.writeOutcome(c, http.StatusOK, out, err)
}

// RecordManagerDecision handles POST /api/quotations/:id/manager-decision
func (h *Handlers) RecordManagerDecision(c *gin.Context) {
	var req decisionRequest
	if !h.bind(c, &req) {
		return
	}
	out, err := h.workflow.RecordManagerDecision(c.Request.Context(), actorFrom(c), c.Param("id"), *req.Approved, req.Notes)
	h.writeOutcome(c, http.StatusOK, out, err)
}

// History

// HistoryHandler returns a handler listing the status history of entityType
func (h *Handlers) HistoryHandler(entityType entity.EntityType) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := h.workflow.GetHistory(c.Request.Context(), actorFrom(c), entityType, c.Param("id"))
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, Response{Success: true, Data: rows})
	}
}

// Directory

// CreateServiceCenter handles POST /api/service-centers
func (h *Handlers) CreateServiceCenter(c *gin.Context) {
	var req createServiceCenterRequest
	if !h.bind(c, &req) {
		return
	}
	sc := &entity.ServiceCenter{
		ID:                req.ID,
		Code:              req.Code,
		Name:              req.Name,
		CheckInSlipPrefix: req.CheckInSlipPrefix,
		StateCode:         req.StateCode,
	}
	if err := h.directory.CreateServiceCenter(c.Request.Context(), actorFrom(c), sc); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: sc})
}

// GetServiceCenter handles GET /api/service-centers/:id
func (h *Handlers) GetServiceCenter(c *gin.Context) {
	sc, err := h.directory.GetServiceCenter(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: sc})
}

// CreateStaff handles POST /api/staff
func (h *Handlers) CreateStaff(c *gin.Context) {
	var req createStaffRequest
	if !h.bind(c, &req) {
		return
	}
	st := &entity.Staff{
		ID:              req.ID,
		Name:            req.Name,
		Role:            req.Role,
		ServiceCenterID: req.ServiceCenterID,
		Phone:           req.Phone,
	}
	if err := h.directory.CreateStaff(c.Request.Context(), actorFrom(c), st); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: st})
}

// CreateAppointment handles POST /api/appointments
func (h *Handlers) CreateAppointment(c *gin.Context) {
	var req createAppointmentRequest
	if !h.bind(c, &req) {
		return
	}
	a := &entity.Appointment{
		ServiceCenterID:     req.ServiceCenterID,
		CustomerID:          req.CustomerID,
		VehicleID:           req.VehicleID,
		CustomerName:        req.CustomerName,
		CustomerPhone:       req.CustomerPhone,
		VehicleRegistration: req.VehicleRegistration,
		Complaint:           req.Complaint,
		RequestedServices:   req.RequestedServices,
		ScheduledAt:         req.ScheduledAt,
	}
	if err := h.directory.CreateAppointment(c.Request.Context(), actorFrom(c), a); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: a})
}

// GetAppointment handles GET /api/appointments/:id
func (h *Handlers) GetAppointment(c *gin.Context) {
	a, err := h.directory.GetAppointment(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: a})
}
