package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/service-workflow/internal/application/port"
	"github.com/garyjia/service-workflow/internal/application/service"
	"github.com/garyjia/service-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/service-workflow/internal/domain/workflow"
	"github.com/garyjia/service-workflow/pkg/utils"
)

// Response represents a standard JSON response
type Response struct {
	Success  bool              `json:"success"`
	Data     interface{}       `json:"data,omitempty"`
	Error    string            `json:"error,omitempty"`
	Code     string            `json:"code,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
	Conflict *ConflictInfo     `json:"conflict,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
}

// ConflictInfo names the entity that blocked a linkage
type ConflictInfo struct {
	EntityType string `json:"entity_type"`
	ID         string `json:"id,omitempty"`
	Number     string `json:"number,omitempty"`
}

// OutcomeResponse is a committed transition
type OutcomeResponse struct {
	Action           string               `json:"action"`
	EntityType       entity.EntityType    `json:"entity_type"`
	EntityID         string               `json:"entity_id"`
	PreviousStatus   string               `json:"previous_status,omitempty"`
	NewStatus        string               `json:"new_status"`
	JobCard          *entity.JobCard      `json:"job_card,omitempty"`
	Quotation        *entity.Quotation    `json:"quotation,omitempty"`
	PartsRequest     *entity.PartsRequest `json:"parts_request,omitempty"`
	Lead             *entity.Lead         `json:"lead,omitempty"`
	DocumentURL      string               `json:"document_url,omitempty"`
	RecipientChannel *port.Channel        `json:"recipient_channel,omitempty"`
}

func toOutcomeResponse(out *service.Outcome) OutcomeResponse {
	return OutcomeResponse{
		Action:           string(out.Action),
		EntityType:       out.EntityType,
		EntityID:         out.EntityID,
		PreviousStatus:   out.PreviousStatus,
		NewStatus:        out.NewStatus,
		JobCard:          out.JobCard,
		Quotation:        out.Quotation,
		PartsRequest:     out.PartsRequest,
		Lead:             out.Lead,
		DocumentURL:      out.DocumentURL,
		RecipientChannel: out.RecipientChannel,
	}
}

// writeOutcome writes a mutating call's result. A committed outcome whose
// post-commit effects failed is still a success, reported with warnings.
func (h *Handlers) writeOutcome(c *gin.Context, status int, out *service.Outcome, err error) {
	if err != nil && (out == nil || !errors.Is(err, domainwf.ErrSideEffectFailed)) {
		h.writeError(c, err)
		return
	}

	resp := Response{Success: true, Data: toOutcomeResponse(out)}
	for _, w := range out.Warnings {
		resp.Warnings = append(resp.Warnings, w.Error())
	}
	c.JSON(status, resp)
}

// writeError maps error kinds to status codes
func (h *Handlers) writeError(c *gin.Context, err error) {
	var (
		violation *domainwf.Violation
		linkage   *domainwf.LinkageConflict
		conflict  *domainwf.ConflictError
	)

	switch {
	case errors.As(err, &violation):
		c.JSON(http.StatusUnprocessableEntity, Response{Error: violation.Message, Code: violation.Rule})
	case errors.As(err, &linkage):
		c.JSON(http.StatusConflict, Response{
			Error: linkage.Message,
			Code:  linkage.Rule,
			Conflict: &ConflictInfo{
				EntityType: linkage.EntityType,
				ID:         linkage.ConflictingID,
				Number:     linkage.ConflictingNumber,
			},
		})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, Response{Error: conflict.Error(), Code: "conflict"})
	case errors.Is(err, port.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Error: "not found"})
	default:
		h.logger.Error("Request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, Response{Error: "internal error"})
	}
}

// bind decodes the JSON body into req and validates it
func (h *Handlers) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid request body: " + err.Error()})
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		if fields := utils.ValidationErrors(err); fields != nil {
			c.JSON(http.StatusBadRequest, Response{Error: "validation failed", Fields: fields})
			return false
		}
		c.JSON(http.StatusBadRequest, Response{Error: err.Error()})
		return false
	}
	return true
}
