package availability

import (
	"errors"
	"net/http"

	"sorso/internal/events"
	"sorso/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Controller struct {
	service   Service
	validator *validator.Validate
}

func NewController(service Service) *Controller {
	return &Controller{service: service, validator: validator.New()}
}

// GetAvailability handles GET /events/:id/availability
func (ctrl *Controller) GetAvailability(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}

	rows, err := ctrl.service.ForEvent(c.Request.Context(), eventID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, http.StatusOK, "Availability retrieved successfully", rows)
}

// CreateRows handles POST /staff/events/:id/packages
func (ctrl *Controller) CreateRows(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}

	var req TotalsRequest
	if !ctrl.bind(c, &req) {
		return
	}

	rows, err := ctrl.service.CreateRows(c.Request.Context(), eventID, req.Totals)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, http.StatusCreated, "Package rows created", rows)
}

// UpdateTotals handles PATCH /staff/events/:id/packages
func (ctrl *Controller) UpdateTotals(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}

	var req TotalsRequest
	if !ctrl.bind(c, &req) {
		return
	}

	rows, err := ctrl.service.UpdateTotals(c.Request.Context(), eventID, req.Totals)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, http.StatusOK, "Package totals updated", rows)
}

func (ctrl *Controller) bind(c *gin.Context, req *TotalsRequest) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "Invalid request body", response.CodeInvalidRequest, err.Error())
		return false
	}
	if err := ctrl.validator.Struct(req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "Validation failed", response.CodeValidation, err.Error())
		return false
	}
	return true
}

func respondServiceError(c *gin.Context, err error) {
	var below *BelowBookedError
	switch {
	case errors.As(err, &below):
		response.RespondError(c, http.StatusConflict, "Totals cannot go below booked tables", response.CodeTotalBelowBooked, below.Violations)
	case errors.Is(err, events.ErrEventNotFound):
		response.RespondError(c, http.StatusNotFound, "Event not found", response.CodeNotFound, nil)
	case errors.Is(err, ErrInvalidTotals):
		response.RespondError(c, http.StatusBadRequest, err.Error(), response.CodeValidation, nil)
	default:
		response.RespondError(c, http.StatusInternalServerError, "Failed to process availability", response.CodeInternal, nil)
	}
}

func parseEventID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "Invalid event ID", response.CodeInvalidRequest, err.Error())
		return uuid.Nil, false
	}
	return id, true
}
