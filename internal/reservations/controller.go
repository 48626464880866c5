package reservations

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"sorso/internal/events"
	"sorso/internal/packages"
	"sorso/internal/shared/utils/response"
	"sorso/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Controller struct {
	service   Service
	validator *validator.Validate
	log       *logger.Logger
}

func NewController(service Service, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.Discard()
	}
	return &Controller{
		service:   service,
		validator: validator.New(),
		log:       log.WithComponent("reservations-http"),
	}
}

// CreateReservation handles POST /reservations
// @Summary Book tables for a night
// @Tags reservations
// @Accept json
// @Produce json
// @Param request body CreateReservationRequest true "Reservation"
// @Success 201 {object} response.StandardApiResponse
// @Failure 409 {object} response.StandardApiResponse
// @Router /reservations [post]
func (ctrl *Controller) CreateReservation(c *gin.Context) {
	var req CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "Invalid request body", response.CodeInvalidRequest, err.Error())
		return
	}
	if err := ctrl.validator.Struct(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "Validation failed", response.CodeValidation, err.Error())
		return
	}

	resp, err := ctrl.service.Create(c.Request.Context(), req)
	if err != nil {
		ctrl.respondServiceError(c, err)
		return
	}
	response.RespondOK(c, http.StatusCreated, "Reservation confirmed", resp)
}

// ListForEvent handles GET /staff/events/:id/reservations
func (ctrl *Controller) ListForEvent(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}

	resp, err := ctrl.service.ListForEvent(c.Request.Context(), eventID)
	if err != nil {
		ctrl.respondServiceError(c, err)
		return
	}
	response.RespondOK(c, http.StatusOK, "Reservations retrieved successfully", resp)
}

// ExportPDF handles GET /staff/events/:id/reservations/export
func (ctrl *Controller) ExportPDF(c *gin.Context) {
	eventID, ok := parseEventID(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	filename, err := ctrl.service.ExportPDF(c.Request.Context(), eventID, &buf)
	if err != nil {
		ctrl.respondServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (ctrl *Controller) respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrCapacityExceeded):
		response.RespondError(c, http.StatusConflict, ErrCapacityExceeded.Error(), response.CodeCapacityExceeded, nil)
	case errors.Is(err, events.ErrEventNotFound):
		response.RespondError(c, http.StatusNotFound, "Event not found", response.CodeNotFound, nil)
	case errors.Is(err, ErrEventInactive):
		response.RespondError(c, http.StatusUnprocessableEntity, err.Error(), response.CodeEventInactive, nil)
	case errors.Is(err, ErrTotalMismatch):
		response.RespondError(c, http.StatusBadRequest, err.Error(), response.CodeTotalMismatch, nil)
	case errors.Is(err, ErrInvalidTables), errors.Is(err, ErrMissingContact), errors.Is(err, packages.ErrUnknownPackage):
		response.RespondError(c, http.StatusBadRequest, err.Error(), response.CodeValidation, nil)
	default:
		ctrl.log.LogHTTPError(c, err, http.StatusInternalServerError)
		response.RespondError(c, http.StatusInternalServerError, "Failed to process reservation", response.CodeInternal, nil)
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
