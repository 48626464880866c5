package events

import (
	"errors"
	"net/http"

	"sorso/internal/shared/middleware"
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
	return &Controller{
		service:   service,
		validator: validator.New(),
	}
}

// ListActive handles GET /events
func (ctrl *Controller) ListActive(c *gin.Context) {
	list, err := ctrl.service.ListActive(c.Request.Context())
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "Failed to load events", response.CodeInternal, nil)
		return
	}
	response.RespondOK(c, http.StatusOK, "Events retrieved successfully", list)
}

// ListAll handles GET /staff/events
func (ctrl *Controller) ListAll(c *gin.Context) {
	list, err := ctrl.service.ListAll(c.Request.Context())
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "Failed to load events", response.CodeInternal, nil)
		return
	}
	response.RespondOK(c, http.StatusOK, "Events retrieved successfully", list)
}

func (ctrl *Controller) GetEvent(c *gin.Context) {
	id, ok := parseEventID(c)
	if !ok {
		return
	}

	event, err := ctrl.service.GetByID(c.Request.Context(), id)
	if err != nil {
		ctrl.respondServiceError(c, err)
		return
	}
	response.RespondOK(c, http.StatusOK, "Event retrieved successfully", event)
}

func (ctrl *Controller) CreateEvent(c *gin.Context) {
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "Invalid request body", response.CodeInvalidRequest, err.Error())
		return
	}
	if err := ctrl.validator.Struct(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "Validation failed", response.CodeValidation, err.Error())
		return
	}

	event, err := ctrl.service.Create(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		ctrl.respondServiceError(c, err)
		return
	}
	response.RespondOK(c, http.StatusCreated, "Event created successfully", event)
}

func (ctrl *Controller) UpdateEvent(c *gin.Context) {
	id, ok := parseEventID(c)
	if !ok {
		return
	}

	var req UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "Invalid request body", response.CodeInvalidRequest, err.Error())
		return
	}
	if err := ctrl.validator.Struct(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "Validation failed", response.CodeValidation, err.Error())
		return
	}

	event, err := ctrl.service.Update(c.Request.Context(), id, req)
	if err != nil {
		ctrl.respondServiceError(c, err)
		return
	}
	response.RespondOK(c, http.StatusOK, "Event updated successfully", event)
}

func (ctrl *Controller) SetActive(c *gin.Context) {
	id, ok := parseEventID(c)
	if !ok {
		return
	}

	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "Invalid request body", response.CodeInvalidRequest, err.Error())
		return
	}
	if err := ctrl.validator.Struct(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "Validation failed", response.CodeValidation, err.Error())
		return
	}

	event, err := ctrl.service.SetActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		ctrl.respondServiceError(c, err)
		return
	}
	response.RespondOK(c, http.StatusOK, "Event updated successfully", event)
}

// DeleteEvent hides the night; rows are kept for the reservation history
func (ctrl *Controller) DeleteEvent(c *gin.Context) {
	id, ok := parseEventID(c)
	if !ok {
		return
	}

	event, err := ctrl.service.SetActive(c.Request.Context(), id, false)
	if err != nil {
		ctrl.respondServiceError(c, err)
		return
	}
	response.RespondOK(c, http.StatusOK, "Event deactivated", event)
}

func (ctrl *Controller) respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrEventNotFound):
		response.RespondError(c, http.StatusNotFound, "Event not found", response.CodeNotFound, nil)
	case errors.Is(err, ErrInvalidDate), errors.Is(err, ErrTitleRequired):
		response.RespondError(c, http.StatusBadRequest, err.Error(), response.CodeValidation, nil)
	default:
		response.RespondError(c, http.StatusInternalServerError, "Failed to process event", response.CodeInternal, nil)
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
