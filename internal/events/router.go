package events

import (
	"github.com/gin-gonic/gin"
)

// SetupEventRoutes mounts the public listing and, when staff is non-nil, the
// staff management routes on it
func SetupEventRoutes(public *gin.RouterGroup, staff *gin.RouterGroup, controller *Controller) {
	publicEvents := public.Group("/events")
	{
		publicEvents.GET("", controller.ListActive) // GET /api/v1/events
		publicEvents.GET("/:id", controller.GetEvent)
	}

	if staff == nil {
		return
	}

	staffEvents := staff.Group("/events")
	{
		staffEvents.GET("", controller.ListAll)
		staffEvents.POST("", controller.CreateEvent)
		staffEvents.GET("/:id", controller.GetEvent)
		staffEvents.PATCH("/:id", controller.UpdateEvent)
		staffEvents.PATCH("/:id/active", controller.SetActive)
		staffEvents.DELETE("/:id", controller.DeleteEvent) // soft delete
	}
}
