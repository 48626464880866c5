package availability

import "github.com/gin-gonic/gin"

func SetupAvailabilityRoutes(public *gin.RouterGroup, staff *gin.RouterGroup, controller *Controller) {
	public.GET("/events/:id/availability", controller.GetAvailability)

	if staff == nil {
		return
	}
	staff.GET("/events/:id/packages", controller.GetAvailability)
	staff.POST("/events/:id/packages", controller.CreateRows)
	staff.PATCH("/events/:id/packages", controller.UpdateTotals)
}
