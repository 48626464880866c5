package reservations

import "github.com/gin-gonic/gin"

// SetupReservationRoutes mounts the public booking endpoint and the staff listing
func SetupReservationRoutes(public *gin.RouterGroup, staff *gin.RouterGroup, controller *Controller) {
	public.POST("/reservations", controller.CreateReservation)

	if staff == nil {
		return
	}
	staff.GET("/events/:id/reservations", controller.ListForEvent)
	staff.GET("/events/:id/reservations/export", controller.ExportPDF)
}
