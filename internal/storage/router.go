package storage

import "github.com/gin-gonic/gin"

// SetupStorageRoutes mounts downloads on root and management on staff
func SetupStorageRoutes(root gin.IRoutes, staff *gin.RouterGroup, controller *Controller) {
	root.GET("/storage/public/:bucket/*path", controller.ServePublic)
	root.GET("/storage/signed/:bucket/*path", controller.ServeSigned)

	if staff == nil {
		return
	}
	buckets := staff.Group("/storage/:bucket")
	{
		buckets.GET("", controller.List)
		buckets.POST("", controller.Upload)
		buckets.DELETE("", controller.Remove)
		buckets.POST("/sign", controller.Sign)
	}
}
