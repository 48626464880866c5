package packages

import "github.com/gin-gonic/gin"

func SetupPackageRoutes(public *gin.RouterGroup, controller *Controller) {
	public.GET("/packages", controller.ListPackages)
}
