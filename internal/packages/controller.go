package packages

import (
	"net/http"

	"sorso/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

// CatalogResponse is the public shape of the price list
type CatalogResponse struct {
	PeoplePerTable int     `json:"people_per_table"`
	Default        Code    `json:"default"`
	Packages       []Entry `json:"packages"`
}

type Controller struct {
	catalog *Catalog
}

func NewController(catalog *Catalog) *Controller {
	if catalog == nil {
		catalog = Default()
	}
	return &Controller{catalog: catalog}
}

// ListPackages handles GET /packages
// @Summary Seating packages and prices
// @Tags packages
// @Produce json
// @Success 200 {object} response.StandardApiResponse
// @Router /packages [get]
func (ctrl *Controller) ListPackages(c *gin.Context) {
	entries := make([]Entry, 0, len(Order))
	for _, code := range ctrl.catalog.Codes() {
		if e, ok := ctrl.catalog.Lookup(code); ok {
			entries = append(entries, e)
		}
	}

	c.Header("Cache-Control", "public, max-age=3600")
	response.RespondOK(c, http.StatusOK, "Packages retrieved successfully", CatalogResponse{
		PeoplePerTable: ctrl.catalog.PeoplePerTable,
		Default:        ctrl.catalog.DefaultCode,
		Packages:       entries,
	})
}
