package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func listProductsHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		records, err := deps.Products.List(c.Request.Context())
		if err != nil {
			serverError(c, deps, err, "list products")
			return
		}
		views := make([]productView, 0, len(records))
		for _, rec := range records {
			views = append(views, buildProductView(rec))
		}
		c.JSON(http.StatusOK, gin.H{"products": views, "total": len(views)})
	}
}
