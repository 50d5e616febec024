package httpserver

import (
	"io"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// buildRouter wires routes for the API.
func buildRouter(db *pgxpool.Pool, deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(loggerWriter(deps.Logger)), gin.Recovery())
	router.Use(cors.Default())

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	api := router.Group("/api")
	{
		api.GET("/products", listProductsHandler(deps))

		member := api.Group("/members/:memberID")
		{
			member.GET("/cart", getCartHandler(deps))
			member.DELETE("/cart", purgeCartHandler(deps))
			member.POST("/cart/items", addItemHandler(deps))
			member.PATCH("/cart/items/:itemID", updateItemHandler(deps))
			member.DELETE("/cart/items/:itemID", removeItemHandler(deps))
			member.POST("/checkout", checkoutHandler(deps))
		}

		api.GET("/orders/:orderID", getOrderHandler(deps))
		api.GET("/orders/:orderID/document", getDocumentHandler(deps))
	}

	return router
}

func loggerWriter(logger logrus.FieldLogger) io.Writer {
	if entry, ok := logger.(*logrus.Entry); ok {
		return entry.Logger.Out
	}
	if l, ok := logger.(*logrus.Logger); ok {
		return l.Out
	}
	return io.Discard
}
