package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"shopcollections/internal/collection"
	"shopcollections/internal/service/checkout"
)

func checkoutHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		memberID, ok := pathID(c, "memberID")
		if !ok {
			return
		}

		ctx := c.Request.Context()
		sess := deps.Carts.NewSession()
		cart, err := sess.ActiveCart(ctx, memberID, defaultCurrency)
		if err != nil {
			serverError(c, deps, err, "load cart")
			return
		}

		order, err := deps.Checkout.Complete(ctx, cart)
		if err != nil {
			switch {
			case errors.Is(err, checkout.ErrEmptyCart):
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "cart is empty"})
			case errors.Is(err, checkout.ErrCartLocked):
				c.JSON(http.StatusConflict, gin.H{"error": "cart is already checked out"})
			default:
				serverError(c, deps, err, "checkout")
			}
			return
		}

		view, err := buildCollectionView(ctx, order, sess.Notices())
		if err != nil {
			serverError(c, deps, err, "render order")
			return
		}
		if err := sess.Close(ctx); err != nil {
			serverError(c, deps, err, "save cart")
			return
		}
		c.JSON(http.StatusCreated, view)
	}
}

func getOrderHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := pathID(c, "orderID")
		if !ok {
			return
		}

		ctx := c.Request.Context()
		order, err := deps.Checkout.Order(ctx, orderID)
		if err != nil {
			orderError(c, deps, err)
			return
		}
		view, err := buildCollectionView(ctx, order, nil)
		if err != nil {
			serverError(c, deps, err, "render order")
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func getDocumentHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := pathID(c, "orderID")
		if !ok {
			return
		}

		doc, err := deps.Checkout.Document(c.Request.Context(), orderID)
		if err != nil {
			orderError(c, deps, err)
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}

func orderError(c *gin.Context, deps Deps, err error) {
	switch {
	case errors.Is(err, collection.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	case errors.Is(err, checkout.ErrNotCheckedOut):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	default:
		serverError(c, deps, err, "load order")
	}
}
