package httpserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"shopcollections/internal/collection"
)

const defaultCurrency = "EUR"

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func getCartHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		memberID, ok := pathID(c, "memberID")
		if !ok {
			return
		}
		currency := c.DefaultQuery("currency", defaultCurrency)

		ctx := c.Request.Context()
		sess := deps.Carts.NewSession()
		cart, err := sess.ActiveCart(ctx, memberID, currency)
		if err != nil {
			serverError(c, deps, err, "load cart")
			return
		}
		view, err := buildCollectionView(ctx, cart, sess.Notices())
		if err != nil {
			serverError(c, deps, err, "render cart")
			return
		}
		if err := sess.Close(ctx); err != nil {
			serverError(c, deps, err, "save cart")
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

type addItemRequest struct {
	ProductID int64             `json:"productId" binding:"required"`
	Options   map[string]string `json:"options"`
	Quantity  int               `json:"quantity"`
	Currency  string            `json:"currency"`
}

func addItemHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		memberID, ok := pathID(c, "memberID")
		if !ok {
			return
		}
		var req addItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Quantity == 0 {
			req.Quantity = 1
		}
		if req.Currency == "" {
			req.Currency = defaultCurrency
		}

		ctx := c.Request.Context()
		sess := deps.Carts.NewSession()
		cart, err := sess.ActiveCart(ctx, memberID, req.Currency)
		if err != nil {
			serverError(c, deps, err, "load cart")
			return
		}
		_, added, err := sess.AddProduct(ctx, cart, req.ProductID, req.Options, req.Quantity)
		if err != nil {
			serverError(c, deps, err, "add product")
			return
		}
		if !added {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "product cannot be added"})
			return
		}
		view, err := buildCollectionView(ctx, cart, sess.Notices())
		if err != nil {
			serverError(c, deps, err, "render cart")
			return
		}
		if err := sess.Close(ctx); err != nil {
			serverError(c, deps, err, "save cart")
			return
		}
		c.JSON(http.StatusCreated, view)
	}
}

type updateItemRequest struct {
	Quantity *int    `json:"quantity"`
	Name     *string `json:"name"`
	SKU      *string `json:"sku"`
}

func updateItemHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		memberID, ok := pathID(c, "memberID")
		if !ok {
			return
		}
		itemID, ok := pathID(c, "itemID")
		if !ok {
			return
		}
		var req updateItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		sess := deps.Carts.NewSession()
		cart, err := sess.ActiveCart(ctx, memberID, defaultCurrency)
		if err != nil {
			serverError(c, deps, err, "load cart")
			return
		}

		items, err := cart.Items(ctx)
		if err != nil {
			serverError(c, deps, err, "load items")
			return
		}
		var target *collection.Item
		for _, item := range items {
			if item.ID() == itemID {
				target = item
				break
			}
		}
		if target == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
			return
		}

		update := &collection.ItemUpdate{Quantity: req.Quantity, Name: req.Name, SKU: req.SKU}
		updated, err := sess.UpdateItem(ctx, cart, target.ProductID(), target.Options(), update)
		if err != nil {
			serverError(c, deps, err, "update item")
			return
		}
		if !updated {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "item cannot be updated"})
			return
		}
		view, err := buildCollectionView(ctx, cart, sess.Notices())
		if err != nil {
			serverError(c, deps, err, "render cart")
			return
		}
		if err := sess.Close(ctx); err != nil {
			serverError(c, deps, err, "save cart")
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func removeItemHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		memberID, ok := pathID(c, "memberID")
		if !ok {
			return
		}
		itemID, ok := pathID(c, "itemID")
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
		removed, err := sess.RemoveItem(ctx, cart, itemID)
		if err != nil {
			serverError(c, deps, err, "remove item")
			return
		}
		if !removed {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
			return
		}
		view, err := buildCollectionView(ctx, cart, sess.Notices())
		if err != nil {
			serverError(c, deps, err, "render cart")
			return
		}
		if err := sess.Close(ctx); err != nil {
			serverError(c, deps, err, "save cart")
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func purgeCartHandler(deps Deps) gin.HandlerFunc {
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
		if err := sess.Purge(ctx, cart); err != nil {
			serverError(c, deps, err, "purge cart")
			return
		}
		if err := sess.Close(ctx); err != nil {
			serverError(c, deps, err, "save cart")
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func serverError(c *gin.Context, deps Deps, err error, action string) {
	if deps.Logger != nil {
		deps.Logger.WithError(err).Error(action)
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
