package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	cartsvc "wexcommerce/internal/service/cart"
)

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *handlers) addCartItem(c *gin.Context) {
	var in cartsvc.AddItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid body")
		return
	}
	in.UserID = callerID(c)
	cart, err := h.deps.CartSvc.AddItem(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) updateCartItem(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	cart, err := h.deps.CartSvc.UpdateItemQuantity(c.Request.Context(), c.Param("id"), req.Quantity)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) deleteCartItem(c *gin.Context) {
	cart, err := h.deps.CartSvc.DeleteItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) getCart(c *gin.Context) {
	cart, err := h.deps.CartSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) cartCount(c *gin.Context) {
	n, err := h.deps.CartSvc.Count(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *handlers) clearCart(c *gin.Context) {
	if err := h.deps.CartSvc.Clear(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *handlers) userCartID(c *gin.Context) {
	id, err := h.deps.CartSvc.UserCartID(c.Request.Context(), c.Param("user"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, id)
}

func (h *handlers) mergeCart(c *gin.Context) {
	cart, err := h.deps.CartSvc.MergeOnSignIn(c.Request.Context(), c.Param("cartId"), callerID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}
