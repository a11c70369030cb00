package httpserver

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"wexcommerce/internal/domain"
)

type statusRequest struct {
	Status domain.OrderStatus `json:"status" binding:"required"`
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

func (h *handlers) getOrder(c *gin.Context) {
	o, err := h.deps.OrderSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if o.UserID != callerID(c) && !callerIsAdmin(c) {
		writeError(c, h.logger, domain.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *handlers) listOrders(c *gin.Context) {
	page, size, ok := pageParams(c)
	if !ok {
		return
	}
	var f domain.OrderFilter
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&f); err != nil {
			badRequest(c, "invalid filter")
			return
		}
	}
	res, err := h.deps.OrderSvc.List(c.Request.Context(), callerID(c), callerIsAdmin(c), page, size, f)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) updateOrder(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}
	o, err := h.deps.OrderSvc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *handlers) deleteOrder(c *gin.Context) {
	if err := h.deps.OrderSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *handlers) notificationCounter(c *gin.Context) {
	n, err := h.deps.NotificationSvc.Counter(c.Request.Context(), c.Param("user"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (h *handlers) listNotifications(c *gin.Context) {
	page, size, ok := pageParams(c)
	if !ok {
		return
	}
	res, err := h.deps.NotificationSvc.List(c.Request.Context(), c.Param("user"), page, size)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) markNotificationsRead(c *gin.Context) {
	h.updateNotifications(c, h.deps.NotificationSvc.MarkAsRead)
}

func (h *handlers) markNotificationsUnread(c *gin.Context) {
	h.updateNotifications(c, h.deps.NotificationSvc.MarkAsUnread)
}

func (h *handlers) deleteNotifications(c *gin.Context) {
	h.updateNotifications(c, h.deps.NotificationSvc.Delete)
}

func (h *handlers) updateNotifications(c *gin.Context, apply func(ctx context.Context, userID string, ids []string) (int64, error)) {
	var req idsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "ids are required")
		return
	}
	n, err := apply(c.Request.Context(), c.Param("user"), req.IDs)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (h *handlers) orderFeed(c *gin.Context) {
	if err := h.deps.OrderFeed.Serve(c.Writer, c.Request); err != nil {
		h.logger.Printf("http: order feed upgrade error=%v", err)
	}
}

func pageParams(c *gin.Context) (int, int, bool) {
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil {
		badRequest(c, "invalid page")
		return 0, 0, false
	}
	size, err := strconv.Atoi(c.Param("size"))
	if err != nil {
		badRequest(c, "invalid size")
		return 0, 0, false
	}
	return page, size, true
}
