package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"wexcommerce/internal/domain"
	productrepo "wexcommerce/internal/repository/product"
)

func (h *handlers) listProducts(c *gin.Context) {
	f := productrepo.ListFilter{
		CategoryID:   c.Query("category"),
		Keyword:      c.Query("keyword"),
		FeaturedOnly: c.Query("featured") == "true",
	}
	// Hidden products are visible to admins only.
	f.IncludeHidden = callerIsAdmin(c) && c.Query("hidden") == "true"
	if f.CategoryID != "" && !domain.ValidID(f.CategoryID) {
		badRequest(c, "invalid category")
		return
	}
	products, err := h.deps.ProductSvc.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *handlers) getProduct(c *gin.Context) {
	p, err := h.deps.ProductSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if p.Hidden && !callerIsAdmin(c) {
		writeError(c, h.logger, domain.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handlers) createProduct(c *gin.Context) {
	var p domain.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "invalid body")
		return
	}
	p.ID = ""
	created, err := h.deps.ProductSvc.Create(c.Request.Context(), p)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *handlers) updateProduct(c *gin.Context) {
	var p domain.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "invalid body")
		return
	}
	p.ID = c.Param("id")
	updated, err := h.deps.ProductSvc.Update(c.Request.Context(), p)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *handlers) listCategories(c *gin.Context) {
	categories, err := h.deps.CategorySvc.List(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *handlers) listDeliveryTypes(c *gin.Context) {
	items, err := h.deps.SettingSvc.DeliveryTypes(c.Request.Context(), !callerIsAdmin(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *handlers) listPaymentTypes(c *gin.Context) {
	items, err := h.deps.SettingSvc.PaymentTypes(c.Request.Context(), !callerIsAdmin(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *handlers) updateDeliveryTypes(c *gin.Context) {
	var items []domain.DeliveryType
	if err := c.ShouldBindJSON(&items); err != nil {
		badRequest(c, "invalid body")
		return
	}
	if err := h.deps.SettingSvc.UpdateDeliveryTypes(c.Request.Context(), items); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *handlers) updatePaymentTypes(c *gin.Context) {
	var items []domain.PaymentType
	if err := c.ShouldBindJSON(&items); err != nil {
		badRequest(c, "invalid body")
		return
	}
	if err := h.deps.SettingSvc.UpdatePaymentTypes(c.Request.Context(), items); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *handlers) getSettings(c *gin.Context) {
	s, err := h.deps.SettingSvc.Get(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *handlers) updateSettings(c *gin.Context) {
	var in domain.Setting
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid body")
		return
	}
	s, err := h.deps.SettingSvc.Update(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, s)
}
