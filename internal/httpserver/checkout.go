package httpserver

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	orderrepo "wexcommerce/internal/repository/order"
	checkoutsvc "wexcommerce/internal/service/checkout"
)

const maxWebhookBody = 64 << 10

type checkoutRequest struct {
	User  *checkoutsvc.Buyer `json:"user"`
	Order struct {
		CartID       string `json:"cartId"`
		DeliveryType string `json:"deliveryType"`
		PaymentType  string `json:"paymentType"`
	} `json:"order"`
	StripeFlow string `json:"stripeFlow"`
}

func (h *handlers) checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	res, err := h.deps.CheckoutSvc.Checkout(c.Request.Context(), checkoutsvc.Request{
		CartID:         req.Order.CartID,
		DeliveryTypeID: req.Order.DeliveryType,
		PaymentTypeID:  req.Order.PaymentType,
		UserID:         callerID(c),
		Buyer:          req.User,
		StripeFlow:     req.StripeFlow,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) checkCheckoutSession(c *gin.Context) {
	h.confirmPayment(c, orderrepo.RefSession, c.Param("sessionId"))
}

func (h *handlers) checkPaymentIntent(c *gin.Context) {
	h.confirmPayment(c, orderrepo.RefPaymentIntent, c.Param("paymentIntentId"))
}

func (h *handlers) confirmPayment(c *gin.Context, kind orderrepo.RefKind, ref string) {
	o, err := h.deps.OrderSvc.ConfirmPayment(c.Request.Context(), kind, ref)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *handlers) checkPayPalOrder(c *gin.Context) {
	o, err := h.deps.OrderSvc.ConfirmPayPal(c.Request.Context(), c.Param("orderId"), c.Param("paypalOrderId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *handlers) stripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, "unreadable body")
		return
	}
	if err := h.deps.OrderSvc.HandleStripeWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *handlers) deleteTempOrder(c *gin.Context) {
	if err := h.deps.OrderSvc.DeleteTemp(c.Request.Context(), c.Param("orderId"), c.Param("sessionId")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusOK)
}
