package httpserver

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"wexcommerce/internal/domain"
)

type errorResponse struct {
	Message   string `json:"message"`
	ProductID string `json:"productId,omitempty"`
}

// writeError maps domain errors to status codes. Gateway and unexpected errors
// are logged and answered with a generic message.
func writeError(c *gin.Context, logger *log.Logger, err error) {
	var (
		validation *domain.ValidationError
		cartErr    *domain.InvalidCartError
		transErr   *domain.InvalidTransitionError
		payErr     *domain.PaymentError
	)
	switch {
	case errors.As(err, &validation):
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Message: validation.Error()})
	case errors.As(err, &cartErr):
		c.AbortWithStatusJSON(http.StatusConflict, errorResponse{Message: cartErr.Error(), ProductID: cartErr.ProductID})
	case errors.As(err, &transErr):
		c.AbortWithStatusJSON(http.StatusConflict, errorResponse{Message: transErr.Error()})
	case errors.As(err, &payErr):
		logger.Printf("http: %s %s payment error=%v", c.Request.Method, c.FullPath(), err)
		c.AbortWithStatusJSON(http.StatusBadGateway, errorResponse{Message: "payment failed"})
	case errors.Is(err, domain.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Message: "not found"})
	case errors.Is(err, domain.ErrAlreadyExists):
		c.AbortWithStatusJSON(http.StatusConflict, errorResponse{Message: "already exists"})
	case errors.Is(err, domain.ErrUnauthorized):
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Message: "unauthorized"})
	case errors.Is(err, domain.ErrForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, errorResponse{Message: "forbidden"})
	default:
		logger.Printf("http: %s %s error=%v", c.Request.Method, c.FullPath(), err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Message: "internal error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Message: msg})
}
