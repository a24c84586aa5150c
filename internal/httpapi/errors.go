package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"coffee-eshop-go/internal/order/domain"
	"coffee-eshop-go/pkg/logging"
)

const (
	codeEmptyBasket       = "empty_basket"
	codeInsufficientStock = "insufficient_stock"
	codeCommitFailed      = "commit_failed"
)

func (h *handler) checkoutError(c *gin.Context, err error) {
	var stockErr *domain.InsufficientStockError
	switch {
	case errors.Is(err, domain.ErrEmptyBasket):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Your basket is empty.", "code": codeEmptyBasket})
	case errors.As(err, &stockErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Insufficient stock for product: " + stockName(stockErr),
			"code":       codeInsufficientStock,
			"product_id": stockErr.ProductID,
		})
	default:
		h.Log.Error(logging.Fields{ClientID: int64(clientOf(c).ID), Step: "checkout", Status: codeCommitFailed}, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "An error occurred while processing your order. Please try again.",
			"code":  codeCommitFailed,
		})
	}
}

func stockName(e *domain.InsufficientStockError) string {
	if e.ProductName != "" {
		return e.ProductName
	}
	return fmt.Sprintf("%d", e.ProductID)
}

// writeError maps basket and lookup failures. Anything unrecognised is a 500.
func (h *handler) writeError(c *gin.Context, step string, err error) {
	var stockErr *domain.InsufficientStockError
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity must be greater than 0."})
	case errors.As(err, &stockErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Insufficient stock for product: " + stockName(stockErr),
			"code":       codeInsufficientStock,
			"product_id": stockErr.ProductID,
		})
	case errors.Is(err, domain.ErrProductUnavailable):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Product is not available."})
	case errors.Is(err, domain.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found."})
	case errors.Is(err, domain.ErrBasketLineNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Basket item not found."})
	case errors.Is(err, domain.ErrCategoryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found."})
	case errors.Is(err, domain.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found."})
	case errors.Is(err, domain.ErrClientNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unknown client."})
	default:
		h.internal(c, step, err)
	}
}

func (h *handler) internal(c *gin.Context, step string, err error) {
	h.Log.Error(logging.Fields{Step: step, Status: "failed"}, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error."})
}
