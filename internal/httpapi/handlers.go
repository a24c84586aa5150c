package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"coffee-eshop-go/internal/order/checkout"
	"coffee-eshop-go/internal/order/domain"
	"coffee-eshop-go/internal/order/tx"
	"coffee-eshop-go/pkg/idempotency"
)

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id."})
		return 0, false
	}
	return id, true
}

func (h *handler) read(c *gin.Context, fn func(ctx context.Context, st tx.Stores) error) error {
	return h.UoW.WithinTx(c.Request.Context(), fn)
}

func (h *handler) listCategories(c *gin.Context) {
	var out []domain.Category
	err := h.read(c, func(ctx context.Context, st tx.Stores) error {
		var err error
		out, err = st.Catalog().ListCategories(ctx)
		return err
	})
	if err != nil {
		h.internal(c, "list_categories", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) getCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var out domain.Category
	err := h.read(c, func(ctx context.Context, st tx.Stores) error {
		var err error
		out, err = st.Catalog().GetCategory(ctx, domain.CategoryID(id))
		return err
	})
	if err != nil {
		h.writeError(c, "get_category", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) listProducts(c *gin.Context) {
	var filter *domain.CategoryID
	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category_id."})
			return
		}
		cat := domain.CategoryID(id)
		filter = &cat
	}
	var products []domain.Product
	err := h.read(c, func(ctx context.Context, st tx.Stores) error {
		var err error
		products, err = st.Catalog().ListProducts(ctx, filter)
		return err
	})
	if err != nil {
		h.internal(c, "list_products", err)
		return
	}
	out := make([]productView, 0, len(products))
	for _, p := range products {
		out = append(out, toProduct(p))
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) getProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var (
		p     domain.Product
		found bool
	)
	err := h.read(c, func(ctx context.Context, st tx.Stores) error {
		var err error
		p, found, err = st.Inventory().GetProduct(ctx, domain.ProductID(id))
		return err
	})
	if err != nil {
		h.internal(c, "get_product", err)
		return
	}
	if !found {
		h.writeError(c, "get_product", domain.ErrProductNotFound)
		return
	}
	c.JSON(http.StatusOK, toProduct(p))
}

func (h *handler) listBasket(c *gin.Context) {
	items, err := h.Basket.List(c.Request.Context(), clientOf(c).ID)
	if err != nil {
		h.internal(c, "list_basket", err)
		return
	}
	out := make([]basketItemView, 0, len(items))
	for _, it := range items {
		out = append(out, toBasketItem(it))
	}
	c.JSON(http.StatusOK, out)
}

type addRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity"`
}

func (h *handler) addToBasket(c *gin.Context) {
	var req addRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	item, err := h.Basket.Add(c.Request.Context(), clientOf(c).ID, domain.ProductID(req.ProductID), req.Quantity)
	if err != nil {
		h.writeError(c, "add_to_basket", err)
		return
	}
	c.JSON(http.StatusCreated, toBasketItem(item))
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *handler) updateQuantity(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	item, err := h.Basket.UpdateQuantity(c.Request.Context(), clientOf(c).ID, domain.BasketLineID(id), req.Quantity)
	if err != nil {
		h.writeError(c, "update_quantity", err)
		return
	}
	c.JSON(http.StatusOK, toBasketItem(item))
}

func (h *handler) removeFromBasket(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.Basket.Remove(c.Request.Context(), clientOf(c).ID, domain.BasketLineID(id)); err != nil {
		h.writeError(c, "remove_from_basket", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) clearBasket(c *gin.Context) {
	if err := h.Basket.Clear(c.Request.Context(), clientOf(c).ID); err != nil {
		h.writeError(c, "clear_basket", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) checkout(c *gin.Context) {
	key, err := idempotency.Key(c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.Checkout.Checkout(c.Request.Context(), checkout.Request{
		ClientID:       clientOf(c).ID,
		IdempotencyKey: key,
	})
	if err != nil {
		h.checkoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, checkoutView{
		orderView: toOrder(res.Order),
		AttemptID: string(res.AttemptID),
		Replayed:  res.Replayed,
	})
}

func (h *handler) listOrders(c *gin.Context) {
	var orders []domain.Order
	err := h.read(c, func(ctx context.Context, st tx.Stores) error {
		var err error
		orders, err = st.Orders().ListForClient(ctx, clientOf(c).ID)
		return err
	})
	if err != nil {
		h.internal(c, "list_orders", err)
		return
	}
	out := make([]orderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrder(o))
	}
	c.JSON(http.StatusOK, out)
}

func (h *handler) getOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var o domain.Order
	err := h.read(c, func(ctx context.Context, st tx.Stores) error {
		var err error
		o, err = st.Orders().Get(ctx, clientOf(c).ID, domain.OrderID(id))
		return err
	})
	if err != nil {
		h.writeError(c, "get_order", err)
		return
	}
	c.JSON(http.StatusOK, toOrder(o))
}
