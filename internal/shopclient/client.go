// Package shopclient talks to a running order-service over HTTP.
package shopclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"coffee-eshop-go/pkg/idempotency"
)

const (
	CodeEmptyBasket       = "empty_basket"
	CodeInsufficientStock = "insufficient_stock"
	CodeCommitFailed      = "commit_failed"
)

type Client struct {
	base string
	http *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{base: strings.TrimRight(baseURL, "/"), http: &http.Client{Timeout: timeout}}
}

// APIError is a non-2xx answer from the service.
type APIError struct {
	Status    int    `json:"-"`
	Code      string `json:"code"`
	Message   string `json:"error"`
	ProductID int64  `json:"product_id"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("status %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// Code returns the machine readable error code carried by err, if any.
func Code(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

type Product struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Price      string `json:"price"`
	CategoryID int64  `json:"category_id"`
	Available  bool   `json:"available"`
	Stock      int    `json:"stock_quantity"`
}

type BasketItem struct {
	ID        int64 `json:"id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type OrderLine struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Price       string `json:"price"`
	Quantity    int    `json:"quantity"`
}

type Order struct {
	ID        int64       `json:"id"`
	ClientID  int64       `json:"client_id"`
	Total     string      `json:"total_price"`
	Lines     []OrderLine `json:"order_items"`
	AttemptID string      `json:"attempt_id"`
	Replayed  bool        `json:"replayed"`
}

func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var out []Product
	return out, c.do(ctx, http.MethodGet, "/api/products", 0, nil, nil, &out)
}

func (c *Client) Product(ctx context.Context, id int64) (Product, error) {
	var out Product
	return out, c.do(ctx, http.MethodGet, "/api/products/"+strconv.FormatInt(id, 10), 0, nil, nil, &out)
}

func (c *Client) Basket(ctx context.Context, clientID int64) ([]BasketItem, error) {
	var out []BasketItem
	return out, c.do(ctx, http.MethodGet, "/api/basket", clientID, nil, nil, &out)
}

func (c *Client) AddToBasket(ctx context.Context, clientID, productID int64, qty int) (BasketItem, error) {
	var out BasketItem
	body := map[string]any{"product_id": productID, "quantity": qty}
	return out, c.do(ctx, http.MethodPost, "/api/basket", clientID, nil, body, &out)
}

func (c *Client) ClearBasket(ctx context.Context, clientID int64) error {
	return c.do(ctx, http.MethodDelete, "/api/basket", clientID, nil, nil, nil)
}

// Checkout places an order from the client's basket. An empty key sends no
// Idempotency-Key header.
func (c *Client) Checkout(ctx context.Context, clientID int64, key string) (Order, error) {
	var out Order
	headers := http.Header{}
	idempotency.Set(headers, key)
	return out, c.do(ctx, http.MethodPost, "/api/orders/checkout", clientID, headers, nil, &out)
}

func (c *Client) Orders(ctx context.Context, clientID int64) ([]Order, error) {
	var out []Order
	return out, c.do(ctx, http.MethodGet, "/api/orders", clientID, nil, nil, &out)
}

func (c *Client) do(ctx context.Context, method, path string, clientID int64, headers http.Header, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if clientID != 0 {
		req.Header.Set("X-Client-ID", strconv.FormatInt(clientID, 10))
	}
	for k, v := range headers {
		req.Header[k] = v
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.Unmarshal(data, out)
}
