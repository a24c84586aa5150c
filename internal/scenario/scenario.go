// Package scenario replays the checkout acceptance scenarios against a live
// order-service. Stock cannot be set over the API, so each scenario derives
// its quantities from the current catalog.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"coffee-eshop-go/internal/shopclient"
)

type Result struct {
	Name   string
	Passed bool
	Detail string
}

type Scenario struct {
	Name        string
	Description string
	run         func(r *Runner, ctx context.Context) (string, error)
}

var All = []Scenario{
	{"A", "single line checkout succeeds", (*Runner).successful},
	{"B", "oversold line is rejected", (*Runner).oversold},
	{"C", "empty basket is rejected", (*Runner).empty},
	{"D", "no partial decrement", (*Runner).partial},
	{"E", "concurrent checkouts never oversell", (*Runner).concurrent},
}

func Find(name string) (Scenario, bool) {
	for _, s := range All {
		if s.Name == name {
			return s, true
		}
	}
	return Scenario{}, false
}

// Runner drives the scenarios as two clients: the buyer under test and a
// rival that competes for the same stock.
type Runner struct {
	c     *shopclient.Client
	buyer int64
	rival int64
}

func NewRunner(c *shopclient.Client, buyer, rival int64) *Runner {
	return &Runner{c: c, buyer: buyer, rival: rival}
}

func (r *Runner) Run(ctx context.Context, s Scenario) Result {
	detail, err := s.run(r, ctx)
	_ = r.c.ClearBasket(ctx, r.buyer)
	_ = r.c.ClearBasket(ctx, r.rival)
	if err != nil {
		return Result{Name: s.Name, Detail: err.Error()}
	}
	return Result{Name: s.Name, Passed: true, Detail: detail}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	out := make([]Result, 0, len(All))
	for _, s := range All {
		out = append(out, r.Run(ctx, s))
	}
	return out
}

func (r *Runner) reset(ctx context.Context) error {
	if err := r.c.ClearBasket(ctx, r.buyer); err != nil {
		return err
	}
	return r.c.ClearBasket(ctx, r.rival)
}

// pick returns the available product with the most stock, skipping exclude.
func (r *Runner) pick(ctx context.Context, minStock int, exclude int64) (shopclient.Product, error) {
	products, err := r.c.Products(ctx)
	if err != nil {
		return shopclient.Product{}, err
	}
	var best *shopclient.Product
	for i := range products {
		p := &products[i]
		if !p.Available || p.ID == exclude || p.Stock < minStock {
			continue
		}
		if best == nil || p.Stock > best.Stock {
			best = p
		}
	}
	if best == nil {
		return shopclient.Product{}, fmt.Errorf("no available product with stock >= %d", minStock)
	}
	return *best, nil
}

func (r *Runner) stock(ctx context.Context, id int64) (int, error) {
	p, err := r.c.Product(ctx, id)
	return p.Stock, err
}

// drain lets the rival buy one unit so the buyer's basket outgrows stock.
func (r *Runner) drain(ctx context.Context, productID int64) error {
	if _, err := r.c.AddToBasket(ctx, r.rival, productID, 1); err != nil {
		return fmt.Errorf("rival add: %w", err)
	}
	if _, err := r.c.Checkout(ctx, r.rival, ""); err != nil {
		return fmt.Errorf("rival checkout: %w", err)
	}
	return nil
}

func (r *Runner) successful(ctx context.Context) (string, error) {
	if err := r.reset(ctx); err != nil {
		return "", err
	}
	p, err := r.pick(ctx, 1, 0)
	if err != nil {
		return "", err
	}
	if _, err := r.c.AddToBasket(ctx, r.buyer, p.ID, 1); err != nil {
		return "", err
	}
	order, err := r.c.Checkout(ctx, r.buyer, "")
	if err != nil {
		return "", err
	}
	if !sameMoney(order.Total, p.Price) {
		return "", fmt.Errorf("total %s, want %s", order.Total, p.Price)
	}
	after, err := r.stock(ctx, p.ID)
	if err != nil {
		return "", err
	}
	if after != p.Stock-1 {
		return "", fmt.Errorf("%s stock %d, want %d", p.Name, after, p.Stock-1)
	}
	basket, err := r.c.Basket(ctx, r.buyer)
	if err != nil {
		return "", err
	}
	if len(basket) != 0 {
		return "", fmt.Errorf("basket still has %d lines", len(basket))
	}
	return fmt.Sprintf("order %d total %s, %s stock %d -> %d", order.ID, order.Total, p.Name, p.Stock, after), nil
}

func (r *Runner) oversold(ctx context.Context) (string, error) {
	if err := r.reset(ctx); err != nil {
		return "", err
	}
	p, err := r.pick(ctx, 1, 0)
	if err != nil {
		return "", err
	}
	if _, err := r.c.AddToBasket(ctx, r.buyer, p.ID, p.Stock); err != nil {
		return "", err
	}
	if err := r.drain(ctx, p.ID); err != nil {
		return "", err
	}
	before, err := r.stock(ctx, p.ID)
	if err != nil {
		return "", err
	}
	ordersBefore, err := r.c.Orders(ctx, r.buyer)
	if err != nil {
		return "", err
	}

	_, err = r.c.Checkout(ctx, r.buyer, "")
	if err := expectStockError(err, p.ID); err != nil {
		return "", err
	}
	after, err := r.stock(ctx, p.ID)
	if err != nil {
		return "", err
	}
	if after != before {
		return "", fmt.Errorf("%s stock moved %d -> %d", p.Name, before, after)
	}
	basket, err := r.c.Basket(ctx, r.buyer)
	if err != nil {
		return "", err
	}
	if len(basket) != 1 || basket[0].Quantity != p.Stock {
		return "", errors.New("basket changed by failed checkout")
	}
	ordersAfter, err := r.c.Orders(ctx, r.buyer)
	if err != nil {
		return "", err
	}
	if len(ordersAfter) != len(ordersBefore) {
		return "", errors.New("failed checkout created an order")
	}
	return fmt.Sprintf("%d x %s rejected against stock %d", p.Stock, p.Name, before), nil
}

func (r *Runner) empty(ctx context.Context) (string, error) {
	if err := r.reset(ctx); err != nil {
		return "", err
	}
	_, err := r.c.Checkout(ctx, r.buyer, "")
	if shopclient.Code(err) != shopclient.CodeEmptyBasket {
		return "", fmt.Errorf("want %s, got %v", shopclient.CodeEmptyBasket, err)
	}
	return "rejected: " + err.Error(), nil
}

func (r *Runner) partial(ctx context.Context) (string, error) {
	if err := r.reset(ctx); err != nil {
		return "", err
	}
	first, err := r.pick(ctx, 1, 0)
	if err != nil {
		return "", err
	}
	second, err := r.pick(ctx, 1, first.ID)
	if err != nil {
		return "", err
	}
	if _, err := r.c.AddToBasket(ctx, r.buyer, first.ID, 1); err != nil {
		return "", err
	}
	if _, err := r.c.AddToBasket(ctx, r.buyer, second.ID, second.Stock); err != nil {
		return "", err
	}
	if err := r.drain(ctx, second.ID); err != nil {
		return "", err
	}

	_, err = r.c.Checkout(ctx, r.buyer, "")
	if err := expectStockError(err, second.ID); err != nil {
		return "", err
	}
	after, err := r.stock(ctx, first.ID)
	if err != nil {
		return "", err
	}
	if after != first.Stock {
		return "", fmt.Errorf("%s stock %d, want untouched %d", first.Name, after, first.Stock)
	}
	return fmt.Sprintf("failed on %s, %s stock stayed %d", second.Name, first.Name, after), nil
}

func (r *Runner) concurrent(ctx context.Context) (string, error) {
	if err := r.reset(ctx); err != nil {
		return "", err
	}
	p, err := r.pick(ctx, 2, 0)
	if err != nil {
		return "", err
	}
	qty := p.Stock/2 + 1
	for _, client := range []int64{r.buyer, r.rival} {
		if _, err := r.c.AddToBasket(ctx, client, p.ID, qty); err != nil {
			return "", err
		}
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, client := range []int64{r.buyer, r.rival} {
		wg.Add(1)
		go func(i int, client int64) {
			defer wg.Done()
			_, errs[i] = r.c.Checkout(ctx, client, "")
		}(i, client)
	}
	wg.Wait()

	ok, rejected := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case shopclient.Code(err) == shopclient.CodeInsufficientStock:
			rejected++
		default:
			return "", err
		}
	}
	if ok != 1 || rejected != 1 {
		return "", fmt.Errorf("%d succeeded, %d rejected; want exactly one each", ok, rejected)
	}
	after, err := r.stock(ctx, p.ID)
	if err != nil {
		return "", err
	}
	if after != p.Stock-qty {
		return "", fmt.Errorf("%s stock %d, want %d", p.Name, after, p.Stock-qty)
	}
	return fmt.Sprintf("2 x %d of %s against %d: one won, stock now %d", qty, p.Name, p.Stock, after), nil
}

func expectStockError(err error, productID int64) error {
	var apiErr *shopclient.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != shopclient.CodeInsufficientStock {
		return fmt.Errorf("want %s, got %v", shopclient.CodeInsufficientStock, err)
	}
	if apiErr.ProductID != productID {
		return fmt.Errorf("rejected product %d, want %d", apiErr.ProductID, productID)
	}
	return nil
}

func sameMoney(a, b string) bool {
	x, err1 := decimal.NewFromString(a)
	y, err2 := decimal.NewFromString(b)
	return err1 == nil && err2 == nil && x.Equal(y)
}
