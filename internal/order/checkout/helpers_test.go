package checkout

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"coffee-eshop-go/internal/catalog"
	"coffee-eshop-go/internal/order/domain"
	"coffee-eshop-go/internal/order/tx"
	"coffee-eshop-go/internal/store/memory"
	"coffee-eshop-go/pkg/metrics"
)

// testingT is satisfied by both *testing.T and *rapid.T.
type testingT interface {
	require.TestingT
	Helper()
}

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	orders []domain.Order
	ctxErr []error
}

func (n *recordingNotifier) NotifyOrderConfirmed(ctx context.Context, o domain.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, o)
	n.ctxErr = append(n.ctxErr, ctx.Err())
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.orders)
}

type stocked struct {
	id    int64
	name  string
	price string
	stock int
}

func seedWith(products ...stocked) catalog.Seed {
	seed := catalog.Seed{
		Categories: []catalog.CategoryRow{{ID: 1, Name: "Brazil"}},
		Clients:    []catalog.ClientRow{{ID: 1, FirstName: "John"}, {ID: 2, FirstName: "Jane"}, {ID: 3, FirstName: "Mike"}},
	}
	for _, p := range products {
		seed.Products = append(seed.Products, catalog.ProductRow{
			ID: p.id, Name: p.name, Price: decimal.RequireFromString(p.price), CategoryID: 1, Available: true, Stock: p.stock,
		})
	}
	return seed
}

type fixture struct {
	store    *memory.Store
	journal  *memory.Journal
	notifier *recordingNotifier
	metrics  *metrics.CheckoutMetrics
	svc      *Service
}

func newFixture(t testingT, products ...stocked) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.New(seedWith(products...)),
		journal:  memory.NewJournal(),
		notifier: &recordingNotifier{},
		metrics:  metrics.NewCheckoutMetrics(prometheus.NewRegistry()),
	}
	f.svc = f.service(f.store, f.notifier)
	return f
}

func (f *fixture) service(uow tx.UnitOfWork, n Notifier) *Service {
	return NewService(uow, n,
		WithJournal(f.journal),
		WithMetrics(f.metrics),
		WithClock(func() time.Time { return fixedNow }),
	)
}

func (f *fixture) add(t testingT, client domain.ClientID, product domain.ProductID, qty int) domain.BasketLine {
	t.Helper()
	var line domain.BasketLine
	require.NoError(t, f.store.WithinTx(context.Background(), func(ctx context.Context, st tx.Stores) error {
		var err error
		line, err = st.Basket().AddLine(ctx, client, product, qty, fixedNow)
		return err
	}))
	return line
}

func (f *fixture) stock(t testingT, id domain.ProductID) int {
	t.Helper()
	var stock int
	require.NoError(t, f.store.WithinTx(context.Background(), func(ctx context.Context, st tx.Stores) error {
		p, _, err := st.Inventory().GetProduct(ctx, id)
		stock = p.Stock
		return err
	}))
	return stock
}

func (f *fixture) basket(t testingT, client domain.ClientID) []domain.BasketLine {
	t.Helper()
	var lines []domain.BasketLine
	require.NoError(t, f.store.WithinTx(context.Background(), func(ctx context.Context, st tx.Stores) error {
		var err error
		lines, err = st.Basket().LinesForClient(ctx, client)
		return err
	}))
	return lines
}

func (f *fixture) orders(t testingT, client domain.ClientID) []domain.Order {
	t.Helper()
	var orders []domain.Order
	require.NoError(t, f.store.WithinTx(context.Background(), func(ctx context.Context, st tx.Stores) error {
		var err error
		orders, err = st.Orders().ListForClient(ctx, client)
		return err
	}))
	return orders
}

// hookedUoW lets a test swap parts of the store view or act around commit.
type hookedUoW struct {
	inner       tx.UnitOfWork
	wrap        func(tx.Stores) tx.Stores
	afterCommit func()
}

func (h hookedUoW) WithinTx(ctx context.Context, fn func(context.Context, tx.Stores) error) error {
	err := h.inner.WithinTx(ctx, func(ctx context.Context, st tx.Stores) error {
		if h.wrap != nil {
			st = h.wrap(st)
		}
		return fn(ctx, st)
	})
	if err == nil && h.afterCommit != nil {
		h.afterCommit()
	}
	return err
}

type hookedStores struct {
	tx.Stores
	inventory tx.Inventory
	basket    tx.Basket
	orders    tx.Orders
}

func (h hookedStores) Inventory() tx.Inventory {
	if h.inventory != nil {
		return h.inventory
	}
	return h.Stores.Inventory()
}

func (h hookedStores) Basket() tx.Basket {
	if h.basket != nil {
		return h.basket
	}
	return h.Stores.Basket()
}

func (h hookedStores) Orders() tx.Orders {
	if h.orders != nil {
		return h.orders
	}
	return h.Stores.Orders()
}

type failingOrders struct {
	tx.Orders
	err error
}

func (f failingOrders) Save(context.Context, domain.Order) (domain.Order, error) {
	return domain.Order{}, f.err
}

type cancellingOrders struct {
	tx.Orders
	cancel context.CancelFunc
}

func (c cancellingOrders) Save(ctx context.Context, o domain.Order) (domain.Order, error) {
	saved, err := c.Orders.Save(ctx, o)
	c.cancel()
	return saved, err
}

// afterReadBasket runs hook once the basket has been read by the checkout.
type afterReadBasket struct {
	tx.Basket
	hook func()
}

func (a afterReadBasket) LinesForClient(ctx context.Context, clientID domain.ClientID) ([]domain.BasketLine, error) {
	lines, err := a.Basket.LinesForClient(ctx, clientID)
	a.hook()
	return lines, err
}

// barrierInventory holds every checkout at its first stock decrement until
// all of them have read their snapshots.
type barrierInventory struct {
	tx.Inventory
	once    *sync.Once
	arrived *sync.WaitGroup
}

func (b barrierInventory) DecrementStock(ctx context.Context, id domain.ProductID, amount int) error {
	b.once.Do(func() {
		b.arrived.Done()
		b.arrived.Wait()
	})
	return b.Inventory.DecrementStock(ctx, id, amount)
}

// trackedUoW flags the time spent inside a unit of work.
type trackedUoW struct {
	inner tx.UnitOfWork
	inTx  *atomic.Bool
}

func (u trackedUoW) WithinTx(ctx context.Context, fn func(context.Context, tx.Stores) error) error {
	return u.inner.WithinTx(ctx, func(ctx context.Context, st tx.Stores) error {
		u.inTx.Store(true)
		defer u.inTx.Store(false)
		return fn(ctx, st)
	})
}

// trackedJournal records every status write and whether it happened while a
// unit of work was open.
type trackedJournal struct {
	tx.Journal
	inTx *atomic.Bool

	mu       sync.Mutex
	statuses []tx.Status
	duringTx int
}

func (j *trackedJournal) SetStatus(ctx context.Context, id tx.AttemptID, status tx.Status, orderID domain.OrderID, reason string) error {
	j.mu.Lock()
	j.statuses = append(j.statuses, status)
	if j.inTx.Load() {
		j.duringTx++
	}
	j.mu.Unlock()
	return j.Journal.SetStatus(ctx, id, status, orderID, reason)
}
