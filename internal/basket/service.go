// Package basket manages a client's pending purchase lines. Every mutation
// runs in a unit of work so it serialises with checkout.
package basket

import (
	"context"
	"time"

	"coffee-eshop-go/internal/order/domain"
	"coffee-eshop-go/internal/order/tx"
	"coffee-eshop-go/pkg/logging"
)

// Item is a basket line with the product it points at. Product is nil when
// the product has been removed from the catalog since.
type Item struct {
	domain.BasketLine
	Product *domain.Product `json:"product,omitempty"`
}

type Service struct {
	uow tx.UnitOfWork
	log *logging.Logger
	now func() time.Time
}

func NewService(uow tx.UnitOfWork, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewNop()
	}
	return &Service{uow: uow, log: log, now: time.Now}
}

func (s *Service) List(ctx context.Context, clientID domain.ClientID) ([]Item, error) {
	var items []Item
	err := s.uow.WithinTx(ctx, func(ctx context.Context, st tx.Stores) error {
		lines, err := st.Basket().LinesForClient(ctx, clientID)
		if err != nil {
			return err
		}
		items = make([]Item, 0, len(lines))
		for _, l := range lines {
			item, err := withProduct(ctx, st, l)
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	})
	return items, err
}

// Add puts qty of a product in the basket, merging with an existing line.
// The product must be available and cover the merged quantity.
func (s *Service) Add(ctx context.Context, clientID domain.ClientID, productID domain.ProductID, qty int) (Item, error) {
	if qty <= 0 {
		return Item{}, domain.ErrInvalidQuantity
	}
	var item Item
	err := s.uow.WithinTx(ctx, func(ctx context.Context, st tx.Stores) error {
		if _, err := st.Clients().GetClient(ctx, clientID); err != nil {
			return err
		}
		p, ok, err := st.Inventory().GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrProductNotFound
		}
		if !p.Available {
			return domain.ErrProductUnavailable
		}

		lines, err := st.Basket().LinesForClient(ctx, clientID)
		if err != nil {
			return err
		}
		want := qty
		for _, l := range lines {
			if l.ProductID == productID {
				want += l.Quantity
			}
		}
		if p.Stock < want {
			return &domain.InsufficientStockError{ProductID: p.ID, ProductName: p.Name, Requested: want, Available: p.Stock}
		}

		line, err := st.Basket().AddLine(ctx, clientID, productID, qty, s.now())
		if err != nil {
			return err
		}
		item = Item{BasketLine: line, Product: &p}
		return nil
	})
	if err == nil {
		s.log.Log(logging.Fields{ClientID: int64(clientID), ProductID: int64(productID), Message: "basket line added"})
	}
	return item, err
}

func (s *Service) UpdateQuantity(ctx context.Context, clientID domain.ClientID, lineID domain.BasketLineID, qty int) (Item, error) {
	if qty <= 0 {
		return Item{}, domain.ErrInvalidQuantity
	}
	var item Item
	err := s.uow.WithinTx(ctx, func(ctx context.Context, st tx.Stores) error {
		line, err := st.Basket().GetLine(ctx, clientID, lineID)
		if err != nil {
			return err
		}
		p, ok, err := st.Inventory().GetProduct(ctx, line.ProductID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrProductNotFound
		}
		if p.Stock < qty {
			return &domain.InsufficientStockError{ProductID: p.ID, ProductName: p.Name, Requested: qty, Available: p.Stock}
		}
		line, err = st.Basket().SetQuantity(ctx, clientID, lineID, qty)
		if err != nil {
			return err
		}
		item = Item{BasketLine: line, Product: &p}
		return nil
	})
	return item, err
}

func (s *Service) Remove(ctx context.Context, clientID domain.ClientID, lineID domain.BasketLineID) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, st tx.Stores) error {
		if _, err := st.Basket().GetLine(ctx, clientID, lineID); err != nil {
			return err
		}
		return st.Basket().RemoveLines(ctx, clientID, []domain.BasketLineID{lineID})
	})
}

func (s *Service) Clear(ctx context.Context, clientID domain.ClientID) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, st tx.Stores) error {
		return st.Basket().ClearClient(ctx, clientID)
	})
}

func withProduct(ctx context.Context, st tx.Stores, l domain.BasketLine) (Item, error) {
	p, ok, err := st.Inventory().GetProduct(ctx, l.ProductID)
	if err != nil {
		return Item{}, err
	}
	item := Item{BasketLine: l}
	if ok {
		item.Product = &p
	}
	return item, nil
}
