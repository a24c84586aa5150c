package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"coffee-eshop-go/internal/order/domain"
)

type catalogStore struct {
	q querier
}

func (s catalogStore) ListProducts(ctx context.Context, categoryID *domain.CategoryID) ([]domain.Product, error) {
	var filter *int64
	if categoryID != nil {
		v := int64(*categoryID)
		filter = &v
	}
	rows, err := s.q.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE ($1::bigint IS NULL OR category_id = $1) ORDER BY id`, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s catalogStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.q.Query(ctx, `SELECT id, name, description FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s catalogStore) GetCategory(ctx context.Context, id domain.CategoryID) (domain.Category, error) {
	var c domain.Category
	err := s.q.QueryRow(ctx, `SELECT id, name, description FROM categories WHERE id = $1`, int64(id)).
		Scan(&c.ID, &c.Name, &c.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	if err != nil {
		return domain.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

type clientStore struct {
	q querier
}

func (s clientStore) GetClient(ctx context.Context, id domain.ClientID) (domain.Client, error) {
	var (
		c    domain.Client
		role string
	)
	err := s.q.QueryRow(ctx, `SELECT id, first_name, last_name, email, phone, role FROM clients WHERE id = $1`, int64(id)).
		Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &role)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Client{}, domain.ErrClientNotFound
	}
	if err != nil {
		return domain.Client{}, fmt.Errorf("get client %d: %w", id, err)
	}
	c.Role = domain.Role(role)
	return c, nil
}
