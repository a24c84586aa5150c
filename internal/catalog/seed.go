// Package catalog loads the initial categories, products and clients that
// both storage backends start from.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"coffee-eshop-go/internal/order/domain"
)

//go:embed seed.yaml
var defaultSeed []byte

type Seed struct {
	Categories []CategoryRow `yaml:"categories"`
	Products   []ProductRow  `yaml:"products"`
	Clients    []ClientRow   `yaml:"clients"`
}

type CategoryRow struct {
	ID          int64  `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type ProductRow struct {
	ID          int64           `yaml:"id"`
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Price       decimal.Decimal `yaml:"price"`
	CategoryID  int64           `yaml:"category_id"`
	Available   bool            `yaml:"available"`
	Stock       int             `yaml:"stock"`
}

type ClientRow struct {
	ID        int64  `yaml:"id"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Email     string `yaml:"email"`
	Phone     string `yaml:"phone"`
	Role      string `yaml:"role"`
}

// Load reads the seed at path, or the embedded default when path is empty.
func Load(path string) (Seed, error) {
	data := defaultSeed
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Seed{}, fmt.Errorf("read seed: %w", err)
		}
		data = b
	}
	return Parse(data)
}

func Parse(data []byte) (Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Seed{}, fmt.Errorf("parse seed: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Seed{}, err
	}
	return s, nil
}

func (s Seed) Validate() error {
	cats := map[int64]bool{}
	for _, c := range s.Categories {
		if c.ID <= 0 || c.Name == "" {
			return fmt.Errorf("category %d: id and name are required", c.ID)
		}
		if cats[c.ID] {
			return fmt.Errorf("category %d: duplicate id", c.ID)
		}
		cats[c.ID] = true
	}
	seen := map[int64]bool{}
	for _, p := range s.Products {
		switch {
		case p.ID <= 0 || p.Name == "":
			return fmt.Errorf("product %d: id and name are required", p.ID)
		case seen[p.ID]:
			return fmt.Errorf("product %d: duplicate id", p.ID)
		case !cats[p.CategoryID]:
			return fmt.Errorf("product %d: unknown category %d", p.ID, p.CategoryID)
		case p.Stock < 0:
			return fmt.Errorf("product %d: negative stock", p.ID)
		case p.Price.IsNegative() || !p.Price.Equal(p.Price.Round(2)):
			return fmt.Errorf("product %d: price must be non-negative with at most 2 decimals", p.ID)
		}
		seen[p.ID] = true
	}
	clients := map[int64]bool{}
	for _, c := range s.Clients {
		if c.ID <= 0 {
			return errors.New("client id is required")
		}
		if clients[c.ID] {
			return fmt.Errorf("client %d: duplicate id", c.ID)
		}
		clients[c.ID] = true
	}
	return nil
}

func (s Seed) DomainCategories() []domain.Category {
	out := make([]domain.Category, 0, len(s.Categories))
	for _, c := range s.Categories {
		out = append(out, domain.Category{ID: domain.CategoryID(c.ID), Name: c.Name, Description: c.Description})
	}
	return out
}

func (s Seed) DomainProducts() []domain.Product {
	out := make([]domain.Product, 0, len(s.Products))
	for _, p := range s.Products {
		out = append(out, domain.Product{
			ID:          domain.ProductID(p.ID),
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			CategoryID:  domain.CategoryID(p.CategoryID),
			Available:   p.Available,
			Stock:       p.Stock,
		})
	}
	return out
}

func (s Seed) DomainClients() []domain.Client {
	out := make([]domain.Client, 0, len(s.Clients))
	for _, c := range s.Clients {
		role := domain.Role(c.Role)
		if role == "" {
			role = domain.RoleUser
		}
		out = append(out, domain.Client{
			ID:        domain.ClientID(c.ID),
			FirstName: c.FirstName,
			LastName:  c.LastName,
			Email:     c.Email,
			Phone:     c.Phone,
			Role:      role,
		})
	}
	return out
}
