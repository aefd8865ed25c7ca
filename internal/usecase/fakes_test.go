package usecase

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/phenrril/joyeria/internal/domain"
)

type memProducts struct {
	items map[uuid.UUID]domain.Product
}

func newMemProducts() *memProducts { return &memProducts{items: map[uuid.UUID]domain.Product{}} }

func (r *memProducts) Save(_ context.Context, p *domain.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.items[p.ID] = *p
	return nil
}

func (r *memProducts) FindBySlug(_ context.Context, slug string) (*domain.Product, error) {
	for _, p := range r.items {
		if p.Slug == slug {
			cp := p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memProducts) List(_ context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	out := []domain.Product{}
	for _, p := range r.items {
		if f.ActiveOnly && !p.Active {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Query)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, int64(len(out)), nil
}

func (r *memProducts) SlugTaken(_ context.Context, slug string, except uuid.UUID) (bool, error) {
	for id, p := range r.items {
		if p.Slug == slug && id != except {
			return true, nil
		}
	}
	return false, nil
}

func (r *memProducts) DeleteBySlug(_ context.Context, slug string) error {
	for id, p := range r.items {
		if p.Slug == slug {
			delete(r.items, id)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *memProducts) DistinctCategories(context.Context) ([]string, error) {
	seen := map[string]bool{}
	out := []string{}
	for _, p := range r.items {
		if p.Category != "" && !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

type memMaterials struct {
	items map[uuid.UUID]domain.Material
}

func newMemMaterials(prices ...string) (*memMaterials, []uuid.UUID) {
	r := &memMaterials{items: map[uuid.UUID]domain.Material{}}
	ids := make([]uuid.UUID, 0, len(prices))
	for i, p := range prices {
		m := domain.Material{ID: uuid.New(), Name: "m" + string(rune('a'+i)), PricePerGram: decimal.RequireFromString(p)}
		r.items[m.ID] = m
		ids = append(ids, m.ID)
	}
	return r, ids
}

func (r *memMaterials) List(context.Context) ([]domain.Material, error) {
	out := make([]domain.Material, 0, len(r.items))
	for _, m := range r.items {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memMaterials) FindByID(_ context.Context, id uuid.UUID) (*domain.Material, error) {
	m, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &m, nil
}

func (r *memMaterials) Save(_ context.Context, m *domain.Material) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.items[m.ID] = *m
	return nil
}

func (r *memMaterials) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

type memCustomers struct {
	items map[string]domain.Customer
}

func (r *memCustomers) FindByEmail(_ context.Context, email string) (*domain.Customer, error) {
	c, ok := r.items[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (r *memCustomers) Save(_ context.Context, c *domain.Customer) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.items[c.Email] = *c
	return nil
}

func (r *memCustomers) List(context.Context, int, int) ([]domain.Customer, int64, error) {
	out := []domain.Customer{}
	for _, c := range r.items {
		out = append(out, c)
	}
	return out, int64(len(out)), nil
}

func mustParse(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return id
}
