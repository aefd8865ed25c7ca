package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

type ProductRepo interface {
	Save(ctx context.Context, p *Product) error
	FindBySlug(ctx context.Context, slug string) (*Product, error)
	List(ctx context.Context, f ProductFilter) ([]Product, int64, error)
	SlugTaken(ctx context.Context, slug string, except uuid.UUID) (bool, error)
	DeleteBySlug(ctx context.Context, slug string) error
	DistinctCategories(ctx context.Context) ([]string, error)
}

type MaterialRepo interface {
	List(ctx context.Context) ([]Material, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Material, error)
	Save(ctx context.Context, m *Material) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type CustomerRepo interface {
	FindByEmail(ctx context.Context, email string) (*Customer, error)
	Save(ctx context.Context, c *Customer) error
	List(ctx context.Context, page, pageSize int) ([]Customer, int64, error)
}
