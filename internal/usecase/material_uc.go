package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/phenrril/joyeria/internal/domain"
	"github.com/phenrril/joyeria/internal/variants"
)

type MaterialUC struct {
	Materials domain.MaterialRepo
}

type MaterialInput struct {
	Name         string `json:"name" validate:"required,max=100"`
	PricePerGram string `json:"pricePerGram" validate:"required,money"`
}

func (uc *MaterialUC) List(ctx context.Context) ([]domain.Material, error) {
	return uc.Materials.List(ctx)
}

func (uc *MaterialUC) PriceBook(ctx context.Context) (variants.MaterialPrices, error) {
	return materialBook(ctx, uc.Materials)
}

func (uc *MaterialUC) Create(ctx context.Context, in MaterialInput) (*domain.Material, error) {
	m := &domain.Material{}
	if err := applyMaterial(m, in); err != nil {
		return nil, err
	}
	if err := uc.Materials.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("save material: %w", err)
	}
	return m, nil
}

// Update changes a material. Products priced dynamically pick up the new
// price per gram the next time they are priced.
func (uc *MaterialUC) Update(ctx context.Context, id uuid.UUID, in MaterialInput) (*domain.Material, error) {
	m, err := uc.Materials.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyMaterial(m, in); err != nil {
		return nil, err
	}
	if err := uc.Materials.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("save material: %w", err)
	}
	return m, nil
}

func (uc *MaterialUC) Delete(ctx context.Context, id uuid.UUID) error {
	return uc.Materials.Delete(ctx, id)
}

func applyMaterial(m *domain.Material, in MaterialInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.PricePerGram = strings.TrimSpace(in.PricePerGram)
	verr := &ValidationError{}
	check(verr, "", in)
	if err := verr.orNil(); err != nil {
		return err
	}
	m.Name = in.Name
	m.PricePerGram = decimal.RequireFromString(in.PricePerGram)
	return nil
}
