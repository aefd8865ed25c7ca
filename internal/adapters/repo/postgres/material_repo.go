package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/joyeria/internal/domain"
)

type MaterialRepo struct{ db *gorm.DB }

func NewMaterialRepo(db *gorm.DB) *MaterialRepo { return &MaterialRepo{db: db} }

func (r *MaterialRepo) List(ctx context.Context) ([]domain.Material, error) {
	var list []domain.Material
	if err := r.db.WithContext(ctx).Order("name asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *MaterialRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Material, error) {
	var m domain.Material
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *MaterialRepo) Save(ctx context.Context, m *domain.Material) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *MaterialRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&domain.Material{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
