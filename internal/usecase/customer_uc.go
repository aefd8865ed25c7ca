package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/phenrril/joyeria/internal/domain"
)

type CustomerUC struct {
	Customers domain.CustomerRepo
	Now       func() time.Time
}

// UpsertFromLogin records a Google sign-in, creating the customer on first
// login.
func (uc *CustomerUC) UpsertFromLogin(ctx context.Context, email, name string) (*domain.Customer, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.New("empty email")
	}
	now := time.Now
	if uc.Now != nil {
		now = uc.Now
	}
	c, err := uc.Customers.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		c = &domain.Customer{Email: email}
	} else if err != nil {
		return nil, err
	}
	if n := strings.TrimSpace(name); n != "" {
		c.Name = n
	}
	c.LastLoginAt = now().UTC()
	if err := uc.Customers.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (uc *CustomerUC) List(ctx context.Context, page, pageSize int) ([]domain.Customer, int64, error) {
	return uc.Customers.List(ctx, page, pageSize)
}
