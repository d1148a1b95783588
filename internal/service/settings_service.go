package service

import (
	"context"
	"errors"
	"math"

	"caja/internal/repository"
)

// DefaultDiscountPercentage скидка за наличные, пока её не настроили
const DefaultDiscountPercentage = 10.0

type SettingsService struct {
	repo            repository.SettingsRepository
	defaultDiscount float64
}

func NewSettingsService(repo repository.SettingsRepository, defaultDiscount float64) *SettingsService {
	if !validPercentage(defaultDiscount) {
		defaultDiscount = DefaultDiscountPercentage
	}
	return &SettingsService{repo: repo, defaultDiscount: defaultDiscount}
}

func validPercentage(p float64) bool {
	return !math.IsNaN(p) && p >= 0 && p <= 100
}

func (s *SettingsService) DiscountPercentage(ctx context.Context) (float64, error) {
	p, err := s.repo.DiscountPercentage(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return s.defaultDiscount, nil
	}
	if err != nil {
		return 0, storeError("load discount", err)
	}
	return p, nil
}

func (s *SettingsService) SetDiscountPercentage(ctx context.Context, p float64) error {
	if !validPercentage(p) {
		return ErrInvalidInput
	}
	return storeError("save discount", s.repo.SetDiscountPercentage(ctx, p))
}
