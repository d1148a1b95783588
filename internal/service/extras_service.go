package service

import (
	"context"
	"errors"
	"strings"

	"caja/internal/domain"
	"caja/internal/repository"
)

var ErrExtraExists = errors.New("extra already exists")

// ExtrasService глобальный прайс добавок. Изменения не затрагивают цены, уже снятые в корзину.
type ExtrasService struct {
	repo repository.ExtraRepository
}

func NewExtrasService(repo repository.ExtraRepository) *ExtrasService {
	return &ExtrasService{repo: repo}
}

// имя добавки становится ключом документа extras/prices
func normalizeExtraName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, ".") || strings.HasPrefix(name, "$") {
		return "", false
	}
	return name, true
}

func (s *ExtrasService) Prices(ctx context.Context) (domain.ExtraPrices, error) {
	prices, err := s.repo.Prices(ctx)
	if err != nil {
		return nil, storeError("load extra prices", err)
	}
	return prices, nil
}

// SetPrice создаёт или обновляет цену добавки
func (s *ExtrasService) SetPrice(ctx context.Context, name string, price float64) error {
	name, ok := normalizeExtraName(name)
	if !ok {
		return ErrInvalidInput
	}
	return storeError("set extra price", s.repo.SetPrice(ctx, name, domain.NormalizePrice(price)))
}

// AddExtra как SetPrice, но отказывает, если такая добавка уже есть
func (s *ExtrasService) AddExtra(ctx context.Context, name string, price float64) error {
	name, ok := normalizeExtraName(name)
	if !ok {
		return ErrInvalidInput
	}
	prices, err := s.Prices(ctx)
	if err != nil {
		return err
	}
	if _, exists := prices[name]; exists {
		return ErrExtraExists
	}
	return storeError("add extra", s.repo.SetPrice(ctx, name, domain.NormalizePrice(price)))
}

func (s *ExtrasService) DeleteExtra(ctx context.Context, name string) error {
	name, ok := normalizeExtraName(name)
	if !ok {
		return ErrInvalidInput
	}
	return storeError("delete extra", s.repo.Delete(ctx, name))
}
