package service

import (
	"context"
	"errors"
	"strings"

	"caja/internal/domain"
	"caja/internal/repository"
)

// ProductService инкапсулирует бизнес-логику вокруг меню
type ProductService struct {
	repo repository.ProductRepository
}

func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

var ErrInvalidInput = errors.New("invalid input")

func validProduct(p domain.Product) bool {
	return strings.TrimSpace(p.Name) != "" && p.Price >= 0 && p.Category.Valid()
}

func (s *ProductService) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Price = domain.NormalizePrice(p.Price)
	if !validProduct(p) {
		return nil, ErrInvalidInput
	}
	cp := p
	cp.ID = ""
	if err := s.repo.Create(ctx, &cp); err != nil {
		return nil, storeError("create product", err)
	}
	return &cp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *ProductService) Update(ctx context.Context, p domain.Product) (*domain.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Price = domain.NormalizePrice(p.Price)
	if p.ID == "" || !validProduct(p) {
		return nil, ErrInvalidInput
	}
	cp := p
	if err := s.repo.Update(ctx, &cp); err != nil {
		return nil, storeError("update product", err)
	}
	return &cp, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidInput
	}
	return storeError("delete product", s.repo.Delete(ctx, id))
}

func (s *ProductService) List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, error) {
	if f.Category != "" && !f.Category.Valid() {
		return nil, ErrInvalidInput
	}
	list, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, storeError("list products", err)
	}
	return list, nil
}
