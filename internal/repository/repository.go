package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"caja/internal/domain"
)

// ErrNotFound возвращается, когда сущность не найдена
var ErrNotFound = errors.New("not found")

// Имена коллекций и документов хранилища
const (
	CollectionProducts = "products"
	CollectionOrders   = "orders"
	CollectionCounter  = "orderCounter"
	CollectionExtras   = "extras"
	CollectionSettings = "settings"

	CounterDocID  = "counter"
	ExtrasDocID   = "prices"
	DiscountDocID = "discount"
)

// ProductFilter параметры фильтрации меню
type ProductFilter struct {
	NameSubstring string
	Category      domain.Category
	InStock       *bool
}

// OrderFilter параметры выборки истории заказов.
// Результат отсортирован по дате по убыванию; Offset/Limit: простая пагинация.
type OrderFilter struct {
	Day    string
	From   *time.Time
	To     *time.Time
	Search string
	Status domain.OrderStatus
	Offset int
	Limit  int
}

// ProductRepository интерфейс репозитория товаров
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f ProductFilter) ([]domain.Product, error)
}

// OrderRepository интерфейс репозитория заказов; только вставка, без upsert
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, f OrderFilter) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error
	Delete(ctx context.Context, id string) error
}

// ExtraRepository глобальный прайс добавок (один документ extras/prices)
type ExtraRepository interface {
	Prices(ctx context.Context) (domain.ExtraPrices, error)
	SetPrice(ctx context.Context, name string, price float64) error
	Delete(ctx context.Context, name string) error
}

// SettingsRepository настройки кассы
type SettingsRepository interface {
	// DiscountPercentage возвращает ErrNotFound, если процент ещё не задан
	DiscountPercentage(ctx context.Context) (float64, error)
	SetDiscountPercentage(ctx context.Context, pct float64) error
}

// CounterRepository дневной счётчик номеров заказов
type CounterRepository interface {
	Get(ctx context.Context) (*domain.DailyCounter, error)
	Set(ctx context.Context, c domain.DailyCounter) error
	// Increment атомарно: если дата счётчика равна day, то +1, иначе {day, 1}.
	Increment(ctx context.Context, day string) (int, error)
}

// TxManager абстракция транзакции. Для in-memory это глобальная блокировка записи.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// helper: case-insensitive contains
func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func matchProduct(p domain.Product, f ProductFilter) bool {
	if !containsIgnoreCase(p.Name, f.NameSubstring) {
		return false
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.InStock != nil && p.Stock != *f.InStock {
		return false
	}
	return true
}

func matchOrder(o domain.Order, f OrderFilter) bool {
	if f.Day != "" && o.Day != f.Day {
		return false
	}
	if f.From != nil && o.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && o.Date.After(*f.To) {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.Search != "" && !containsIgnoreCase(o.OrderID, f.Search) && !containsIgnoreCase(string(o.PaymentMethod), f.Search) {
		return false
	}
	return true
}
