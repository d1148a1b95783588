package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"caja/internal/domain"
)

// ErrUnknownExtraPrice возвращается при политике PolicyReject, если у добавки нет цены
var ErrUnknownExtraPrice = errors.New("unknown extra price")

// UnknownExtraPolicy что делать с добавкой без сохранённой цены
type UnknownExtraPolicy string

const (
	// PolicyZero считает цену неизвестной добавки нулевой
	PolicyZero UnknownExtraPolicy = "zero"
	// PolicyReject прерывает расчёт с ErrUnknownExtraPrice
	PolicyReject UnknownExtraPolicy = "reject"
)

func (p UnknownExtraPolicy) Valid() bool { return p == PolicyZero || p == PolicyReject }

// Line минимальный вид позиции, общий для корзины и сохранённого заказа
type Line struct {
	Name        string
	BasePrice   float64
	Quantity    int
	Extras      []string
	ExtraPrices map[string]float64
}

// FromCart переводит позиции корзины в Line
func FromCart(lines []domain.CartLine) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, Line{Name: l.Name, BasePrice: l.BasePrice, Quantity: l.Quantity, Extras: l.Extras, ExtraPrices: l.ExtraPrices})
	}
	return out
}

// FromOrder переводит позиции заказа в Line (заказы, введённые вручную без итогов)
func FromOrder(items []domain.OrderItem) []Line {
	out := make([]Line, 0, len(items))
	for _, it := range items {
		out = append(out, Line{Name: it.Name, BasePrice: it.Price, Quantity: it.Number, Extras: it.Extras, ExtraPrices: it.ExtraPrices})
	}
	return out
}

// Totals результат расчёта заказа
type Totals struct {
	Subtotal           float64 `json:"subtotal"`
	ExtrasTotal        float64 `json:"extrasTotal"`
	Total              float64 `json:"total"`
	DiscountPercentage float64 `json:"discountPercentage"`
	Discount           float64 `json:"discount"`
	FinalTotal         float64 `json:"finalTotal"`
}

// Engine чистые функции расчёта; единственная настройка: политика неизвестных добавок
type Engine struct {
	policy UnknownExtraPolicy
}

func NewEngine(policy UnknownExtraPolicy) *Engine {
	if !policy.Valid() {
		policy = PolicyZero
	}
	return &Engine{policy: policy}
}

func (e *Engine) Policy() UnknownExtraPolicy { return e.policy }

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(domain.NormalizePrice(v))
}

func quantity(l Line) decimal.Decimal {
	if l.Quantity < 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(l.Quantity))
}

func (e *Engine) extrasPerUnit(l Line) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, name := range l.Extras {
		price, ok := l.ExtraPrices[name]
		if !ok && e.policy == PolicyReject {
			return decimal.Zero, fmt.Errorf("%w: %q on %q", ErrUnknownExtraPrice, name, l.Name)
		}
		sum = sum.Add(money(price))
	}
	return sum, nil
}

func (e *Engine) itemTotal(l Line) (base, extras decimal.Decimal, err error) {
	q := quantity(l)
	perUnit, err := e.extrasPerUnit(l)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return money(l.BasePrice).Mul(q), perUnit.Mul(q), nil
}

// ItemTotal basePrice × quantity + Σ extraPrices × quantity
func (e *Engine) ItemTotal(l Line) (float64, error) {
	base, extras, err := e.itemTotal(l)
	if err != nil {
		return 0, err
	}
	return base.Add(extras).InexactFloat64(), nil
}

// Compute считает итоги; скидка только при оплате наличными.
// Промежуточные суммы не округляются.
func (e *Engine) Compute(lines []Line, isCash bool, discountPercentage float64) (Totals, error) {
	subtotal, extrasTotal := decimal.Zero, decimal.Zero
	for _, l := range lines {
		base, extras, err := e.itemTotal(l)
		if err != nil {
			return Totals{}, err
		}
		subtotal = subtotal.Add(base)
		extrasTotal = extrasTotal.Add(extras)
	}
	total := subtotal.Add(extrasTotal)

	pct := clampPercentage(discountPercentage)
	discount := decimal.Zero
	if isCash {
		discount = total.Mul(decimal.NewFromFloat(pct)).Div(decimal.NewFromInt(100))
	}

	return Totals{
		Subtotal:           subtotal.InexactFloat64(),
		ExtrasTotal:        extrasTotal.InexactFloat64(),
		Total:              total.InexactFloat64(),
		DiscountPercentage: pct,
		Discount:           discount.InexactFloat64(),
		FinalTotal:         total.Sub(discount).InexactFloat64(),
	}, nil
}

func clampPercentage(p float64) float64 {
	p = domain.NormalizePrice(p)
	if p > 100 {
		return 100
	}
	return p
}
