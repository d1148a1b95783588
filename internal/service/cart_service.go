package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"caja/internal/cart"
	"caja/internal/domain"
	"caja/internal/pricing"
)

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrOutOfStock       = errors.New("product out of stock")
	ErrExtrasNotAllowed = errors.New("extras not allowed for this category")
)

// CartService корзины кассовых сессий и оформление заказа
type CartService struct {
	carts     *cart.Registry
	products  *ProductService
	extras    *ExtrasService
	settings  *SettingsService
	orders    *OrderService
	sequencer *Sequencer
	engine    *pricing.Engine
	clock     Clock
}

func NewCartService(
	carts *cart.Registry,
	products *ProductService,
	extras *ExtrasService,
	settings *SettingsService,
	orders *OrderService,
	sequencer *Sequencer,
	engine *pricing.Engine,
	clock Clock,
) *CartService {
	return &CartService{
		carts:     carts,
		products:  products,
		extras:    extras,
		settings:  settings,
		orders:    orders,
		sequencer: sequencer,
		engine:    engine,
		clock:     clock,
	}
}

// CartView содержимое корзины с итогами для выбранного способа оплаты
type CartView struct {
	Session       string               `json:"session"`
	Lines         []domain.CartLine    `json:"lines"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	Totals        pricing.Totals       `json:"totals"`
}

// CheckoutRequest параметры оформления
type CheckoutRequest struct {
	PaymentMethod domain.PaymentMethod
	// WithoutNumber заказ «sin-asignar», счётчик не трогается
	WithoutNumber bool
}

func (s *CartService) View(ctx context.Context, session string, method domain.PaymentMethod) (*CartView, error) {
	if session == "" {
		return nil, ErrInvalidInput
	}
	if method == "" {
		method = domain.PaymentCash
	}
	if !method.Valid() {
		return nil, ErrInvalidInput
	}
	var lines []domain.CartLine
	if c, ok := s.carts.Lookup(session); ok {
		lines = c.Lines()
	} else {
		lines = []domain.CartLine{}
	}
	totals, err := s.price(ctx, lines, method)
	if err != nil {
		return nil, err
	}
	return &CartView{Session: session, Lines: lines, PaymentMethod: method, Totals: totals}, nil
}

func (s *CartService) price(ctx context.Context, lines []domain.CartLine, method domain.PaymentMethod) (pricing.Totals, error) {
	pct, err := s.settings.DiscountPercentage(ctx)
	if err != nil {
		return pricing.Totals{}, err
	}
	return s.engine.Compute(pricing.FromCart(lines), method.IsCash(), pct)
}

// AddProduct новая позиция с количеством 1; товар без наличия не добавляется
func (s *CartService) AddProduct(ctx context.Context, session, productID string) (domain.CartLine, error) {
	if session == "" {
		return domain.CartLine{}, ErrInvalidInput
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return domain.CartLine{}, err
	}
	if !p.Stock {
		return domain.CartLine{}, ErrOutOfStock
	}
	return s.carts.Add(session, *p), nil
}

// cart корзина существующей сессии; неизвестная сессия значит, что позиции нет
func (s *CartService) cart(session string) (*cart.Cart, error) {
	c, ok := s.carts.Lookup(session)
	if !ok {
		return nil, cart.ErrLineNotFound
	}
	return c, nil
}

func (s *CartService) Increment(session, cartID string) (domain.CartLine, error) {
	c, err := s.cart(session)
	if err != nil {
		return domain.CartLine{}, err
	}
	return c.IncrementProduct(cartID)
}

func (s *CartService) Decrement(session, cartID string) (domain.CartLine, error) {
	c, err := s.cart(session)
	if err != nil {
		return domain.CartLine{}, err
	}
	return c.DecrementProduct(cartID)
}

func (s *CartService) Remove(session, cartID string) error {
	c, err := s.cart(session)
	if err != nil {
		return err
	}
	if err := c.RemoveFromCart(cartID); err != nil {
		return err
	}
	s.carts.DropIfEmpty(session)
	return nil
}

// AddExtra добавка к позиции. Без явной цены берётся текущая из прайса;
// цена фиксируется в позиции.
func (s *CartService) AddExtra(ctx context.Context, session, cartID, name string, price *float64) (domain.CartLine, error) {
	name, ok := normalizeExtraName(name)
	if !ok {
		return domain.CartLine{}, ErrInvalidInput
	}
	c, err := s.cart(session)
	if err != nil {
		return domain.CartLine{}, err
	}
	line, err := c.Line(cartID)
	if err != nil {
		return domain.CartLine{}, err
	}
	if !line.Category.AcceptsExtras() {
		return domain.CartLine{}, ErrExtrasNotAllowed
	}
	var unit float64
	if price != nil {
		unit = *price
	} else {
		prices, err := s.extras.Prices(ctx)
		if err != nil {
			return domain.CartLine{}, err
		}
		p, known := prices[name]
		if !known && s.engine.Policy() == pricing.PolicyReject {
			return domain.CartLine{}, fmt.Errorf("%w: %q", pricing.ErrUnknownExtraPrice, name)
		}
		unit = p
	}
	return c.AddExtra(cartID, name, unit)
}

func (s *CartService) RemoveExtra(session, cartID, name string) (domain.CartLine, error) {
	c, err := s.cart(session)
	if err != nil {
		return domain.CartLine{}, err
	}
	return c.RemoveExtra(cartID, name)
}

func (s *CartService) Reset(session string) {
	s.carts.Drop(session)
}

// NextNumber номер, который получит следующий заказ
func (s *CartService) NextNumber(ctx context.Context) (int, error) {
	return s.sequencer.NextDisplay(ctx)
}

// Checkout оформляет корзину: расчёт, номер, запись заказа, удаление оформленных позиций.
// Расчёт идёт до выдачи номера, чтобы отказ в расчёте не сжигал номер.
// Оформления одной сессии идут по очереди: повторное нажатие увидит пустую
// корзину и получит ErrEmptyCart.
func (s *CartService) Checkout(ctx context.Context, session string, req CheckoutRequest) (*domain.Order, error) {
	if session == "" || !req.PaymentMethod.Valid() {
		return nil, ErrInvalidInput
	}
	c, ok := s.carts.Lookup(session)
	if !ok {
		return nil, ErrEmptyCart
	}

	var created *domain.Order
	err := c.Settle(func(lines []domain.CartLine) error {
		if len(lines) == 0 {
			return ErrEmptyCart
		}
		o, err := s.placeOrder(ctx, lines, req)
		if err != nil {
			return err
		}
		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.carts.DropIfEmpty(session)

	logrus.WithFields(logrus.Fields{
		"orderId": created.OrderID,
		"total":   created.Total,
		"payment": created.PaymentMethod,
	}).Info("order created")
	return created, nil
}

func (s *CartService) placeOrder(ctx context.Context, lines []domain.CartLine, req CheckoutRequest) (*domain.Order, error) {
	totals, err := s.price(ctx, lines, req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	day := domain.DayOf(now, s.clock.Location())
	orderID := domain.UnassignedOrderID
	if !req.WithoutNumber {
		n, err := s.sequencer.Next(ctx)
		if err != nil {
			return nil, err
		}
		orderID = fmt.Sprintf("%s-%d", day, n)
	}

	items := make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, domain.OrderItem{
			Name:        l.Name,
			Price:       l.BasePrice,
			Number:      l.Quantity,
			Extras:      l.Extras,
			ExtraPrices: l.ExtraPrices,
		})
	}

	created, err := s.orders.CreateOrder(ctx, domain.Order{
		OrderID:            orderID,
		Date:               now,
		Day:                day,
		Items:              items,
		Subtotal:           totals.Subtotal,
		ExtrasTotal:        totals.ExtrasTotal,
		Discount:           totals.Discount,
		DiscountPercentage: totals.DiscountPercentage,
		Total:              totals.FinalTotal,
		PaymentMethod:      req.PaymentMethod,
		Status:             domain.OrderStatusOpen,
	})
	if err != nil {
		// номер уже выдан и не возвращается
		logrus.WithError(err).WithField("orderId", orderID).Warn("checkout failed after numbering")
		return nil, err
	}
	return created, nil
}

// Quote итоги для уже собранных позиций заказа (ручной ввод, импорт).
// pct nil: процент скидки из настроек.
func (s *CartService) Quote(ctx context.Context, items []domain.OrderItem, method domain.PaymentMethod, pct *float64) (pricing.Totals, error) {
	if !method.Valid() || len(items) == 0 {
		return pricing.Totals{}, ErrInvalidInput
	}
	var p float64
	if pct != nil {
		if *pct < 0 || *pct > 100 {
			return pricing.Totals{}, ErrInvalidInput
		}
		p = *pct
	} else {
		var err error
		if p, err = s.settings.DiscountPercentage(ctx); err != nil {
			return pricing.Totals{}, err
		}
	}
	return s.engine.Compute(pricing.FromOrder(items), method.IsCash(), p)
}
