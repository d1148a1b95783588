package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"caja/internal/domain"
	"caja/internal/repository"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 200
)

// OrderService история заказов и закрытие кассы
type OrderService struct {
	orders    repository.OrderRepository
	sequencer *Sequencer
	tx        repository.TxManager
	clock     Clock
	pageLimit int
}

func NewOrderService(orders repository.OrderRepository, sequencer *Sequencer, tx repository.TxManager, clock Clock, pageLimit int) *OrderService {
	if pageLimit <= 0 || pageLimit > MaxPageLimit {
		pageLimit = DefaultPageLimit
	}
	return &OrderService{orders: orders, sequencer: sequencer, tx: tx, clock: clock, pageLimit: pageLimit}
}

// OrderPage страница истории; HasMore: есть ли записи после Offset+len(Orders)
type OrderPage struct {
	Orders  []domain.Order `json:"orders"`
	Offset  int            `json:"offset"`
	Limit   int            `json:"limit"`
	HasMore bool           `json:"hasMore"`
}

// CloseResult итог закрытия кассы
type CloseResult struct {
	Day    string `json:"day"`
	Closed int    `json:"closed"`
}

// CreateOrder сохраняет заказ как есть. Пустые поля заполняются: дата, день, статус open.
func (s *OrderService) CreateOrder(ctx context.Context, o domain.Order) (*domain.Order, error) {
	if !o.PaymentMethod.Valid() || len(o.Items) == 0 {
		return nil, ErrInvalidInput
	}
	if o.Status == "" {
		o.Status = domain.OrderStatusOpen
	}
	if !o.Status.Valid() {
		return nil, ErrInvalidInput
	}
	if o.Date.IsZero() {
		o.Date = s.clock.Now()
	}
	if o.Day == "" {
		o.Day = domain.DayOf(o.Date, s.clock.Location())
	}
	if strings.TrimSpace(o.OrderID) == "" {
		o.OrderID = domain.UnassignedOrderID
	}
	cp := o
	cp.ID = ""
	if err := s.orders.Create(ctx, &cp); err != nil {
		return nil, storeError("create order", err)
	}
	return &cp, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("get order", err)
	}
	return o, nil
}

// ListOrders страница истории, новые сверху
func (s *OrderService) ListOrders(ctx context.Context, f repository.OrderFilter) (*OrderPage, error) {
	if f.Offset < 0 || f.Limit < 0 {
		return nil, ErrInvalidInput
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrInvalidInput
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return nil, ErrInvalidInput
	}
	limit := f.Limit
	if limit == 0 {
		limit = s.pageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	// на одну запись больше, чтобы узнать про следующую страницу
	f.Limit = limit + 1
	list, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, storeError("list orders", err)
	}
	page := &OrderPage{Offset: f.Offset, Limit: limit}
	if len(list) > limit {
		page.HasMore = true
		list = list[:limit]
	}
	page.Orders = list
	return page, nil
}

func (s *OrderService) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	if id == "" || !status.Valid() {
		return nil, ErrInvalidInput
	}
	if err := s.orders.UpdateStatus(ctx, id, status); err != nil {
		return nil, storeError("update order status", err)
	}
	return s.GetOrder(ctx, id)
}

func (s *OrderService) DeleteOrder(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidInput
	}
	return storeError("delete order", s.orders.Delete(ctx, id))
}

// CloseRegister переводит открытые заказы сегодняшнего дня в closed и обнуляет счётчик.
// Счётчик сбрасывается последним: если закрытие прервалось, номера не начнутся заново,
// а повторный вызов доведёт дело до конца.
func (s *OrderService) CloseRegister(ctx context.Context) (CloseResult, error) {
	res := CloseResult{Day: s.clock.Today()}
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		// fn может повторяться (транзакции Mongo), поэтому счёт с нуля
		res.Closed = 0
		open, err := s.orders.List(ctx, repository.OrderFilter{Day: res.Day, Status: domain.OrderStatusOpen})
		if err != nil {
			return storeError("list open orders", err)
		}
		for _, o := range open {
			if err := s.orders.UpdateStatus(ctx, o.ID, domain.OrderStatusClosed); err != nil {
				return storeError("close order", err)
			}
			res.Closed++
		}
		return s.sequencer.ResetForRegisterClose(ctx)
	})
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"day": res.Day, "closed": res.Closed}).Error("register close failed")
		return res, err
	}
	logrus.WithFields(logrus.Fields{"day": res.Day, "closed": res.Closed}).Info("register closed")
	return res, nil
}
