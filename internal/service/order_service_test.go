package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caja/internal/cart"
	"caja/internal/domain"
	"caja/internal/pricing"
	"caja/internal/repository"
)

type fixture struct {
	store    *repository.MemoryStore
	counter  *repository.MemoryCounter
	fake     *fakeNow
	seq      *Sequencer
	products *ProductService
	extras   *ExtrasService
	settings *SettingsService
	orders   *OrderService
	carts    *CartService
	registry *cart.Registry
	reports  *ReportService
}

func setup(t *testing.T) *fixture {
	t.Helper()
	return setupWith(t, nil, pricing.PolicyZero)
}

// setupWith позволяет подменить репозиторий заказов (например, для имитации сбоя)
func setupWith(t *testing.T, wrap func(repository.OrderRepository) repository.OrderRepository, policy pricing.UnknownExtraPolicy) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	var ordersRepo repository.OrderRepository = repository.NewMemoryOrders(store)
	if wrap != nil {
		ordersRepo = wrap(ordersRepo)
	}
	clock, fake := newFakeClock(testNoon)
	counter := repository.NewMemoryCounter(store)
	seq := NewSequencer(counter, clock)

	f := &fixture{store: store, counter: counter, fake: fake, seq: seq}
	f.products = NewProductService(store)
	f.extras = NewExtrasService(repository.NewMemoryExtras(store))
	f.settings = NewSettingsService(repository.NewMemorySettings(store), DefaultDiscountPercentage)
	f.orders = NewOrderService(ordersRepo, seq, repository.NewMemoryTx(store), clock, 0)
	f.registry = cart.NewRegistry()
	f.carts = NewCartService(f.registry, f.products, f.extras, f.settings, f.orders, seq, pricing.NewEngine(policy), clock)
	f.reports = NewReportService(ordersRepo, clock)
	return f
}

func (f *fixture) seedOrder(t *testing.T, day string, status domain.OrderStatus) *domain.Order {
	t.Helper()
	date, err := time.Parse(domain.DayLayout, day)
	require.NoError(t, err)
	o, err := f.orders.CreateOrder(context.Background(), domain.Order{
		OrderID:       day + "-x",
		Date:          date.Add(10 * time.Hour),
		Items:         []domain.OrderItem{{Name: "Coca", Price: 700, Number: 1}},
		Total:         700,
		PaymentMethod: domain.PaymentCard,
		Status:        status,
	})
	require.NoError(t, err)
	return o
}

// flakyOrders отказывает на n-м вызове UpdateStatus
type flakyOrders struct {
	repository.OrderRepository
	failOn int32
	calls  int32
}

var errFlaky = errors.New("store unavailable")

func (f *flakyOrders) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	if atomic.AddInt32(&f.calls, 1) == f.failOn {
		return errFlaky
	}
	return f.OrderRepository.UpdateStatus(ctx, id, status)
}

func TestCreateOrder_Defaults(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	o, err := f.orders.CreateOrder(ctx, domain.Order{
		Items:         []domain.OrderItem{{Name: "Miga", Price: 300, Number: 2}},
		PaymentMethod: domain.PaymentMercadopago,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, domain.UnassignedOrderID, o.OrderID)
	assert.Equal(t, domain.OrderStatusOpen, o.Status)
	assert.Equal(t, "2026-10-17", o.Day)
	assert.True(t, o.Date.Equal(testNoon))

	got, err := f.orders.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Items, got.Items)
}

func TestCreateOrder_Invalid(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	_, err := f.orders.CreateOrder(ctx, domain.Order{PaymentMethod: domain.PaymentCash})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.orders.CreateOrder(ctx, domain.Order{Items: []domain.OrderItem{{Name: "A"}}, PaymentMethod: "Cheque"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestListOrders_Paging(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	for i := 0; i < 5; i++ {
		f.fake.t = testNoon.Add(time.Duration(i) * time.Minute)
		_, err := f.orders.CreateOrder(ctx, domain.Order{
			Items:         []domain.OrderItem{{Name: "Coca", Price: 700, Number: 1}},
			PaymentMethod: domain.PaymentCash,
		})
		require.NoError(t, err)
	}

	page, err := f.orders.ListOrders(ctx, repository.OrderFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	assert.True(t, page.HasMore)
	assert.True(t, page.Orders[0].Date.After(page.Orders[1].Date))

	page, err = f.orders.ListOrders(ctx, repository.OrderFilter{Offset: 4, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Orders, 1)
	assert.False(t, page.HasMore)

	page, err = f.orders.ListOrders(ctx, repository.OrderFilter{})
	require.NoError(t, err)
	assert.Equal(t, DefaultPageLimit, page.Limit)
	assert.Len(t, page.Orders, 5)

	_, err = f.orders.ListOrders(ctx, repository.OrderFilter{Offset: -1})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestListOrders_ByDay(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.seedOrder(t, "2026-10-16", domain.OrderStatusOpen)
	f.seedOrder(t, "2026-10-17", domain.OrderStatusOpen)

	page, err := f.orders.ListOrders(ctx, repository.OrderFilter{Day: "2026-10-16"})
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, "2026-10-16", page.Orders[0].Day)
}

func TestUpdateStatus_And_Delete(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	o := f.seedOrder(t, "2026-10-17", domain.OrderStatusOpen)

	up, err := f.orders.UpdateOrderStatus(ctx, o.ID, domain.OrderStatusClosed)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusClosed, up.Status)

	_, err = f.orders.UpdateOrderStatus(ctx, o.ID, "cancelled")
	assert.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, f.orders.DeleteOrder(ctx, o.ID))
	_, err = f.orders.GetOrder(ctx, o.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, f.orders.DeleteOrder(ctx, o.ID), repository.ErrNotFound)
}

func TestCloseRegister(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	for i := 0; i < 3; i++ {
		f.seedOrder(t, "2026-10-17", domain.OrderStatusOpen)
	}
	yesterday := f.seedOrder(t, "2026-10-16", domain.OrderStatusOpen)
	require.NoError(t, f.counter.Set(ctx, domain.DailyCounter{Date: "2026-10-17", OrderNumber: 3}))

	res, err := f.orders.CloseRegister(ctx)
	require.NoError(t, err)
	assert.Equal(t, CloseResult{Day: "2026-10-17", Closed: 3}, res)

	page, _ := f.orders.ListOrders(ctx, repository.OrderFilter{Day: "2026-10-17"})
	for _, o := range page.Orders {
		assert.Equal(t, domain.OrderStatusClosed, o.Status)
	}
	old, _ := f.orders.GetOrder(ctx, yesterday.ID)
	assert.Equal(t, domain.OrderStatusOpen, old.Status)

	c, _ := f.counter.Get(ctx)
	assert.Equal(t, domain.DailyCounter{Date: "2026-10-17", OrderNumber: 0}, *c)

	// повторное закрытие ничего не ломает
	res, err = f.orders.CloseRegister(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Closed)
}

func TestCloseRegister_FailureKeepsCounter(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyOrders{failOn: 2}
	f := setupWith(t, func(r repository.OrderRepository) repository.OrderRepository {
		flaky.OrderRepository = r
		return flaky
	}, pricing.PolicyZero)
	for i := 0; i < 3; i++ {
		f.seedOrder(t, "2026-10-17", domain.OrderStatusOpen)
	}
	require.NoError(t, f.counter.Set(ctx, domain.DailyCounter{Date: "2026-10-17", OrderNumber: 3}))

	res, err := f.orders.CloseRegister(ctx)
	require.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 1, res.Closed)

	// счётчик не тронут: новые заказы не получат повторные номера
	c, _ := f.counter.Get(ctx)
	assert.Equal(t, 3, c.OrderNumber)

	closedPage, _ := f.orders.ListOrders(ctx, repository.OrderFilter{Day: "2026-10-17", Status: domain.OrderStatusClosed})
	assert.Len(t, closedPage.Orders, 1)

	// повтор доводит закрытие до конца
	res, err = f.orders.CloseRegister(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Closed)
	c, _ = f.counter.Get(ctx)
	assert.Equal(t, 0, c.OrderNumber)
}
