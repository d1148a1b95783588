package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caja/internal/cart"
	"caja/internal/domain"
	"caja/internal/pricing"
	"caja/internal/repository"
)

func (f *fixture) product(t *testing.T, name string, price float64, c domain.Category, stock bool) *domain.Product {
	t.Helper()
	p, err := f.products.Create(context.Background(), domain.Product{Name: name, Price: price, Category: c, Stock: stock})
	require.NoError(t, err)
	return p
}

func TestCheckout_CashWithDiscount(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	require.NoError(t, f.extras.AddExtra(ctx, "huevo", 450))
	mila := f.product(t, "Milanesa", 1000, domain.CategoryComida, true)

	line, err := f.carts.AddProduct(ctx, "caja-1", mila.ID)
	require.NoError(t, err)
	_, err = f.carts.Increment("caja-1", line.CartID)
	require.NoError(t, err)
	_, err = f.carts.AddExtra(ctx, "caja-1", line.CartID, "huevo", nil)
	require.NoError(t, err)

	view, err := f.carts.View(ctx, "caja-1", "")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCash, view.PaymentMethod)
	assert.Equal(t, 2610.0, view.Totals.FinalTotal)

	next, _ := f.carts.NextNumber(ctx)
	assert.Equal(t, 1, next)

	o, err := f.carts.Checkout(ctx, "caja-1", CheckoutRequest{PaymentMethod: domain.PaymentCash})
	require.NoError(t, err)
	assert.Equal(t, "2026-10-17-1", o.OrderID)
	assert.Equal(t, 2000.0, o.Subtotal)
	assert.Equal(t, 900.0, o.ExtrasTotal)
	assert.Equal(t, 290.0, o.Discount)
	assert.Equal(t, 10.0, o.DiscountPercentage)
	assert.Equal(t, 2610.0, o.Total)
	assert.Equal(t, domain.OrderStatusOpen, o.Status)
	require.Len(t, o.Items, 1)
	assert.Equal(t, domain.OrderItem{Name: "Milanesa", Price: 1000, Number: 2, Extras: []string{"huevo"}, ExtraPrices: map[string]float64{"huevo": 450}}, o.Items[0])

	view, _ = f.carts.View(ctx, "caja-1", domain.PaymentCash)
	assert.Empty(t, view.Lines)

	next, _ = f.carts.NextNumber(ctx)
	assert.Equal(t, 2, next)
}

func TestCheckout_CardHasNoDiscount(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.product(t, "Muzzarella", 5000, domain.CategoryPizzas, true)
	_, err := f.carts.AddProduct(ctx, "s", p.ID)
	require.NoError(t, err)

	o, err := f.carts.Checkout(ctx, "s", CheckoutRequest{PaymentMethod: domain.PaymentCard})
	require.NoError(t, err)
	assert.Equal(t, 0.0, o.Discount)
	assert.Equal(t, 5000.0, o.Total)
}

func TestCheckout_WithoutNumber(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.product(t, "Coca", 700, domain.CategoryGaseosas, true)
	_, _ = f.carts.AddProduct(ctx, "s", p.ID)

	o, err := f.carts.Checkout(ctx, "s", CheckoutRequest{PaymentMethod: domain.PaymentMercadopago, WithoutNumber: true})
	require.NoError(t, err)
	assert.Equal(t, domain.UnassignedOrderID, o.OrderID)

	_, err = f.counter.Get(ctx)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := setup(t)
	_, err := f.carts.Checkout(context.Background(), "s", CheckoutRequest{PaymentMethod: domain.PaymentCash})
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = f.carts.Checkout(context.Background(), "s", CheckoutRequest{PaymentMethod: "Bitcoin"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCheckout_SessionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.product(t, "Coca", 700, domain.CategoryGaseosas, true)
	_, _ = f.carts.AddProduct(ctx, "a", p.ID)
	_, _ = f.carts.AddProduct(ctx, "b", p.ID)

	_, err := f.carts.Checkout(ctx, "a", CheckoutRequest{PaymentMethod: domain.PaymentCash})
	require.NoError(t, err)

	view, _ := f.carts.View(ctx, "b", domain.PaymentCash)
	assert.Len(t, view.Lines, 1)
}

func TestCheckout_DiscountFromSettings(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	require.NoError(t, f.settings.SetDiscountPercentage(ctx, 20))
	p := f.product(t, "Quilmes", 1000, domain.CategoryCervezas, true)
	_, _ = f.carts.AddProduct(ctx, "s", p.ID)

	o, err := f.carts.Checkout(ctx, "s", CheckoutRequest{PaymentMethod: domain.PaymentCash})
	require.NoError(t, err)
	assert.Equal(t, 200.0, o.Discount)
	assert.Equal(t, 800.0, o.Total)
}

func TestAddProduct_OutOfStock(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.product(t, "Napolitana", 5500, domain.CategoryPizzas, false)
	_, err := f.carts.AddProduct(ctx, "s", p.ID)
	assert.ErrorIs(t, err, ErrOutOfStock)

	_, err = f.carts.AddProduct(ctx, "s", "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAddExtra_Rules(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	pizza := f.product(t, "Muzzarella", 5000, domain.CategoryPizzas, true)
	mila := f.product(t, "Milanesa", 1000, domain.CategoryComida, true)
	pl, _ := f.carts.AddProduct(ctx, "s", pizza.ID)
	ml, _ := f.carts.AddProduct(ctx, "s", mila.ID)

	_, err := f.carts.AddExtra(ctx, "s", pl.CartID, "huevo", nil)
	assert.ErrorIs(t, err, ErrExtrasNotAllowed)

	// unknown extra with zero policy snapshots 0
	line, err := f.carts.AddExtra(ctx, "s", ml.CartID, "papas", nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, line.ExtraPrices["papas"])

	// explicit price wins over the table
	price := 600.0
	line, err = f.carts.AddExtra(ctx, "s", ml.CartID, "jamon", &price)
	require.NoError(t, err)
	assert.Equal(t, 600.0, line.ExtraPrices["jamon"])

	line, err = f.carts.RemoveExtra("s", ml.CartID, "jamon")
	require.NoError(t, err)
	assert.Equal(t, []string{"papas"}, line.Extras)

	_, err = f.carts.AddExtra(ctx, "s", "missing", "huevo", nil)
	assert.ErrorIs(t, err, cart.ErrLineNotFound)
}

func TestAddExtra_RejectPolicy(t *testing.T) {
	ctx := context.Background()
	f := setupWith(t, nil, pricing.PolicyReject)
	mila := f.product(t, "Milanesa", 1000, domain.CategoryComida, true)
	ml, _ := f.carts.AddProduct(ctx, "s", mila.ID)

	_, err := f.carts.AddExtra(ctx, "s", ml.CartID, "papas", nil)
	assert.ErrorIs(t, err, pricing.ErrUnknownExtraPrice)
}

func TestCartOps_DecrementAndRemove(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.product(t, "Coca", 700, domain.CategoryGaseosas, true)
	l, _ := f.carts.AddProduct(ctx, "s", p.ID)

	line, err := f.carts.Decrement("s", l.CartID)
	require.NoError(t, err)
	assert.Equal(t, 1, line.Quantity)

	require.NoError(t, f.carts.Remove("s", l.CartID))
	assert.ErrorIs(t, f.carts.Remove("s", l.CartID), cart.ErrLineNotFound)

	_, _ = f.carts.AddProduct(ctx, "s", p.ID)
	f.carts.Reset("s")
	view, _ := f.carts.View(ctx, "s", domain.PaymentCash)
	assert.Empty(t, view.Lines)
	assert.Equal(t, pricing.Totals{DiscountPercentage: 10}, view.Totals)
}

// gatedOrders держит Create, пока тест не закроет release
type gatedOrders struct {
	repository.OrderRepository
	entered chan struct{}
	release chan struct{}
}

func newGatedOrders() *gatedOrders {
	return &gatedOrders{entered: make(chan struct{}, 8), release: make(chan struct{})}
}

func (g *gatedOrders) Create(ctx context.Context, o *domain.Order) error {
	g.entered <- struct{}{}
	<-g.release
	return g.OrderRepository.Create(ctx, o)
}

func TestCheckout_LineAddedDuringSaveStays(t *testing.T) {
	ctx := context.Background()
	gate := newGatedOrders()
	f := setupWith(t, func(r repository.OrderRepository) repository.OrderRepository {
		gate.OrderRepository = r
		return gate
	}, pricing.PolicyZero)
	coca := f.product(t, "Coca", 700, domain.CategoryGaseosas, true)
	mila := f.product(t, "Milanesa", 1000, domain.CategoryComida, true)
	_, err := f.carts.AddProduct(ctx, "s", coca.ID)
	require.NoError(t, err)

	done := make(chan *domain.Order, 1)
	go func() {
		o, err := f.carts.Checkout(ctx, "s", CheckoutRequest{PaymentMethod: domain.PaymentCash})
		assert.NoError(t, err)
		done <- o
	}()

	<-gate.entered
	late, err := f.carts.AddProduct(ctx, "s", mila.ID)
	require.NoError(t, err)
	close(gate.release)
	o := <-done

	require.NotNil(t, o)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Coca", o.Items[0].Name)

	view, err := f.carts.View(ctx, "s", domain.PaymentCash)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, late.CartID, view.Lines[0].CartID)
}

func TestCheckout_DoubleSubmitCreatesOneOrder(t *testing.T) {
	ctx := context.Background()
	gate := newGatedOrders()
	f := setupWith(t, func(r repository.OrderRepository) repository.OrderRepository {
		gate.OrderRepository = r
		return gate
	}, pricing.PolicyZero)
	coca := f.product(t, "Coca", 700, domain.CategoryGaseosas, true)
	_, err := f.carts.AddProduct(ctx, "s", coca.ID)
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ok   int
		errs []error
	)
	submit := func() {
		defer wg.Done()
		_, err := f.carts.Checkout(ctx, "s", CheckoutRequest{PaymentMethod: domain.PaymentCash})
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			errs = append(errs, err)
			return
		}
		ok++
	}
	wg.Add(2)
	go submit()
	<-gate.entered
	go submit()
	// второй запрос успевает дойти до корзины, пока первый пишет заказ
	time.Sleep(20 * time.Millisecond)
	close(gate.release)
	wg.Wait()

	assert.Equal(t, 1, ok)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrEmptyCart)

	page, err := f.orders.ListOrders(ctx, repository.OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, page.Orders, 1)
	next, _ := f.carts.NextNumber(ctx)
	assert.Equal(t, 2, next)
}

func TestCarts_UnknownSessionsAreNotRetained(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	for i := 0; i < 1000; i++ {
		view, err := f.carts.View(ctx, fmt.Sprintf("s-%d", i), "")
		require.NoError(t, err)
		assert.Empty(t, view.Lines)
	}
	_, err := f.carts.Increment("nadie", "x")
	assert.ErrorIs(t, err, cart.ErrLineNotFound)
	_, err = f.carts.AddExtra(ctx, "nadie", "x", "huevo", nil)
	assert.ErrorIs(t, err, cart.ErrLineNotFound)
	_, err = f.carts.Checkout(ctx, "nadie", CheckoutRequest{PaymentMethod: domain.PaymentCash})
	assert.ErrorIs(t, err, ErrEmptyCart)
	f.carts.Reset("nadie")
	assert.Zero(t, f.registry.Len())

	coca := f.product(t, "Coca", 700, domain.CategoryGaseosas, true)
	_, _ = f.carts.AddProduct(ctx, "a", coca.ID)
	l, _ := f.carts.AddProduct(ctx, "b", coca.ID)
	_, _ = f.carts.AddProduct(ctx, "c", coca.ID)
	assert.Equal(t, 3, f.registry.Len())

	_, err = f.carts.Checkout(ctx, "a", CheckoutRequest{PaymentMethod: domain.PaymentCard})
	require.NoError(t, err)
	require.NoError(t, f.carts.Remove("b", l.CartID))
	f.carts.Reset("c")
	assert.Zero(t, f.registry.Len())
}
