package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caja/internal/domain"
	"caja/internal/repository"
)

func TestExtras_AddSetDelete(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	require.NoError(t, f.extras.AddExtra(ctx, " huevo ", 450))
	assert.ErrorIs(t, f.extras.AddExtra(ctx, "huevo", 500), ErrExtraExists)

	require.NoError(t, f.extras.SetPrice(ctx, "huevo", 600))
	require.NoError(t, f.extras.SetPrice(ctx, "jamon", -1))

	prices, err := f.extras.Prices(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ExtraPrices{"huevo": 600, "jamon": 0}, prices)

	require.NoError(t, f.extras.DeleteExtra(ctx, "jamon"))
	assert.ErrorIs(t, f.extras.DeleteExtra(ctx, "jamon"), repository.ErrNotFound)
}

func TestExtras_InvalidNames(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	for _, name := range []string{"", "  ", "a.b", "$set"} {
		assert.ErrorIs(t, f.extras.AddExtra(ctx, name, 1), ErrInvalidInput, name)
	}
}

func TestExtras_PriceChangeDoesNotTouchCart(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	require.NoError(t, f.extras.AddExtra(ctx, "huevo", 450))
	mila := f.product(t, "Milanesa", 1000, domain.CategoryComida, true)
	l, _ := f.carts.AddProduct(ctx, "s", mila.ID)
	_, err := f.carts.AddExtra(ctx, "s", l.CartID, "huevo", nil)
	require.NoError(t, err)

	require.NoError(t, f.extras.SetPrice(ctx, "huevo", 600))

	view, err := f.carts.View(ctx, "s", domain.PaymentCard)
	require.NoError(t, err)
	assert.Equal(t, 450.0, view.Lines[0].ExtraPrices["huevo"])
	assert.Equal(t, 1450.0, view.Totals.FinalTotal)
}

func TestSettings_Discount(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	p, err := f.settings.DiscountPercentage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10.0, p)

	assert.ErrorIs(t, f.settings.SetDiscountPercentage(ctx, 101), ErrInvalidInput)
	assert.ErrorIs(t, f.settings.SetDiscountPercentage(ctx, -1), ErrInvalidInput)

	require.NoError(t, f.settings.SetDiscountPercentage(ctx, 0))
	p, _ = f.settings.DiscountPercentage(ctx)
	assert.Equal(t, 0.0, p)

	s := NewSettingsService(repository.NewMemorySettings(repository.NewMemoryStore()), 250)
	p, _ = s.DiscountPercentage(ctx)
	assert.Equal(t, DefaultDiscountPercentage, p)
}
