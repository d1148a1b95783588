package pricing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caja/internal/domain"
)

func TestCompute_CashScenario(t *testing.T) {
	e := NewEngine(PolicyZero)
	lines := []Line{{
		Name:        "Milanesa",
		BasePrice:   1000,
		Quantity:    2,
		Extras:      []string{"Queso"},
		ExtraPrices: map[string]float64{"Queso": 450},
	}}

	got, err := e.Compute(lines, true, 10)
	require.NoError(t, err)
	assert.Equal(t, 2000.0, got.Subtotal)
	assert.Equal(t, 900.0, got.ExtrasTotal)
	assert.Equal(t, 2900.0, got.Total)
	assert.Equal(t, 290.0, got.Discount)
	assert.Equal(t, 2610.0, got.FinalTotal)
	assert.Equal(t, 10.0, got.DiscountPercentage)
}

func TestCompute_NoDiscountWhenNotCash(t *testing.T) {
	e := NewEngine(PolicyZero)
	lines := []Line{
		{Name: "Pizza", BasePrice: 3500, Quantity: 1},
		{Name: "Milanesa", BasePrice: 1000, Quantity: 3, Extras: []string{"Huevo", "Jamon"}, ExtraPrices: map[string]float64{"Huevo": 200, "Jamon": 300}},
	}
	got, err := e.Compute(lines, false, 25)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Discount)
	assert.Equal(t, got.Total, got.FinalTotal)
	assert.Equal(t, 6500.0, got.Subtotal)
	assert.Equal(t, 1500.0, got.ExtrasTotal)
}

func TestCompute_Identity(t *testing.T) {
	e := NewEngine(PolicyZero)
	carts := [][]Line{
		nil,
		{{Name: "A", BasePrice: 0.1, Quantity: 3}},
		{{Name: "B", BasePrice: 1234.56, Quantity: 7, Extras: []string{"x"}, ExtraPrices: map[string]float64{"x": 0.2}}},
		{{Name: "C", BasePrice: 99.99, Quantity: 1}, {Name: "D", BasePrice: 10, Quantity: 4, Extras: []string{"y", "z"}, ExtraPrices: map[string]float64{"y": 1.1}}},
	}
	for _, cart := range carts {
		for _, cash := range []bool{true, false} {
			got, err := e.Compute(cart, cash, 15)
			require.NoError(t, err)
			assert.InDelta(t, got.Subtotal+got.ExtrasTotal-got.Discount, got.FinalTotal, 1e-9)
			if !cash {
				assert.Zero(t, got.Discount)
			}

			again, err := e.Compute(cart, cash, 15)
			require.NoError(t, err)
			assert.Equal(t, got, again)
		}
	}
}

func TestCompute_NoFloatNoise(t *testing.T) {
	e := NewEngine(PolicyZero)
	got, err := e.Compute([]Line{{Name: "A", BasePrice: 0.1, Quantity: 1}, {Name: "B", BasePrice: 0.2, Quantity: 1}}, false, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.3, got.Total)
}

func TestUnknownExtra_ZeroPolicy(t *testing.T) {
	e := NewEngine(PolicyZero)
	l := Line{Name: "Milanesa", BasePrice: 1000, Quantity: 2, Extras: []string{"Queso", "Panceta"}, ExtraPrices: map[string]float64{"Queso": 450}}
	total, err := e.ItemTotal(l)
	require.NoError(t, err)
	assert.Equal(t, 2900.0, total)
}

func TestUnknownExtra_RejectPolicy(t *testing.T) {
	e := NewEngine(PolicyReject)
	l := Line{Name: "Milanesa", BasePrice: 1000, Quantity: 1, Extras: []string{"Panceta"}}
	_, err := e.ItemTotal(l)
	assert.True(t, errors.Is(err, ErrUnknownExtraPrice))

	_, err = e.Compute([]Line{l}, true, 10)
	assert.True(t, errors.Is(err, ErrUnknownExtraPrice))
}

func TestNegativeInputsCoercedToZero(t *testing.T) {
	e := NewEngine(PolicyZero)
	got, err := e.Compute([]Line{{Name: "A", BasePrice: -50, Quantity: 2, Extras: []string{"x"}, ExtraPrices: map[string]float64{"x": -10}}}, true, -5)
	require.NoError(t, err)
	assert.Equal(t, Totals{}, got)
}

func TestDiscountPercentageClamped(t *testing.T) {
	e := NewEngine(PolicyZero)
	got, err := e.Compute([]Line{{Name: "A", BasePrice: 100, Quantity: 1}}, true, 150)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.DiscountPercentage)
	assert.Equal(t, 0.0, got.FinalTotal)
}

func TestFromCartAndOrder(t *testing.T) {
	cart := []domain.CartLine{{CartID: "c1", Name: "Milanesa", BasePrice: 1000, Quantity: 2, Extras: []string{"Queso"}, ExtraPrices: map[string]float64{"Queso": 450}}}
	items := []domain.OrderItem{{Name: "Milanesa", Price: 1000, Number: 2, Extras: []string{"Queso"}, ExtraPrices: map[string]float64{"Queso": 450}}}
	assert.Equal(t, FromCart(cart), FromOrder(items))
}

func TestNewEngine_InvalidPolicyFallsBackToZero(t *testing.T) {
	assert.Equal(t, PolicyZero, NewEngine("warn").Policy())
}
