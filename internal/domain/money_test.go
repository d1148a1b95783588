package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	cases := map[string]float64{
		"450":     450,
		" 450 ":   450,
		"$1500.5": 1500.5,
		"$1500":   1500,
		"$1.500":  1.5,
		"abc":     0,
		"":        0,
		"-20":     0,
		"12-3":    0,
		"1.2.3":   0,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParsePrice(in), "input %q", in)
	}
}

func TestNormalizePrice(t *testing.T) {
	assert.Equal(t, 0.0, NormalizePrice(math.NaN()))
	assert.Equal(t, 0.0, NormalizePrice(math.Inf(1)))
	assert.Equal(t, 0.0, NormalizePrice(-1))
	assert.Equal(t, 12.5, NormalizePrice(12.5))
}

func TestPrice_UnmarshalJSON(t *testing.T) {
	var body struct {
		A Price `json:"a"`
		B Price `json:"b"`
		C Price `json:"c"`
		D Price `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 450, "b": "$600", "c": -5, "d": null}`), &body))
	assert.Equal(t, 450.0, body.A.Float64())
	assert.Equal(t, 600.0, body.B.Float64())
	assert.Equal(t, 0.0, body.C.Float64())
	assert.Equal(t, 0.0, body.D.Float64())

	assert.Error(t, json.Unmarshal([]byte(`{"a": true}`), &body))
}

func TestCategory(t *testing.T) {
	assert.True(t, CategoryComida.Valid())
	assert.True(t, CategoryComida.AcceptsExtras())
	assert.False(t, CategoryCervezas.AcceptsExtras())
	assert.False(t, Category("postres").Valid())
	assert.Len(t, Categories(), 6)
}
