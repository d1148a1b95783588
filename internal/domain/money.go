package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"

	"github.com/shopspring/decimal"
)

var nonNumeric = regexp.MustCompile(`[^0-9.\-]+`)

// ParsePrice нормализует цену, введённую пользователем ("$1500", " 450 ", "abc").
// Точка всегда десятичный разделитель: "$1.500" это 1.5, разделителей тысяч нет.
// Всё, что не разбирается в число, а также отрицательные значения дают 0.
func ParsePrice(raw string) float64 {
	clean := nonNumeric.ReplaceAllString(raw, "")
	if clean == "" {
		return 0
	}
	d, err := decimal.NewFromString(clean)
	if err != nil || d.IsNegative() {
		return 0
	}
	return d.InexactFloat64()
}

// NormalizePrice NaN, бесконечность и отрицательные значения превращает в 0
func NormalizePrice(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Price числовое поле запроса, принимающее как число, так и строку.
// Разбирается один раз на входе, дальше везде float64.
type Price float64

func (p *Price) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*p = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = Price(ParsePrice(s))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*p = Price(NormalizePrice(f))
	return nil
}

func (p Price) Float64() float64 { return float64(p) }
