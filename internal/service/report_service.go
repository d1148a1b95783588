package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"caja/internal/domain"
	"caja/internal/repository"
)

// PaymentSummary суммы по одному способу оплаты
type PaymentSummary struct {
	Orders int     `json:"orders"`
	Total  float64 `json:"total"`
}

// DailyReport сводка кассы за день
type DailyReport struct {
	Day         string                                  `json:"day"`
	Orders      int                                     `json:"orders"`
	Numbered    int                                     `json:"numbered"`
	Unnumbered  int                                     `json:"unnumbered"`
	Closed      int                                     `json:"closed"`
	Subtotal    float64                                 `json:"subtotal"`
	ExtrasTotal float64                                 `json:"extrasTotal"`
	Discount    float64                                 `json:"discount"`
	Total       float64                                 `json:"total"`
	ByPayment   map[domain.PaymentMethod]PaymentSummary `json:"byPayment"`
}

type ReportService struct {
	orders repository.OrderRepository
	clock  Clock
}

func NewReportService(orders repository.OrderRepository, clock Clock) *ReportService {
	return &ReportService{orders: orders, clock: clock}
}

// Daily пустой day означает сегодня
func (s *ReportService) Daily(ctx context.Context, day string) (*DailyReport, error) {
	if day == "" {
		day = s.clock.Today()
	}
	if _, err := time.Parse(domain.DayLayout, day); err != nil {
		return nil, ErrInvalidInput
	}
	list, err := s.orders.List(ctx, repository.OrderFilter{Day: day})
	if err != nil {
		return nil, storeError("list orders for report", err)
	}

	r := &DailyReport{Day: day, ByPayment: map[domain.PaymentMethod]PaymentSummary{}}
	var subtotal, extras, discount, total decimal.Decimal
	byPayment := map[domain.PaymentMethod]decimal.Decimal{}
	for _, o := range list {
		r.Orders++
		if o.Numbered() {
			r.Numbered++
		} else {
			r.Unnumbered++
		}
		if o.Status == domain.OrderStatusClosed {
			r.Closed++
		}
		subtotal = subtotal.Add(decimal.NewFromFloat(o.Subtotal))
		extras = extras.Add(decimal.NewFromFloat(o.ExtrasTotal))
		discount = discount.Add(decimal.NewFromFloat(o.Discount))
		total = total.Add(decimal.NewFromFloat(o.Total))

		ps := r.ByPayment[o.PaymentMethod]
		ps.Orders++
		r.ByPayment[o.PaymentMethod] = ps
		byPayment[o.PaymentMethod] = byPayment[o.PaymentMethod].Add(decimal.NewFromFloat(o.Total))
	}
	for m, sum := range byPayment {
		ps := r.ByPayment[m]
		ps.Total = sum.Round(2).InexactFloat64()
		r.ByPayment[m] = ps
	}
	r.Subtotal = subtotal.Round(2).InexactFloat64()
	r.ExtrasTotal = extras.Round(2).InexactFloat64()
	r.Discount = discount.Round(2).InexactFloat64()
	r.Total = total.Round(2).InexactFloat64()
	return r, nil
}
