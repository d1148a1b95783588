package service

import (
	"context"
	"errors"
	"fmt"

	"caja/internal/domain"
	"caja/internal/repository"
)

// Sequencer дневной номер заказа
type Sequencer struct {
	counter repository.CounterRepository
	clock   Clock
}

func NewSequencer(counter repository.CounterRepository, clock Clock) *Sequencer {
	return &Sequencer{counter: counter, clock: clock}
}

// Peek только чтение: 1, если счётчика нет или он за другой день, иначе сохранённое значение
func (s *Sequencer) Peek(ctx context.Context) (int, error) {
	c, err := s.counter.Get(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read order counter: %w", err)
	}
	if c.Date != s.clock.Today() {
		return 1, nil
	}
	return c.OrderNumber, nil
}

// NextDisplay номер, который получит следующий заказ (для экрана кассы)
func (s *Sequencer) NextDisplay(ctx context.Context) (int, error) {
	c, err := s.counter.Get(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read order counter: %w", err)
	}
	if c.Date != s.clock.Today() {
		return 1, nil
	}
	return c.OrderNumber + 1, nil
}

// Next выдаёт следующий номер за сегодня. Инкремент атомарный на стороне хранилища,
// поэтому две кассы не получат один и тот же номер.
func (s *Sequencer) Next(ctx context.Context) (int, error) {
	n, err := s.counter.Increment(ctx, s.clock.Today())
	if err != nil {
		return 0, fmt.Errorf("increment order counter: %w", err)
	}
	return n, nil
}

// ResetForRegisterClose принудительно записывает {сегодня, 0}
func (s *Sequencer) ResetForRegisterClose(ctx context.Context) error {
	if err := s.counter.Set(ctx, domain.DailyCounter{Date: s.clock.Today(), OrderNumber: 0}); err != nil {
		return fmt.Errorf("reset order counter: %w", err)
	}
	return nil
}
