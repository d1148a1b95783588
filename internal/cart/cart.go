package cart

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"caja/internal/domain"
)

// ErrLineNotFound возвращается, когда позиции с таким cartId нет в корзине
var ErrLineNotFound = errors.New("cart line not found")

// Cart корзина одной кассовой сессии. Все операции синхронные и in-memory.
type Cart struct {
	mu    sync.Mutex
	lines []domain.CartLine
	newID func() string

	// checkout держится на всё оформление; правки позиций его не ждут
	checkout sync.Mutex
}

func New() *Cart {
	return &Cart{newID: uuid.NewString}
}

// AddToCart добавляет новую позицию с количеством 1.
// Повторное добавление того же товара создаёт отдельную позицию.
func (c *Cart) AddToCart(p domain.Product) domain.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	line := domain.CartLine{
		CartID:      c.newID(),
		ProductID:   p.ID,
		Name:        p.Name,
		BasePrice:   domain.NormalizePrice(p.Price),
		Quantity:    1,
		Category:    p.Category,
		Extras:      []string{},
		ExtraPrices: map[string]float64{},
	}
	c.lines = append(c.lines, line)
	return copyLine(line)
}

func (c *Cart) IncrementProduct(cartID string) (domain.CartLine, error) {
	return c.update(cartID, func(l *domain.CartLine) {
		l.Quantity++
	})
}

// DecrementProduct уменьшает количество, но не ниже 1; удаление только через RemoveFromCart
func (c *Cart) DecrementProduct(cartID string) (domain.CartLine, error) {
	return c.update(cartID, func(l *domain.CartLine) {
		if l.Quantity > 1 {
			l.Quantity--
		}
	})
}

func (c *Cart) RemoveFromCart(cartID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(cartID)
	if i < 0 {
		return ErrLineNotFound
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return nil
}

// AddExtra добавляет добавку и фиксирует её цену в позиции.
// Зафиксированная цена не меняется при последующих правках глобального прайса.
func (c *Cart) AddExtra(cartID, extra string, price float64) (domain.CartLine, error) {
	return c.update(cartID, func(l *domain.CartLine) {
		if _, ok := l.ExtraPrices[extra]; ok || contains(l.Extras, extra) {
			return
		}
		l.Extras = append(l.Extras, extra)
		l.ExtraPrices[extra] = domain.NormalizePrice(price)
	})
}

func (c *Cart) RemoveExtra(cartID, extra string) (domain.CartLine, error) {
	return c.update(cartID, func(l *domain.CartLine) {
		kept := l.Extras[:0]
		for _, e := range l.Extras {
			if e != extra {
				kept = append(kept, e)
			}
		}
		l.Extras = kept
		delete(l.ExtraPrices, extra)
	})
}

// Settle оформляет текущие позиции. Параллельные Settle одной корзины выполняются
// по очереди. Если fn вернула nil, из корзины убираются только переданные ей
// позиции: добавленные во время оформления остаются.
func (c *Cart) Settle(fn func(lines []domain.CartLine) error) error {
	c.checkout.Lock()
	defer c.checkout.Unlock()
	lines := c.Lines()
	if err := fn(lines); err != nil {
		return err
	}
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.CartID)
	}
	c.removeLines(ids)
	return nil
}

func (c *Cart) removeLines(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.lines[:0]
	for _, l := range c.lines {
		if !contains(ids, l.CartID) {
			kept = append(kept, l)
		}
	}
	c.lines = kept
}

// ResetCart очищает корзину
func (c *Cart) ResetCart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// Lines копия позиций в порядке добавления
func (c *Cart) Lines() []domain.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.CartLine, 0, len(c.lines))
	for _, l := range c.lines {
		out = append(out, copyLine(l))
	}
	return out
}

func (c *Cart) Line(cartID string) (domain.CartLine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(cartID)
	if i < 0 {
		return domain.CartLine{}, ErrLineNotFound
	}
	return copyLine(c.lines[i]), nil
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

func (c *Cart) update(cartID string, fn func(l *domain.CartLine)) (domain.CartLine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(cartID)
	if i < 0 {
		return domain.CartLine{}, ErrLineNotFound
	}
	fn(&c.lines[i])
	return copyLine(c.lines[i]), nil
}

func (c *Cart) index(cartID string) int {
	for i := range c.lines {
		if c.lines[i].CartID == cartID {
			return i
		}
	}
	return -1
}

func copyLine(l domain.CartLine) domain.CartLine {
	cp := l
	cp.Extras = append([]string{}, l.Extras...)
	cp.ExtraPrices = make(map[string]float64, len(l.ExtraPrices))
	for k, v := range l.ExtraPrices {
		cp.ExtraPrices[k] = v
	}
	return cp
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
