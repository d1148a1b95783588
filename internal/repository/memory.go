package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"caja/internal/domain"
)

// MemoryStore объединённое in-memory хранилище документов
type MemoryStore struct {
	mu           sync.RWMutex
	productsByID map[string]domain.Product
	ordersByID   map[string]domain.Order
	extras       domain.ExtraPrices
	discount     *float64
	counter      *domain.DailyCounter
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		productsByID: make(map[string]domain.Product),
		ordersByID:   make(map[string]domain.Order),
		extras:       make(domain.ExtraPrices),
	}
}

// transaction-aware locking helpers
type txKey struct{}

func isTx(ctx context.Context) bool {
	v := ctx.Value(txKey{})
	if v == nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RLock()
	}
}
func (m *MemoryStore) runlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RUnlock()
	}
}
func (m *MemoryStore) wlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Lock()
	}
}
func (m *MemoryStore) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Unlock()
	}
}

// Ensure interfaces
var _ ProductRepository = (*MemoryStore)(nil)

// ProductRepository implementation
func (m *MemoryStore) Create(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	m.productsByID[p.ID] = *p
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	p, ok := m.productsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	// return copy
	cp := p
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.productsByID[p.ID]; !ok {
		return ErrNotFound
	}
	m.productsByID[p.ID] = *p
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.productsByID[id]; !ok {
		return ErrNotFound
	}
	delete(m.productsByID, id)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]domain.Product, 0)
	for _, p := range m.productsByID {
		if matchProduct(p, f) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// OrderRepository implementation on wrapper type
type MemoryOrders struct{ store *MemoryStore }

func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

var _ OrderRepository = (*MemoryOrders)(nil)

func (mo *MemoryOrders) Create(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	mo.store.ordersByID[o.ID] = cloneOrder(*o)
	return nil
}

func (mo *MemoryOrders) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	o, ok := mo.store.ordersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneOrder(o)
	return &cp, nil
}

func (mo *MemoryOrders) List(ctx context.Context, f OrderFilter) ([]domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	out := make([]domain.Order, 0)
	for _, o := range mo.store.ordersByID {
		if matchOrder(o, f) {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []domain.Order{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (mo *MemoryOrders) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	o, ok := mo.store.ordersByID[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	mo.store.ordersByID[id] = o
	return nil
}

func (mo *MemoryOrders) Delete(ctx context.Context, id string) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	if _, ok := mo.store.ordersByID[id]; !ok {
		return ErrNotFound
	}
	delete(mo.store.ordersByID, id)
	return nil
}

func cloneOrder(o domain.Order) domain.Order {
	cp := o
	cp.Items = make([]domain.OrderItem, len(o.Items))
	for i, it := range o.Items {
		it.Extras = append([]string{}, it.Extras...)
		prices := make(map[string]float64, len(it.ExtraPrices))
		for k, v := range it.ExtraPrices {
			prices[k] = v
		}
		it.ExtraPrices = prices
		cp.Items[i] = it
	}
	return cp
}

// Extras price table
type MemoryExtras struct{ store *MemoryStore }

func NewMemoryExtras(store *MemoryStore) *MemoryExtras { return &MemoryExtras{store: store} }

var _ ExtraRepository = (*MemoryExtras)(nil)

func (me *MemoryExtras) Prices(ctx context.Context) (domain.ExtraPrices, error) {
	me.store.rlock(ctx)
	defer me.store.runlock(ctx)
	return me.store.extras.Clone(), nil
}

func (me *MemoryExtras) SetPrice(ctx context.Context, name string, price float64) error {
	me.store.wlock(ctx)
	defer me.store.wunlock(ctx)
	me.store.extras[name] = price
	return nil
}

func (me *MemoryExtras) Delete(ctx context.Context, name string) error {
	me.store.wlock(ctx)
	defer me.store.wunlock(ctx)
	if _, ok := me.store.extras[name]; !ok {
		return ErrNotFound
	}
	delete(me.store.extras, name)
	return nil
}

// Settings
type MemorySettings struct{ store *MemoryStore }

func NewMemorySettings(store *MemoryStore) *MemorySettings { return &MemorySettings{store: store} }

var _ SettingsRepository = (*MemorySettings)(nil)

func (ms *MemorySettings) DiscountPercentage(ctx context.Context) (float64, error) {
	ms.store.rlock(ctx)
	defer ms.store.runlock(ctx)
	if ms.store.discount == nil {
		return 0, ErrNotFound
	}
	return *ms.store.discount, nil
}

func (ms *MemorySettings) SetDiscountPercentage(ctx context.Context, pct float64) error {
	ms.store.wlock(ctx)
	defer ms.store.wunlock(ctx)
	ms.store.discount = &pct
	return nil
}

// Daily order counter
type MemoryCounter struct{ store *MemoryStore }

func NewMemoryCounter(store *MemoryStore) *MemoryCounter { return &MemoryCounter{store: store} }

var _ CounterRepository = (*MemoryCounter)(nil)

func (mc *MemoryCounter) Get(ctx context.Context) (*domain.DailyCounter, error) {
	mc.store.rlock(ctx)
	defer mc.store.runlock(ctx)
	if mc.store.counter == nil {
		return nil, ErrNotFound
	}
	cp := *mc.store.counter
	return &cp, nil
}

func (mc *MemoryCounter) Set(ctx context.Context, c domain.DailyCounter) error {
	mc.store.wlock(ctx)
	defer mc.store.wunlock(ctx)
	mc.store.counter = &c
	return nil
}

func (mc *MemoryCounter) Increment(ctx context.Context, day string) (int, error) {
	mc.store.wlock(ctx)
	defer mc.store.wunlock(ctx)
	c := mc.store.counter
	if c == nil || c.Date != day {
		mc.store.counter = &domain.DailyCounter{Date: day, OrderNumber: 1}
		return 1, nil
	}
	c.OrderNumber++
	return c.OrderNumber, nil
}

// Tx manager using write lock to emulate transaction boundary
type MemoryTx struct{ store *MemoryStore }

func NewMemoryTx(store *MemoryStore) *MemoryTx { return &MemoryTx{store: store} }

func (tx *MemoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	// Нет отката: блокировка записи только сериализует блок, репозитории внутри пропускают свои локи
	if isTx(ctx) {
		return fn(ctx)
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	ctx = context.WithValue(ctx, txKey{}, true)
	return fn(ctx)
}
