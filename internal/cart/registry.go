package cart

import (
	"sync"

	"caja/internal/domain"
)

// Registry корзины по идентификатору кассовой сессии (вкладка, устройство).
// Корзина появляется при первом добавлении товара и удаляется, когда пустеет
// после оформления или сброса.
type Registry struct {
	mu    sync.Mutex
	carts map[string]*Cart
}

func NewRegistry() *Registry {
	return &Registry{carts: make(map[string]*Cart)}
}

// Lookup корзина сессии без создания
func (r *Registry) Lookup(session string) (*Cart, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[session]
	return c, ok
}

// Add добавляет товар, создавая корзину при необходимости.
// Выполняется под блокировкой реестра, чтобы не попасть в корзину, которую
// в этот момент удаляет DropIfEmpty.
func (r *Registry) Add(session string, p domain.Product) domain.CartLine {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[session]
	if !ok {
		c = New()
		r.carts[session] = c
	}
	return c.AddToCart(p)
}

// Drop удаляет корзину вместе с позициями
func (r *Registry) Drop(session string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, session)
}

// DropIfEmpty удаляет корзину, если в ней не осталось позиций
func (r *Registry) DropIfEmpty(session string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.carts[session]; ok && c.Len() == 0 {
		delete(r.carts, session)
	}
}

// Len число корзин в памяти
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.carts)
}
