package domain

import "time"

// Category раздел меню
type Category string

const (
	CategoryComida     Category = "comida"
	CategorySandwiches Category = "sandwiches"
	CategoryMiga       Category = "miga"
	CategoryPizzas     Category = "pizzas"
	CategoryCervezas   Category = "cervezas"
	CategoryGaseosas   Category = "gaseosas"
)

var categories = []Category{
	CategoryComida,
	CategorySandwiches,
	CategoryMiga,
	CategoryPizzas,
	CategoryCervezas,
	CategoryGaseosas,
}

// Categories разделы меню в порядке отображения
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

func (c Category) Valid() bool {
	for _, v := range categories {
		if v == c {
			return true
		}
	}
	return false
}

// AcceptsExtras можно ли добавлять добавки к позициям раздела
func (c Category) AcceptsExtras() bool { return c == CategoryComida }

// Product позиция меню
type Product struct {
	ID          string   `json:"id" bson:"_id"`
	Name        string   `json:"name" bson:"name"`
	Description string   `json:"description" bson:"description"`
	Price       float64  `json:"price" bson:"price"`
	Category    Category `json:"category" bson:"category"`
	Stock       bool     `json:"stock" bson:"stock"`
}

// ExtraPrices глобальный прайс добавок: имя -> цена за единицу
type ExtraPrices map[string]float64

func (p ExtraPrices) Clone() ExtraPrices {
	out := make(ExtraPrices, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// CartLine одна позиция в корзине с собственными добавками
type CartLine struct {
	CartID      string             `json:"cartId"`
	ProductID   string             `json:"productId"`
	Name        string             `json:"name"`
	BasePrice   float64            `json:"price"`
	Quantity    int                `json:"number"`
	Category    Category           `json:"category"`
	Extras      []string           `json:"extras"`
	ExtraPrices map[string]float64 `json:"extraPrices"`
}

// PaymentMethod способ оплаты
type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "Efectivo"
	PaymentMercadopago PaymentMethod = "Mercadopago"
	PaymentCard        PaymentMethod = "Tarjeta"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentMercadopago, PaymentCard:
		return true
	}
	return false
}

// IsCash скидка за наличные применяется только к Efectivo
func (m PaymentMethod) IsCash() bool { return m == PaymentCash }

// OrderStatus тип статуса заказа
type OrderStatus string

const (
	OrderStatusOpen   OrderStatus = "open"
	OrderStatusClosed OrderStatus = "closed"
)

func (s OrderStatus) Valid() bool {
	return s == OrderStatusOpen || s == OrderStatusClosed
}

// UnassignedOrderID номер заказа, оформленного без номера
const UnassignedOrderID = "sin-asignar"

// OrderItem снимок позиции в заказе
type OrderItem struct {
	Name        string             `json:"name" bson:"name"`
	Price       float64            `json:"price" bson:"price"`
	Number      int                `json:"number" bson:"number"`
	Extras      []string           `json:"extras" bson:"extras"`
	ExtraPrices map[string]float64 `json:"extraPrices" bson:"extraPrices"`
}

// Order сущность заказа; после создания меняется только Status
type Order struct {
	ID                 string        `json:"id" bson:"_id"`
	OrderID            string        `json:"orderId" bson:"orderId"`
	Date               time.Time     `json:"date" bson:"date"`
	Day                string        `json:"day" bson:"day"`
	Items              []OrderItem   `json:"items" bson:"items"`
	Subtotal           float64       `json:"subtotal" bson:"subtotal"`
	ExtrasTotal        float64       `json:"extrasTotal" bson:"extrasTotal"`
	Discount           float64       `json:"discount" bson:"discount"`
	DiscountPercentage float64       `json:"discountPercentage" bson:"discountPercentage"`
	Total              float64       `json:"total" bson:"total"`
	PaymentMethod      PaymentMethod `json:"paymentMethod" bson:"paymentMethod"`
	Status             OrderStatus   `json:"status" bson:"status"`
}

func (o Order) Numbered() bool { return o.OrderID != UnassignedOrderID }

// DailyCounter счётчик номеров заказов за день
type DailyCounter struct {
	Date        string `json:"date" bson:"date"`
	OrderNumber int    `json:"orderNumber" bson:"orderNumber"`
}

// DayLayout формат рабочего дня (YYYY-MM-DD)
const DayLayout = "2006-01-02"

// DayOf рабочий день для момента t в зоне loc
func DayOf(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DayLayout)
}
