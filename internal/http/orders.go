package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"caja/internal/domain"
	"caja/internal/repository"
	"caja/internal/service"
)

// Cart handlers

// @Summary View cart with totals
// @Tags carts
// @Produce json
// @Param session path string true "Register session"
// @Param payment_method query string false "Efectivo | Mercadopago | Tarjeta (default Efectivo)"
// @Success 200 {object} service.CartView
// @Failure 400 {object} map[string]string
// @Router /carts/{session} [get]
func (s *Server) viewCart(c *gin.Context) {
	view, err := s.carts.View(c.Request.Context(), c.Param("session"), domain.PaymentMethod(c.Query("payment_method")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// @Summary Reset cart
// @Tags carts
// @Param session path string true "Register session"
// @Success 204
// @Router /carts/{session} [delete]
func (s *Server) resetCart(c *gin.Context) {
	s.carts.Reset(c.Param("session"))
	c.Status(http.StatusNoContent)
}

type addLineReq struct {
	ProductID string `json:"productId" binding:"required"`
}

// @Summary Add product to cart
// @Tags carts
// @Accept json
// @Produce json
// @Param session path string true "Register session"
// @Param input body addLineReq true "Product"
// @Success 201 {object} domain.CartLine
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /carts/{session}/lines [post]
func (s *Server) addCartLine(c *gin.Context) {
	var req addLineReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	line, err := s.carts.AddProduct(c.Request.Context(), c.Param("session"), req.ProductID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, line)
}

// @Summary Remove cart line
// @Tags carts
// @Param session path string true "Register session"
// @Param cartId path string true "Cart line id"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /carts/{session}/lines/{cartId} [delete]
func (s *Server) removeCartLine(c *gin.Context) {
	if err := s.carts.Remove(c.Param("session"), c.Param("cartId")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Increment line quantity
// @Tags carts
// @Produce json
// @Param session path string true "Register session"
// @Param cartId path string true "Cart line id"
// @Success 200 {object} domain.CartLine
// @Failure 404 {object} map[string]string
// @Router /carts/{session}/lines/{cartId}/increment [post]
func (s *Server) incrementCartLine(c *gin.Context) {
	line, err := s.carts.Increment(c.Param("session"), c.Param("cartId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, line)
}

// @Summary Decrement line quantity (not below 1)
// @Tags carts
// @Produce json
// @Param session path string true "Register session"
// @Param cartId path string true "Cart line id"
// @Success 200 {object} domain.CartLine
// @Failure 404 {object} map[string]string
// @Router /carts/{session}/lines/{cartId}/decrement [post]
func (s *Server) decrementCartLine(c *gin.Context) {
	line, err := s.carts.Decrement(c.Param("session"), c.Param("cartId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, line)
}

type lineExtraReq struct {
	Name  string        `json:"name" binding:"required"`
	Price *domain.Price `json:"price"`
}

// @Summary Add extra to cart line
// @Description Without price the current price from the extras table is snapshotted.
// @Tags carts
// @Accept json
// @Produce json
// @Param session path string true "Register session"
// @Param cartId path string true "Cart line id"
// @Param input body lineExtraReq true "Extra"
// @Success 200 {object} domain.CartLine
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /carts/{session}/lines/{cartId}/extras [post]
func (s *Server) addLineExtra(c *gin.Context) {
	var req lineExtraReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	var price *float64
	if req.Price != nil {
		p := req.Price.Float64()
		price = &p
	}
	line, err := s.carts.AddExtra(c.Request.Context(), c.Param("session"), c.Param("cartId"), req.Name, price)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, line)
}

// @Summary Remove extra from cart line
// @Tags carts
// @Produce json
// @Param session path string true "Register session"
// @Param cartId path string true "Cart line id"
// @Param name path string true "Extra name"
// @Success 200 {object} domain.CartLine
// @Failure 404 {object} map[string]string
// @Router /carts/{session}/lines/{cartId}/extras/{name} [delete]
func (s *Server) removeLineExtra(c *gin.Context) {
	line, err := s.carts.RemoveExtra(c.Param("session"), c.Param("cartId"), c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, line)
}

type checkoutReq struct {
	PaymentMethod domain.PaymentMethod `json:"paymentMethod" binding:"required,payment"`
	WithoutNumber bool                 `json:"withoutNumber"`
}

// @Summary Checkout cart
// @Tags carts
// @Accept json
// @Produce json
// @Param session path string true "Register session"
// @Param input body checkoutReq true "Payment"
// @Success 201 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Router /carts/{session}/checkout [post]
func (s *Server) checkout(c *gin.Context) {
	var req checkoutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	o, err := s.carts.Checkout(c.Request.Context(), c.Param("session"), service.CheckoutRequest{
		PaymentMethod: req.PaymentMethod,
		WithoutNumber: req.WithoutNumber,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	s.metrics.ObserveOrder(string(o.PaymentMethod), o.Numbered(), o.Total)
	c.JSON(http.StatusCreated, o)
}

// Order handlers

// @Summary List orders (newest first)
// @Tags orders
// @Produce json
// @Param day query string false "Business day YYYY-MM-DD"
// @Param from query string false "RFC3339 or YYYY-MM-DD"
// @Param to query string false "RFC3339 or YYYY-MM-DD (inclusive day)"
// @Param q query string false "Order id or payment method contains"
// @Param status query string false "open | closed"
// @Param offset query int false "Offset"
// @Param limit query int false "Page size"
// @Success 200 {object} service.OrderPage
// @Failure 400 {object} map[string]string
// @Router /orders [get]
func (s *Server) listOrders(c *gin.Context) {
	f := repository.OrderFilter{
		Day:    c.Query("day"),
		Search: c.Query("q"),
		Status: domain.OrderStatus(c.Query("status")),
	}
	var err error
	if f.From, err = parseTimeQuery(c.Query("from"), s.loc, false); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
		return
	}
	if f.To, err = parseTimeQuery(c.Query("to"), s.loc, true); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to"})
		return
	}
	if f.Offset, err = intQuery(c, "offset"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
		return
	}
	if f.Limit, err = intQuery(c, "limit"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	page, err := s.orders.ListOrders(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

type createOrderReq struct {
	OrderID       string               `json:"orderId"`
	Items         []orderItemReq       `json:"items" binding:"required,min=1,dive"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod" binding:"required,payment"`
	Subtotal      domain.Price         `json:"subtotal"`
	ExtrasTotal   domain.Price         `json:"extrasTotal"`
	Discount      domain.Price         `json:"discount"`
	Total         domain.Price         `json:"total"`

	// DiscountPercentage без итогов в запросе: процент для расчёта; nil значит из настроек
	DiscountPercentage *float64 `json:"discountPercentage" binding:"omitempty,gte=0,lte=100"`
}

func (r createOrderReq) hasTotals() bool {
	return r.Subtotal != 0 || r.ExtrasTotal != 0 || r.Discount != 0 || r.Total != 0
}

type orderItemReq struct {
	Name        string                  `json:"name" binding:"required"`
	Price       domain.Price            `json:"price"`
	Number      int                     `json:"number" binding:"min=1"`
	Extras      []string                `json:"extras"`
	ExtraPrices map[string]domain.Price `json:"extraPrices"`
}

// @Summary Create order as given
// @Description Stores the order without numbering (import, manual entry).
// @Description Totals are taken as given; when all of them are omitted they are computed from the items.
// @Tags orders
// @Accept json
// @Produce json
// @Param input body createOrderReq true "Order"
// @Success 201 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Router /orders [post]
func (s *Server) createOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		prices := make(map[string]float64, len(it.ExtraPrices))
		for k, v := range it.ExtraPrices {
			prices[k] = v.Float64()
		}
		extras := it.Extras
		if extras == nil {
			extras = []string{}
		}
		items = append(items, domain.OrderItem{Name: it.Name, Price: it.Price.Float64(), Number: it.Number, Extras: extras, ExtraPrices: prices})
	}
	order := domain.Order{
		OrderID:       req.OrderID,
		Items:         items,
		PaymentMethod: req.PaymentMethod,
		Subtotal:      req.Subtotal.Float64(),
		ExtrasTotal:   req.ExtrasTotal.Float64(),
		Discount:      req.Discount.Float64(),
		Total:         req.Total.Float64(),
	}
	if req.DiscountPercentage != nil {
		order.DiscountPercentage = *req.DiscountPercentage
	}
	if !req.hasTotals() {
		totals, err := s.carts.Quote(c.Request.Context(), items, req.PaymentMethod, req.DiscountPercentage)
		if err != nil {
			writeError(c, err)
			return
		}
		order.Subtotal = totals.Subtotal
		order.ExtrasTotal = totals.ExtrasTotal
		order.Discount = totals.Discount
		order.DiscountPercentage = totals.DiscountPercentage
		order.Total = totals.FinalTotal
	}
	o, err := s.orders.CreateOrder(c.Request.Context(), order)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// @Summary Get order by id
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 404 {object} map[string]string
// @Router /orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	o, err := s.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type orderStatusReq struct {
	Status domain.OrderStatus `json:"status" binding:"required,oneof=open closed"`
}

// @Summary Update order status
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param input body orderStatusReq true "Status"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id}/status [put]
func (s *Server) updateOrderStatus(c *gin.Context) {
	var req orderStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	o, err := s.orders.UpdateOrderStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Delete order
// @Tags orders
// @Param id path string true "Order ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /orders/{id} [delete]
func (s *Server) deleteOrder(c *gin.Context) {
	if err := s.orders.DeleteOrder(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Register handlers

// @Summary Number the next order will receive
// @Tags register
// @Produce json
// @Success 200 {object} map[string]int
// @Router /register/next-number [get]
func (s *Server) nextNumber(c *gin.Context) {
	n, err := s.carts.NextNumber(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nextNumber": n})
}

// @Summary Close register
// @Description Closes today's open orders, then resets the daily counter.
// @Tags register
// @Produce json
// @Success 200 {object} service.CloseResult
// @Failure 500 {object} map[string]string
// @Router /register/close [post]
func (s *Server) closeRegister(c *gin.Context) {
	res, err := s.orders.CloseRegister(c.Request.Context())
	s.metrics.ObserveClose("manual", err)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error(), "closed": res.Closed})
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary Daily report
// @Tags reports
// @Produce json
// @Param day query string false "YYYY-MM-DD, default today"
// @Success 200 {object} service.DailyReport
// @Failure 400 {object} map[string]string
// @Router /reports/daily [get]
func (s *Server) dailyReport(c *gin.Context) {
	r, err := s.reports.Daily(c.Request.Context(), c.Query("day"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// parseTimeQuery принимает RFC3339 или YYYY-MM-DD; для endOfDay день включается целиком
func parseTimeQuery(v string, loc *time.Location, endOfDay bool) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(domain.DayLayout, v, loc)
	if err != nil {
		logrus.WithField("value", v).Debug("bad time query")
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func intQuery(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
