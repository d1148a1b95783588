package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"caja/internal/cart"
	"caja/internal/domain"
	"caja/internal/metrics"
	"caja/internal/pricing"
	"caja/internal/repository"
	"caja/internal/service"
)

// Services зависимости HTTP слоя
type Services struct {
	Products *service.ProductService
	Extras   *service.ExtrasService
	Settings *service.SettingsService
	Carts    *service.CartService
	Orders   *service.OrderService
	Reports  *service.ReportService
}

type Options struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
	Metrics        *metrics.Metrics
	// Location зона для дат без времени в фильтрах
	Location *time.Location
}

type Server struct {
	engine   *gin.Engine
	products *service.ProductService
	extras   *service.ExtrasService
	settings *service.SettingsService
	carts    *service.CartService
	orders   *service.OrderService
	reports  *service.ReportService
	metrics  *metrics.Metrics
	loc      *time.Location
}

func NewServer(svc Services, opts Options) *Server {
	registerValidators()
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	r := gin.New()
	r.Use(requestLogger(), gin.Recovery(), opts.Metrics.Middleware(), corsMiddleware(opts.CORSOrigins))
	if opts.RequestTimeout > 0 {
		r.Use(requestTimeout(opts.RequestTimeout))
	}
	s := &Server{
		engine:   r,
		products: svc.Products,
		extras:   svc.Extras,
		settings: svc.Settings,
		carts:    svc.Carts,
		orders:   svc.Orders,
		reports:  svc.Reports,
		metrics:  opts.Metrics,
		loc:      opts.Location,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.engine.GET("/metrics", s.metrics.Handler())
	s.engine.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	v1 := s.engine.Group("/api/v1")
	{
		products := v1.Group("/products")
		products.POST("", s.createProduct)
		products.GET(":id", s.getProduct)
		products.PUT(":id", s.updateProduct)
		products.DELETE(":id", s.deleteProduct)
		products.GET("", s.listProducts)

		v1.GET("/categories", s.listCategories)

		extras := v1.Group("/extras")
		extras.GET("", s.listExtras)
		extras.POST("", s.addExtra)
		extras.PUT(":name", s.setExtraPrice)
		extras.DELETE(":name", s.deleteExtra)

		v1.GET("/settings/discount", s.getDiscount)
		v1.PUT("/settings/discount", s.setDiscount)

		carts := v1.Group("/carts/:session")
		carts.GET("", s.viewCart)
		carts.DELETE("", s.resetCart)
		carts.POST("/lines", s.addCartLine)
		carts.DELETE("/lines/:cartId", s.removeCartLine)
		carts.POST("/lines/:cartId/increment", s.incrementCartLine)
		carts.POST("/lines/:cartId/decrement", s.decrementCartLine)
		carts.POST("/lines/:cartId/extras", s.addLineExtra)
		carts.DELETE("/lines/:cartId/extras/:name", s.removeLineExtra)
		carts.POST("/checkout", s.checkout)

		orders := v1.Group("/orders")
		orders.GET("", s.listOrders)
		orders.POST("", s.createOrder)
		orders.GET(":id", s.getOrder)
		orders.PUT(":id/status", s.updateOrderStatus)
		orders.DELETE(":id", s.deleteOrder)

		v1.GET("/register/next-number", s.nextNumber)
		v1.POST("/register/close", s.closeRegister)

		v1.GET("/reports/daily", s.dailyReport)
	}
}

// Product handlers
type productReq struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       domain.Price    `json:"price"`
	Category    domain.Category `json:"category" binding:"required,category"`
	Stock       *bool           `json:"stock"`
}

func (r productReq) toDomain(id string) domain.Product {
	stock := true
	if r.Stock != nil {
		stock = *r.Stock
	}
	return domain.Product{
		ID:          id,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price.Float64(),
		Category:    r.Category,
		Stock:       stock,
	}
}

// @Summary Create product
// @Tags products
// @Accept json
// @Produce json
// @Param input body productReq true "Product"
// @Success 201 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Router /products [post]
func (s *Server) createProduct(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := s.products.Create(c.Request.Context(), req.toDomain(""))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// @Summary Get product by id
// @Tags products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} domain.Product
// @Failure 404 {object} map[string]string
// @Router /products/{id} [get]
func (s *Server) getProduct(c *gin.Context) {
	p, err := s.products.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Update product
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param input body productReq true "Product"
// @Success 200 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /products/{id} [put]
func (s *Server) updateProduct(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := s.products.Update(c.Request.Context(), req.toDomain(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Delete product
// @Tags products
// @Param id path string true "Product ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /products/{id} [delete]
func (s *Server) deleteProduct(c *gin.Context) {
	if err := s.products.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary List products
// @Tags products
// @Produce json
// @Param q query string false "Name contains"
// @Param category query string false "Category"
// @Param in_stock query bool false "Only available / unavailable"
// @Success 200 {array} domain.Product
// @Router /products [get]
func (s *Server) listProducts(c *gin.Context) {
	f := repository.ProductFilter{
		NameSubstring: c.Query("q"),
		Category:      domain.Category(c.Query("category")),
	}
	if v := c.Query("in_stock"); v != "" {
		if x, err := strconv.ParseBool(v); err == nil {
			f.InStock = &x
		}
	}
	list, err := s.products.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary List categories
// @Tags products
// @Produce json
// @Success 200 {array} string
// @Router /categories [get]
func (s *Server) listCategories(c *gin.Context) {
	c.JSON(http.StatusOK, domain.Categories())
}

// Extras handlers
type extraReq struct {
	Name  string       `json:"name" binding:"required"`
	Price domain.Price `json:"price"`
}

type extraPriceReq struct {
	Price domain.Price `json:"price"`
}

// @Summary Extras price table
// @Tags extras
// @Produce json
// @Success 200 {object} map[string]number
// @Router /extras [get]
func (s *Server) listExtras(c *gin.Context) {
	prices, err := s.extras.Prices(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, prices)
}

// @Summary Add extra
// @Tags extras
// @Accept json
// @Param input body extraReq true "Extra"
// @Success 201
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /extras [post]
func (s *Server) addExtra(c *gin.Context) {
	var req extraReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := s.extras.AddExtra(c.Request.Context(), req.Name, req.Price.Float64()); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

// @Summary Set extra price
// @Tags extras
// @Accept json
// @Param name path string true "Extra name"
// @Param input body extraPriceReq true "Price"
// @Success 204
// @Failure 400 {object} map[string]string
// @Router /extras/{name} [put]
func (s *Server) setExtraPrice(c *gin.Context) {
	var req extraPriceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := s.extras.SetPrice(c.Request.Context(), c.Param("name"), req.Price.Float64()); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Delete extra
// @Tags extras
// @Param name path string true "Extra name"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /extras/{name} [delete]
func (s *Server) deleteExtra(c *gin.Context) {
	if err := s.extras.DeleteExtra(c.Request.Context(), c.Param("name")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Settings handlers
type discountReq struct {
	DiscountPercentage *float64 `json:"discountPercentage" binding:"required,gte=0,lte=100"`
}

// @Summary Cash discount percentage
// @Tags settings
// @Produce json
// @Success 200 {object} map[string]number
// @Router /settings/discount [get]
func (s *Server) getDiscount(c *gin.Context) {
	p, err := s.settings.DiscountPercentage(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"discountPercentage": p})
}

// @Summary Set cash discount percentage
// @Tags settings
// @Accept json
// @Produce json
// @Param input body discountReq true "Percentage in [0,100]"
// @Success 200 {object} map[string]number
// @Failure 400 {object} map[string]string
// @Router /settings/discount [put]
func (s *Server) setDiscount(c *gin.Context) {
	var req discountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "discountPercentage must be between 0 and 100"})
		return
	}
	if err := s.settings.SetDiscountPercentage(c.Request.Context(), *req.DiscountPercentage); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"discountPercentage": *req.DiscountPercentage})
}

func writeError(c *gin.Context, err error) {
	c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrOutOfStock),
		errors.Is(err, service.ErrExtrasNotAllowed),
		errors.Is(err, pricing.ErrUnknownExtraPrice):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, cart.ErrLineNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrExtraExists):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
