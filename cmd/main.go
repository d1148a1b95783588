package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"caja/internal/cart"
	"caja/internal/config"
	httpapi "caja/internal/http"
	"caja/internal/logger"
	"caja/internal/metrics"
	"caja/internal/pricing"
	"caja/internal/repository"
	"caja/internal/scheduler"
	"caja/internal/service"

	_ "caja/docs"
)

// stores набор репозиториев выбранного драйвера
type stores struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	extras   repository.ExtraRepository
	settings repository.SettingsRepository
	counter  repository.CounterRepository
	tx       repository.TxManager
	close    func(ctx context.Context) error
}

func openStores(ctx context.Context, cfg *config.Configuration) (*stores, error) {
	if cfg.StoreDriver == "mongo" {
		m, err := repository.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		if err := m.EnsureIndexes(ctx); err != nil {
			logrus.WithError(err).Warn("ensure indexes")
		}
		return &stores{
			products: m.Products(),
			orders:   m.Orders(),
			extras:   m.Extras(),
			settings: m.Settings(),
			counter:  m.Counter(),
			tx:       m.Tx(),
			close:    m.Disconnect,
		}, nil
	}
	store := repository.NewMemoryStore()
	return &stores{
		products: store,
		orders:   repository.NewMemoryOrders(store),
		extras:   repository.NewMemoryExtras(store),
		settings: repository.NewMemorySettings(store),
		counter:  repository.NewMemoryCounter(store),
		tx:       repository.NewMemoryTx(store),
		close:    func(context.Context) error { return nil },
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	if err := logger.Init(cfg.Log); err != nil {
		logrus.WithError(err).Fatal("logger")
	}
	if cfg.Log.Level != "debug" && cfg.Log.Level != "trace" {
		gin.SetMode(gin.ReleaseMode)
	}
	loc, _ := cfg.Location()

	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	st, err := openStores(startCtx, cfg)
	cancelStart()
	if err != nil {
		logrus.WithError(err).Fatal("open store")
	}

	clock := service.NewClock(loc)
	seq := service.NewSequencer(st.counter, clock)
	productsSvc := service.NewProductService(st.products)
	extrasSvc := service.NewExtrasService(st.extras)
	settingsSvc := service.NewSettingsService(st.settings, cfg.DefaultDiscount)
	ordersSvc := service.NewOrderService(st.orders, seq, st.tx, clock, cfg.OrdersPageLimit)
	engine := pricing.NewEngine(pricing.UnknownExtraPolicy(cfg.UnknownExtraPolicy))
	carts := cart.NewRegistry()
	cartsSvc := service.NewCartService(carts, productsSvc, extrasSvc, settingsSvc, ordersSvc, seq, engine, clock)
	reportsSvc := service.NewReportService(st.orders, clock)

	m := metrics.New()
	m.TrackOpenCarts(carts.Len)
	srv := httpapi.NewServer(httpapi.Services{
		Products: productsSvc,
		Extras:   extrasSvc,
		Settings: settingsSvc,
		Carts:    cartsSvc,
		Orders:   ordersSvc,
		Reports:  reportsSvc,
	}, httpapi.Options{
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout,
		Metrics:        m,
		Location:       loc,
	})

	var autoClose *scheduler.AutoClose
	if cfg.RegisterAutoCloseAt != "" {
		autoClose, err = scheduler.NewAutoClose(loc, cfg.RegisterAutoCloseAt, ordersSvc, m.ObserveClose)
		if err != nil {
			logrus.WithError(err).Fatal("scheduler")
		}
		autoClose.Start()
		logrus.WithField("next_run", autoClose.NextRun()).Info("register auto close scheduled")
	}

	httpServer := &http.Server{
		Addr:    cfg.Address,
		Handler: srv.Engine(),
	}

	go func() {
		logrus.WithFields(logrus.Fields{
			"addr":     httpServer.Addr,
			"store":    cfg.StoreDriver,
			"timezone": loc.String(),
		}).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	if autoClose != nil {
		autoClose.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("shutdown error")
	}
	if err := st.close(ctx); err != nil {
		logrus.WithError(err).Error("close store")
	}
}
