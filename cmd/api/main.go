package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/thornegames/orderboard/internal/aws"
	"github.com/thornegames/orderboard/internal/category"
	"github.com/thornegames/orderboard/internal/config"
	"github.com/thornegames/orderboard/internal/engine"
	"github.com/thornegames/orderboard/internal/events"
	"github.com/thornegames/orderboard/internal/handlers"
	"github.com/thornegames/orderboard/internal/idempotency"
	"github.com/thornegames/orderboard/internal/ledger"
	"github.com/thornegames/orderboard/internal/market"
	"github.com/thornegames/orderboard/internal/persist"
	"github.com/thornegames/orderboard/internal/scheduler"
	"github.com/thornegames/orderboard/internal/stats"
)

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterRoutes(r, cfg)

	return r
}

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	settings, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load settings")
	}
	holder := config.NewHolder(settings)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clients, err := aws.NewAWSClients(ctx)
	if err != nil {
		log.WithError(err).Fatal("init aws clients")
	}

	store := persist.NewStore(clients.DynamoDB, persist.Tables{
		Orders:      settings.OrdersTable,
		AdminOrders: settings.AdminOrdersTable,
		Categories:  settings.CategoriesTable,
		Stats:       settings.StatsTable,
	})

	var led engine.Ledger
	if settings.LedgerBaseURL != "" {
		led = ledger.NewHTTPClient(settings.LedgerBaseURL, settings.LedgerTimeout)
	} else {
		log.Warn("no ledger url configured, using in-memory ledger")
		led = ledger.NewMemory()
	}

	var sink engine.EventSink
	if settings.EventsQueueURL != "" {
		sink = events.NewPublisher(clients.SQS, settings.EventsQueueURL)
	} else {
		log.Warn("no events queue configured, lifecycle events disabled")
	}

	statsMgr := stats.NewManager(store, log)
	if err := statsMgr.Load(ctx); err != nil {
		log.WithError(err).Fatal("load stats")
	}

	adminStore := market.NewAdminStore()
	catIndex := category.NewIndex(adminStore, store)
	if err := catIndex.Load(ctx); err != nil {
		log.WithError(err).Fatal("load categories")
	}

	eng := engine.New(engine.Config{
		Store:    market.NewStore(),
		Admin:    adminStore,
		Settings: holder,
		Ledger:   led,
		Gateway:  store,
		Stats:    statsMgr,
		Events:   sink,
		Metrics:  events.NewCloudWatchMetrics(clients.CloudWatch, settings.MetricsNamespace, log),
		Resolver: statsMgr,
		Log:      log,
	})
	if err := eng.Load(ctx); err != nil {
		log.WithError(err).Fatal("load orders")
	}

	sched := scheduler.New(eng, holder, log)
	sched.Start(ctx)

	r := setupRouter(handlers.HandlerConfig{
		Engine:     eng,
		Stats:      statsMgr,
		Categories: catIndex,
		CreateKeys: idempotency.NewStore(clients.DynamoDB, settings.CreateKeysTable, 48*time.Hour),
		Settings:   holder,
		Log:        log,
	})

	srv := &http.Server{Addr: settings.ListenAddr, Handler: r}
	go func() {
		log.WithField("addr", settings.ListenAddr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
	sched.Wait()

	// final flush so restarts pick up the latest counters
	if err := eng.SaveAll(shutdownCtx); err != nil {
		log.WithError(err).Error("final order save")
	}
	if err := statsMgr.Save(shutdownCtx); err != nil {
		log.WithError(err).Error("final stats save")
	}
	log.Info("stopped")
}
