package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"shopcollections/internal/collection"
	"shopcollections/internal/config"
	"shopcollections/internal/db"
	"shopcollections/internal/httpserver"
	addressrepo "shopcollections/internal/repository/address"
	collectionrepo "shopcollections/internal/repository/collection"
	memberrepo "shopcollections/internal/repository/member"
	methodrepo "shopcollections/internal/repository/method"
	productrepo "shopcollections/internal/repository/product"
	cartsvc "shopcollections/internal/service/cart"
	checkoutsvc "shopcollections/internal/service/checkout"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.FromEnv()
	if err != nil {
		logger.WithError(err).Fatal("parse config")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, db.Config{DSN: cfg.DBConnString, MaxConns: cfg.DBMaxConns, PingTimeout: cfg.DBPingTimeout})
	if err != nil {
		logger.WithError(err).Fatal("connect to db")
	}
	defer dbpool.Close()

	productRepo := productrepo.NewPostgres(dbpool, logger)

	domainDeps := collection.Deps{
		Storage:   collectionrepo.NewPostgres(dbpool),
		Catalog:   productRepo,
		Methods:   methodrepo.NewPostgres(dbpool),
		Addresses: addressrepo.NewPostgres(dbpool),
		Members:   memberrepo.NewPostgres(dbpool),
		Logger:    logger,
	}
	if cfg.TaxRate > 0 {
		domainDeps.Taxes = collection.RateTax{
			Label: cfg.TaxLabel,
			Rate:  decimal.NewFromFloat(cfg.TaxRate),
		}
	}

	srv := httpserver.New(cfg.HTTPAddr, dbpool, httpserver.Deps{
		Carts:    cartsvc.New(domainDeps),
		Checkout: checkoutsvc.New(domainDeps),
		Products: productRepo,
		Logger:   logger,
	})

	serverErr := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("starting http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.WithField("signal", sig.String()).Info("shutting down")
	case err := <-serverErr:
		logger.WithError(err).Error("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	} else {
		logger.Info("server stopped")
	}
}
