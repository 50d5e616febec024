package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"shopcollections/internal/config"
	"shopcollections/internal/db"
	"shopcollections/internal/migrate"
)

func main() {
	logger := logrus.New()

	cfg, err := config.FromEnv()
	if err != nil {
		logger.WithError(err).Fatal("parse config")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, db.Config{DSN: cfg.DBConnString, MaxConns: cfg.DBMaxConns, PingTimeout: cfg.DBPingTimeout})
	if err != nil {
		logger.WithError(err).Fatal("connect db")
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		logger.WithError(err).Fatal("apply migrations")
	}

	logger.Info("migrations applied")
}
