package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"

	"shopcollections/internal/config"
	"shopcollections/internal/db"
	"shopcollections/internal/importer"
	productrepo "shopcollections/internal/repository/product"
)

func main() {
	logger := logrus.New()

	if len(os.Args) != 2 {
		logger.Fatal("usage: importer <products.csv>")
	}

	cfg, err := config.FromEnv()
	if err != nil {
		logger.WithError(err).Fatal("parse config")
	}

	file, err := os.Open(os.Args[1])
	if err != nil {
		logger.WithError(err).Fatal("open csv")
	}
	defer file.Close()

	ctx := context.Background()
	pool, err := db.Connect(ctx, db.Config{DSN: cfg.DBConnString, MaxConns: cfg.DBMaxConns, PingTimeout: cfg.DBPingTimeout})
	if err != nil {
		logger.WithError(err).Fatal("connect db")
	}
	defer pool.Close()

	imp := importer.NewCSVImporter(file, productrepo.NewPostgres(pool, logger))
	count, err := imp.Run(ctx)
	if err != nil {
		logger.WithError(err).Fatal("import products")
	}
	logger.WithField("count", count).Info("products imported")
}
