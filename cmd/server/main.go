package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pos-backend/internal/auth"
	"pos-backend/internal/config"
	"pos-backend/internal/infrastructure/logger"
	"pos-backend/internal/infrastructure/mysql"
	"pos-backend/internal/order"
	orderrepo "pos-backend/internal/order/repository"
	"pos-backend/internal/product"
	"pos-backend/internal/receipt"
	"pos-backend/internal/report"
	"pos-backend/internal/server"
	"pos-backend/internal/user"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	// Monetary amounts are emitted as JSON numbers, matching the clients.
	decimal.MarshalJSONWithoutQuotes = true

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := mysql.NewConnection(cfg.Database)
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}
	defer db.Close()
	zapLogger.Info("database connected")

	tokens := auth.NewTokenManager(cfg.Auth)
	userRepo := user.NewMySQLUserRepository(db)

	ctrls := server.Controllers{
		Auth:    auth.NewController(userRepo, tokens, zapLogger),
		Users:   user.NewController(userRepo, zapLogger),
		Orders:  order.NewModule(db, zapLogger),
		Product: product.NewModule(db, zapLogger),
		Reports: report.NewController(report.NewMySQLReportRepository(db), zapLogger),
		Receipt: receipt.NewController(
			orderrepo.NewMySQLOrderRepository(db),
			receipt.NewRenderer(cfg.Receipt),
			zapLogger,
		),
	}

	router := server.NewRouter(ctrls, tokens, zapLogger)

	srv := server.New(cfg.Server.Port, router, zapLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	zapLogger.Info("received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server shutdown failed", zap.Error(err))
	}

	zapLogger.Info("server stopped gracefully")
}
