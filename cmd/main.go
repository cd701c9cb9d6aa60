package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/staypay-jp/core/internal/auth"
	"github.com/staypay-jp/core/internal/config"
	"github.com/staypay-jp/core/internal/db"
	"github.com/staypay-jp/core/internal/model"
	"github.com/staypay-jp/core/internal/repository"
	"github.com/staypay-jp/core/internal/server"
	"github.com/staypay-jp/core/internal/service"
)

func main() {
	// 1. Env + config.
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	// 2. DB via GORM.
	gormDB, err := db.NewGormDB(&cfg.DB)
	if err != nil {
		logger.Fatal("init db", zap.Error(err))
	}

	// 3. Migrations.
	if err := model.AutoMigrate(gormDB); err != nil {
		logger.Fatal("auto migrate", zap.Error(err))
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("sql DB", zap.Error(err))
	}
	defer sqlDB.Close()

	// 4. Store and services.
	store := repository.NewGormStore(gormDB)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	identitySvc := service.NewIdentityService(store, tokens, logger)
	lifecycleSvc := service.NewLifecycle(store, logger)
	policySvc := service.NewPolicyService(store, logger)

	// 5. HTTP server.
	handler := server.NewHandler(identitySvc, lifecycleSvc, policySvc, logger)
	router := server.NewRouter(handler, tokens, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http serve", zap.Error(err))
		}
	}()

	// 6. Graceful shutdown on signal.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down http server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
