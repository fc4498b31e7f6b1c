package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"calldesk/config"
	"calldesk/internal/database"
	"calldesk/internal/logger"
	"calldesk/internal/router"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Env)

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		logger.L.Fatalf("database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.L.Fatalf("migrate: %v", err)
	}
	database.SeedAdmin(db)

	engine := router.Setup(cfg, db)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.L.Infof("server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.L.Fatalf("listen: %v", err)
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.L.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.L.Fatalf("server shutdown: %v", err)
	}
	logger.L.Info("server stopped")
}
