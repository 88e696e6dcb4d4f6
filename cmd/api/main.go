package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Tomlord1122/task-manager/internal/auth"
	"github.com/Tomlord1122/task-manager/internal/config"
	"github.com/Tomlord1122/task-manager/internal/database"
	"github.com/Tomlord1122/task-manager/internal/logger"
	"github.com/Tomlord1122/task-manager/internal/repository"
	"github.com/Tomlord1122/task-manager/internal/server"
	"github.com/Tomlord1122/task-manager/internal/service"
	"github.com/Tomlord1122/task-manager/internal/storage"
)

func gracefulShutdown(apiServer *http.Server, dbService database.Service, limiter *server.RateLimiter, log *logrus.Entry, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Info("shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The server has 5 seconds to finish the requests it is currently handling.
	ctxTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxTimeout); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}

	if err := limiter.Close(); err != nil {
		log.WithError(err).Warn("close redis client")
	}

	log.Info("closing database connection pool")
	if err := dbService.Close(); err != nil {
		log.WithError(err).Error("close database connection pool")
	} else {
		log.Info("database connection pool closed")
	}

	log.Info("server exiting")
	done <- true
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("task-manager", "info").WithError(err).Fatal("load config")
	}
	log := logger.New("task-manager", cfg.LogLevel)

	// 1. Database, injected into every repository below.
	dbService, err := database.New(cfg.DB, log)
	if err != nil {
		log.WithError(err).Fatal("connect to database")
	}
	if err := dbService.Migrate(); err != nil {
		log.WithError(err).Fatal("migrate database")
	}
	gormDB := dbService.GetDB()

	// 2. Repositories
	userRepo := repository.NewGormUserRepository(gormDB)
	taskRepo := repository.NewGormTaskRepository(gormDB)

	// 3. Services
	avatars, err := storage.NewAvatarStore(cfg.AvatarDir, "/avatars")
	if err != nil {
		log.WithError(err).Fatal("prepare avatar storage")
	}
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.SessionTTL)
	authService := service.NewAuthService(userRepo, tokens, log)
	taskService := service.NewTaskService(taskRepo, log)
	profileService := service.NewProfileService(userRepo, avatars, log)

	limiter := server.NewRateLimiter(cfg.Redis, cfg.AuthRateLimit, cfg.AuthRateWindow, log)

	// 4. HTTP server
	httpServer := server.NewServer(server.Dependencies{
		Config:   cfg,
		DB:       dbService,
		Auth:     authService,
		Tasks:    taskService,
		Profiles: profileService,
		Avatars:  avatars.Handler(),
		Limiter:  limiter,
		Log:      log,
	})

	done := make(chan bool, 1)
	go gracefulShutdown(httpServer, dbService, limiter, log, done)

	log.WithField("addr", httpServer.Addr).Info("starting server")
	err = httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Error("http server stopped")
		os.Exit(1)
	}

	<-done
	log.Info("graceful shutdown complete")
}
