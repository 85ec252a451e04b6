package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/healthtic/internal/config"
	"github.com/healthtic/internal/handler"
	"github.com/healthtic/internal/logger"
	"github.com/healthtic/internal/repository"
	"github.com/healthtic/internal/ws"
)

const maxWSConnections = 1000

func main() {
	logger.SetPrefix("devapi")
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)
	logger.Info("starting dev backend")

	users := repository.NewUserRepository(bcrypt.DefaultCost)
	devices := repository.NewDeviceRepository()
	health := repository.NewHealthRepository()
	if cfg.Server.SeedDemo {
		seedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := repository.SeedDemo(seedCtx, users, devices, health); err != nil {
			logger.Errorf("seed demo data: %v", err)
			cancel()
			logger.Flush()
			os.Exit(1)
		}
		cancel()
		logger.Infof("demo accounts: %s / %s (password %q)", repository.DemoDoctor, repository.DemoPatient, repository.DemoPassword)
	}

	hubCtx, hubCancel := context.WithCancel(context.Background())
	hub := ws.NewHub(maxWSConnections)
	var hubWg sync.WaitGroup
	hubWg.Add(1)
	go func() {
		defer hubWg.Done()
		hub.Run(hubCtx)
	}()

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: handler.NewRouter(handler.Deps{
			Users:              users,
			Tokens:             repository.NewTokenRepository(),
			Messages:           repository.NewMessageRepository(),
			Devices:            devices,
			Health:             health,
			Hub:                hub,
			CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("server listening on %s", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Errorf("server error: %v", err)
			hubCancel()
			logger.Flush()
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	hubCancel()
	hubWg.Wait()
	logger.Info("hub stopped")
	logger.Flush()
}
