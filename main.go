package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmorgan81/pawtrait/internal/api"
	"github.com/dmorgan81/pawtrait/internal/config"
	"github.com/dmorgan81/pawtrait/internal/inject"
	"github.com/dmorgan81/pawtrait/internal/log"
	"github.com/dmorgan81/pawtrait/internal/prompt"
	"github.com/samber/do"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.New(os.Stderr, nil).Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := log.New(os.Stderr, log.ParseLevel(cfg.LogLevel))
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = log.NewContext(ctx, logger)

	injector := inject.Setup(ctx, cfg)
	catalog, err := do.Invoke[*prompt.Catalog](injector)
	if err != nil {
		logger.Error("load prompt catalog", "error", err)
		os.Exit(1)
	}
	logger.Info("loaded prompt catalog", "prompts", len(catalog.List()))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           do.MustInvoke[*api.API](injector).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      cfg.GenerateTimeout + cfg.UploadTimeout + 30*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	if err := injector.Shutdown(); err != nil {
		logger.Error("shutdown injector", "error", err)
	}
}
