package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gravadigital/campuscast-api/internal/auth"
	"github.com/gravadigital/campuscast-api/internal/config"
	"github.com/gravadigital/campuscast-api/internal/domain/event"
	"github.com/gravadigital/campuscast-api/internal/domain/identity"
	"github.com/gravadigital/campuscast-api/internal/logger"
	"github.com/gravadigital/campuscast-api/internal/server"
	"github.com/gravadigital/campuscast-api/internal/services"
	"github.com/gravadigital/campuscast-api/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	logger.Initialize(cfg.Log.Level)
	log := logger.Get()

	if err := run(cfg); err != nil {
		log.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storageType, err := storage.ValidateStorageType(cfg.Storage.Type)
	if err != nil {
		return err
	}

	kvStore, err := storage.NewFactory(storageType).CreateStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := kvStore.Close(); err != nil {
			log.Error("Failed to close storage", "error", err)
		}
	}()

	verifier, err := auth.NewVerifier(cfg.Auth.Provider, cfg.Auth.GoogleClientID)
	if err != nil {
		return err
	}
	codec, err := auth.NewSessionCodec(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL)
	if err != nil {
		return err
	}
	if cfg.IsProduction() && cfg.Auth.SessionSecret == config.DefaultSessionSecret {
		return errors.New("SESSION_SECRET must be set in production")
	}

	provider := auth.NewSessionProvider(ctx, verifier, kvStore, codec)
	gate := identity.NewGate(provider, identity.AllowedDomain)
	defer gate.Close()

	events := event.NewStore(ctx, gate, storage.NewCollectionRepository(kvStore, cfg.Storage.Key))

	srv := server.New(cfg, server.Dependencies{
		Events:     services.NewEventService(events, gate),
		Users:      services.NewUserService(gate),
		Identities: gate,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	log.Info("CampusCast API ready",
		"storage", storageType,
		"auth_provider", cfg.Auth.Provider,
		"domain", gate.Domain())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", "error", err)
		return err
	}

	log.Info("Server stopped")
	return nil
}
