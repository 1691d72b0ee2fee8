package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/api"
	appcfg "github.com/park285/chess-arena/internal/config"
	"github.com/park285/chess-arena/internal/directory"
	"github.com/park285/chess-arena/internal/hub"
	"github.com/park285/chess-arena/internal/identity"
	"github.com/park285/chess-arena/internal/msgcat"
	"github.com/park285/chess-arena/internal/obslog"
	"github.com/park285/chess-arena/internal/session"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = obslog.L().Sync() }()

	messages, err := msgcat.New(cfg.MsgOverrideDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	store, err := session.NewStore(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis init error: %v", err)
	}

	verifier := identity.NewClient(cfg.IdentityBaseURL, identity.WithTimeout(cfg.IdentityTimeout))

	manager := session.NewManager(store, nil)
	eventHub := hub.New(
		hub.WithSendBuffer(cfg.HubSendBuffer),
		hub.WithOriginPatterns(cfg.AllowedOrigins),
		hub.WithDeclineHandler(func(ctx context.Context, sessionID, userID string) error {
			_, err := manager.DeclineDraw(ctx, sessionID, userID)
			return err
		}),
	)
	manager.AttachPublisher(eventHub)

	var resolver directory.Resolver
	var archive *session.Archive
	if cfg.DatabaseURL != "" {
		archive, err = session.NewArchive(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("archive init error: %v", err)
		}
		manager.AttachArchive(archive)
		resolver = directory.NewPostgres(archive.DB())
	}

	server := api.NewServer(api.Options{
		Addr:     cfg.ListenAddr,
		Manager:  manager,
		Hub:      eventHub,
		Verifier: verifier,
		Resolver: resolver,
		Messages: messages,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		obslog.L().Info("shutdown_signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			obslog.L().Error("server_failed", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		obslog.L().Warn("shutdown_incomplete", zap.Error(err))
	}
	eventHub.Close()
	_ = store.Close()
	if archive != nil {
		_ = archive.Close()
	}
}
