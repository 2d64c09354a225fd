package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"support-chat/auth"
	"support-chat/infrastructure/ws"
	"support-chat/internal"
	"support-chat/moderation"
	"support-chat/notification"
	"support-chat/observability"
	"support-chat/repositories"
	"support-chat/runtime"
	"support-chat/runtime/workers"
	"support-chat/search"
	"support-chat/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or
// service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so every defer (database close, index close)
// executes before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Storage (BadgerDB + Bluge)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	index, err := search.Open(config.BlugeFilepath, logger)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open search index: %w", err)
	}
	defer func() {
		logger.Info("Closing search index...")
		_ = index.Close()
	}()

	// 3. Repositories & collaborators
	sessionRepository := repositories.NewSessionRepository(db, logger)
	messageRepository := repositories.NewMessageRepository(db, logger, config.MessageRetention, nil)
	userRepository := repositories.NewUserRepository(db, logger)
	store := repositories.NewStore(sessionRepository, messageRepository)

	tokens := auth.NewTokenManager(config.JWTSecret, config.AuthTokenDuration)
	verifier := auth.NewVerifier(logger, tokens, userRepository)
	notifier := notification.NewLogNotifier(logger, userRepository)

	words, err := moderation.LoadWords()
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to load censored words: %w", err)
	}
	logger.Info(fmt.Sprintf("%d censored words loaded", len(words)))
	moderator, err := moderation.NewModerator(words, charReplacement)
	if err != nil {
		return exitRuntime, err
	}

	// 4. Real-time core
	presence := runtime.NewPresence()
	rooms := runtime.NewRooms()
	stats := observability.NewStats()
	chatService := services.NewChatService(logger, store, presence, rooms,
		notifier, moderator, index, stats, config.MaxContentLength)

	// 5. Supervised background workers
	supervisor := workers.NewSupervisor(logger)
	supervisor.Add(
		workers.NewMonitoringWorker(logger, stats, presence, config.MetricInterval),
		workers.NewBadgerGCWorker(db, logger, config.GCInterval),
	)
	supervisorDone := make(chan struct{})
	go func() {
		supervisor.Run(ctx)
		close(supervisorDone)
	}()

	// 6. Gateway
	gateway := ws.NewServer(logger, verifier, chatService,
		config.ConnectionBufferSize, config.DeliveryTimeout)

	mux := http.NewServeMux()
	mux.Handle("/ws", gateway)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler: mux,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Gateway listening", "addr", httpServer.Addr)
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err = <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return exitRuntime, err
		}
	case <-ctx.Done():
		logger.Info("Shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown failed", "error", err)
	}

	supervisor.Stop()
	<-supervisorDone

	return exitOK, nil
}
