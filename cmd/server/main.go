package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/yourusername/ytdl-relay/api"
	"github.com/yourusername/ytdl-relay/api/handlers"
	"github.com/yourusername/ytdl-relay/internal/app"
	"github.com/yourusername/ytdl-relay/internal/infrastructure"
	"github.com/yourusername/ytdl-relay/pkg/logger"
)

var configPath = flag.String("config", "", "Path to config file (default: ./configs/config.yaml, ~/.ytdl-relay, /etc/ytdl-relay)")

func main() {
	flag.Parse()

	config, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	base, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
		Service:    "ytdl-relay",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Categorized log files are optional
	var multiLog *logger.MultiLogger
	if config.Logging.LogsDir != "" {
		multiLog, err = logger.NewMultiLogger(logger.MultiLoggerConfig{
			Level:   config.Logging.Level,
			LogsDir: config.Logging.LogsDir,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
			os.Exit(1)
		}
	}
	logAdapter := logger.NewLoggerAdapter(base, multiLog)
	defer logAdapter.Close()

	log := logAdapter.General()
	log.Info("Starting ytdl-relay server",
		zap.String("version", handlers.Version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.Bool("allow_direct", config.Resolver.AllowDirect),
		zap.Int("chunk_size", config.Download.ChunkSize))

	resolver := infrastructure.NewResolver(&config.Resolver, log)
	store := app.NewSessionStore()
	manager := app.NewSessionManager(resolver, store, &config.Download, logAdapter.Transfer())
	reporter := app.NewProgressReporter(store)

	router := api.SetupRouter(manager, reporter, store, logAdapter)

	// No WriteTimeout: downloads run as long as the upstream does.
	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: config.Server.ReadHeaderTimeout,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...", zap.Int("sessions", store.Len()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		_ = server.Close()
	}

	log.Info("Server exited")
}
