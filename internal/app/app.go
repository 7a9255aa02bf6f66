package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"onlinellm-gateway/backend/internal/api"
	"onlinellm-gateway/backend/internal/config"
	"onlinellm-gateway/backend/internal/llm"
	"onlinellm-gateway/backend/internal/search"
	"onlinellm-gateway/backend/internal/service"
)

const shutdownTimeout = 15 * time.Second

// App holds the wired HTTP server for one process.
type App struct {
	Config *config.Config
	Server *http.Server
}

// NewApp wires the search provider, the upstream client, the orchestrator and
// the router into an http.Server listening on cfg.Port.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	searchProvider := search.NewHTMLSnippetProvider(search.Options{
		BaseURL:      cfg.SearchBaseURL,
		SnippetClass: cfg.SearchSnippetClass,
		MaxResults:   cfg.SearchMaxResults,
		Timeout:      cfg.SearchTimeout,
	})
	azureProvider := llm.NewAzureProvider(llm.AzureConfig{
		Endpoint:   cfg.AzureEndpoint,
		APIKey:     cfg.AzureKey,
		Deployment: cfg.AzureDeployment,
		APIVersion: cfg.AzureAPIVersion,
		Timeout:    cfg.UpstreamTimeout,
	})

	completionService := service.NewCompletionService(azureProvider, searchProvider, cfg.OnlineModelMarker, cfg.Sampling)
	completionHandler := api.NewCompletionHandler(completionService)
	router := api.NewRouter(completionHandler, cfg.InboundAPIKey(), cfg.RequestTimeout)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &App{Config: cfg, Server: server}, nil
}

// Run loads configuration, serves until SIGINT/SIGTERM and returns the
// process exit code.
func Run(envFile string, flags *pflag.FlagSet) int {
	cfg, v, err := config.LoadConfig(envFile, flags)
	if err != nil {
		// slog is not yet configured, so use the default logger for this critical error.
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	setupLogger(cfg.LogLevel)

	logConfigSource(v)

	app, err := NewApp(cfg)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Serve(ctx); err != nil {
		slog.Error("Server failed", "error", err)
		return 1
	}
	return 0
}

// Serve binds the listener and blocks until ctx is cancelled, then drains
// in-flight requests. Bind failures are returned immediately.
func (a *App) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", a.Server.Addr, err)
	}

	slog.Info("Starting server",
		"addr", listener.Addr().String(),
		"deployment", a.Config.AzureDeployment,
		"online_marker", a.Config.OnlineModelMarker,
	)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- a.Server.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	slog.Info("Server stopped")
	return nil
}

func logConfigSource(v *viper.Viper) {
	configFileUsed := v.ConfigFileUsed()
	if configFileUsed != "" {
		if _, err := os.Stat(configFileUsed); err == nil {
			slog.Info("Successfully loaded configuration from file.", "file", configFileUsed)
			return
		}
	}
	slog.Info("Configuration file not found. Using environment variables and defaults.")
}

func setupLogger(logLevel string) {
	var level slog.Level
	switch strings.ToUpper(logLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN", "WARNING":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}
