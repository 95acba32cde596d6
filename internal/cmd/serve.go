package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/shopgenie/shopgenie/internal/bot"
	"github.com/shopgenie/shopgenie/internal/config"
	"github.com/shopgenie/shopgenie/internal/core/engine"
	apperrors "github.com/shopgenie/shopgenie/internal/errors"
	"github.com/shopgenie/shopgenie/internal/metrics"
	"github.com/shopgenie/shopgenie/internal/observability"
	"github.com/shopgenie/shopgenie/internal/server"
	"github.com/shopgenie/shopgenie/internal/server/handlers"
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return apperrors.NewInternalError("telemetry system not initialized")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat bot and HTTP API",
	Long: `Run the Telegram bot, the HTTP API and the rate-limit sweeper.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Re-read the config file (restart to apply pipeline changes)`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().Bool("no-bot", false, "disable the Telegram poller")
	serveCmd.Flags().Bool("no-http", false, "disable the HTTP API")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, err := currentConfig()
	if err != nil {
		return apperrors.Wrap(ctx, apperrors.CodeConfigInvalid, err, "invalid configuration")
	}
	if noBot, _ := cmd.Flags().GetBool("no-bot"); noBot {
		cfg.Telegram.Enabled = false
	}
	if noHTTP, _ := cmd.Flags().GetBool("no-http"); noHTTP {
		cfg.Server.Enabled = false
	}
	if !cfg.Telegram.Enabled && !cfg.Server.Enabled {
		return apperrors.NewConfigInvalidError("nothing to serve: both telegram and server are disabled")
	}
	if cfg.Telegram.Enabled && cfg.Telegram.Token == "" {
		return apperrors.NewConfigInvalidError("telegram.token is required (set TELEGRAM_BOT_TOKEN or use --no-bot)")
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	observability.InitServerLogger(config.AppName, level)
	logger := observability.ServerLogger

	if cfg.Metrics.Enabled {
		if err := observability.InitMetrics(config.AppName, cfg.Metrics.Port); err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			return apperrors.Wrap(ctx, apperrors.CodeInternal, err, "metrics initialization failed")
		}
		metrics.SetServerStartTime(time.Now().Unix())
	}

	svc, err := buildServices(cfg, logger)
	if err != nil {
		return apperrors.Wrap(ctx, apperrors.CodeConfigInvalid, err, "service wiring failed")
	}

	logger.Info("Initializing shopgenie",
		zap.String("version", versionInfo.Version),
		zap.String("marketplace", cfg.Marketplace.Name),
		zap.String("fetcher", svc.Extractor.Fetcher.Name()),
		zap.Bool("telegram", cfg.Telegram.Enabled),
		zap.Bool("http", cfg.Server.Enabled),
		zap.Int("metrics_port", observability.GetMetricsPort()),
		zap.Int("rate_limit", cfg.RateLimit.MaxRequests),
		zap.Duration("rate_window", cfg.RateLimit.Window))

	sweeper := &engine.Sweeper{Limiter: svc.Limiter, Interval: cfg.RateLimit.SweepInterval, Logger: logger}
	sweeper.Start(ctx)

	errChan := make(chan error, 3)

	var poller *bot.Poller
	if cfg.Telegram.Enabled {
		api, err := bot.NewAPI(cfg.Telegram.Token, cfg.Telegram.Debug)
		if err != nil {
			sweeper.Stop()
			return apperrors.Wrap(ctx, apperrors.CodeExternalService, err, "telegram authentication failed")
		}
		poller = &bot.Poller{
			API:         api,
			PollTimeout: cfg.Telegram.PollTimeout,
			Logger:      logger,
			Dispatcher: &bot.Dispatcher{
				Search: svc.Pipeline,
				Sender: &bot.TelegramSender{API: api},
				Logger: logger,
				Info: bot.Info{
					Marketplace: cfg.Marketplace.Name,
					MaxResults:  cfg.Results.MaxResults,
					MaxRequests: cfg.RateLimit.MaxRequests,
					Window:      cfg.RateLimit.Window,
				},
			},
		}
		logger.Info("Telegram bot authorized", zap.String("username", api.Self.UserName))

		go func() {
			if err := poller.Run(ctx); err != nil {
				errChan <- err
			}
		}()
	}

	var srv *server.Server
	if cfg.Server.Enabled {
		srv = server.New(cfg.Server.Host, cfg.Server.Port,
			server.WithSearch(&handlers.SearchHandler{Pipeline: svc.Pipeline, Budget: svc.Limiter}),
			server.WithAdminToken(cfg.Server.AdminToken),
			server.WithTimeouts(server.Timeouts{
				Read:     cfg.Server.ReadTimeout,
				Write:    cfg.Server.WriteTimeout,
				Idle:     cfg.Server.IdleTimeout,
				Shutdown: cfg.Server.ShutdownTimeout,
			}),
		)
		health := srv.Health()
		health.RegisterChecker("rate_limiter", handlers.CheckerFunc(svc.limiterHealth))
		if cfg.Metrics.Enabled {
			health.RegisterChecker("telemetry", telemetryHealthChecker{})
		}
		if poller != nil {
			health.RegisterChecker("telegram", poller)
		}

		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}

	// Shutdown handlers run LIFO: stop intake first, flush the logger last.
	stopped := make(chan struct{})
	signals.OnShutdown(func(ctx context.Context) error {
		defer close(stopped)
		logger.Info("Flushing logger...")
		if err := logger.Sync(); err != nil {
			logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
		}
		return nil
	})
	signals.OnShutdown(func(shutdownCtx context.Context) error {
		if err := observability.ShutdownMetrics(); err != nil {
			logger.Warn("Metrics exporter shutdown failed", zap.Error(err))
		}
		return nil
	})
	signals.OnShutdown(func(shutdownCtx context.Context) error {
		sweeper.Stop()
		return nil
	})
	signals.OnShutdown(func(shutdownCtx context.Context) error {
		cancel()
		if srv == nil {
			return nil
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return apperrors.Wrap(shutdownCtx, apperrors.CodeInternal, err, "server shutdown failed")
		}
		logger.Info("HTTP server stopped gracefully")
		return nil
	})

	signals.OnReload(func(reloadCtx context.Context) error {
		logger.Info("Received SIGHUP: attempting config reload")
		if err := viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				logger.Info("No config file found - using defaults and environment variables")
				return nil
			}
			logger.Error("Failed to reload config file", zap.String("file", viper.ConfigFileUsed()), zap.Error(err))
			return apperrors.Wrap(reloadCtx, apperrors.CodeConfigInvalid, err, "config reload failed")
		}
		logger.Info("Configuration reloaded; restart to apply pipeline changes",
			zap.String("file", viper.ConfigFileUsed()))
		return nil
	})

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}

	go func() {
		if err := signals.Listen(cmd.Context()); err != nil {
			logger.Error("Signal handler error", zap.Error(err))
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		cancel()
		sweeper.Stop()
		return apperrors.Wrap(ctx, apperrors.CodeInternal, err, "server error")
	case <-stopped:
		return nil
	}
}
