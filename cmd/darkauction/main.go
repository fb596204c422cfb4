// Command darkauction watches the Hypixel Skyblock Dark Auction.
//
// Usage:
//
//	darkauction                  # same as "darkauction run"
//	darkauction run
//	darkauction next --count 10
//	darkauction check
//	darkauction notify-test
//	STATUS_ADDR=:8080 darkauction run

// @title Skyblock Dark Auction Monitor API
// @version 1.0.0
// @description Read-only status API for the Dark Auction monitor: current phase, live auction statistics, the last summary, and predicted windows.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @license.name MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/albapepper/darkauction/internal/api"
	"github.com/albapepper/darkauction/internal/clock"
	"github.com/albapepper/darkauction/internal/config"
	"github.com/albapepper/darkauction/internal/console"
	"github.com/albapepper/darkauction/internal/metrics"
	"github.com/albapepper/darkauction/internal/notifications"
	"github.com/albapepper/darkauction/internal/provider/hypixel"
	"github.com/albapepper/darkauction/internal/scheduler"
	"github.com/albapepper/darkauction/internal/skytime"
	"github.com/albapepper/darkauction/internal/status"
	"github.com/albapepper/darkauction/internal/watcher"

	_ "github.com/albapepper/darkauction/docs" // swagger docs
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	run := runCmd()
	root := &cobra.Command{
		Use:          "darkauction",
		Short:        "Skyblock Dark Auction monitor",
		SilenceUsage: true,
		RunE:         run.RunE,
	}

	root.AddCommand(run)
	root.AddCommand(nextCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(notifyTestCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// run command
// --------------------------------------------------------------------------

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Monitor every Dark Auction until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConfig(func(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
				if cfg.APIKey == "" {
					return fmt.Errorf("HYPIXEL_API_KEY is required")
				}
				return runMonitor(ctx, cfg, logger)
			})
		},
	}
}

func runMonitor(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	metrics.Init()
	cal := skytime.FromConfig(cfg)
	tracker := status.NewTracker(nil)

	sinks, closeSinks := buildSinks(cfg, logger)
	defer closeSinks()
	notifier := notifications.NewNotifier(sinks, logger,
		notifications.WithErrorHook(tracker.RecordError))

	client := hypixel.NewClient(cfg, notifier, logger)
	out := console.New(os.Stdout)

	orch := scheduler.New(scheduler.Settings{
		DetectInterval: cfg.DetectTick,
		GracePeriod:    cfg.GracePeriod,
		SampleInterval: cfg.SampleTick,
		LowFloor:       cfg.LowPlayerFloor,
	}, scheduler.Deps{
		Source:   client,
		Reporter: notifier,
		Waiter:   watcher.New(clock.Real{}, cfg.WaitTick, out, notifier, logger),
		Clock:    clock.Real{},
		Calendar: cal,
		Progress: out,
		Tracker:  tracker,
		Logger:   logger,
	})

	// Optional status server
	var srv *http.Server
	if cfg.StatusAddr != "" {
		srv = &http.Server{
			Addr:         cfg.StatusAddr,
			Handler:      api.NewRouter(tracker, cal, cfg, nil),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			logger.Info("Starting status server",
				"addr", cfg.StatusAddr,
				"environment", cfg.Environment,
				"docs", fmt.Sprintf("http://%s/docs/", cfg.StatusAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Status server failed", "error", err)
			}
		}()
	} else {
		logger.Info("Status server disabled (no STATUS_ADDR)")
	}

	err := orch.Run(ctx)

	if srv != nil {
		// Graceful shutdown with timeout
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown error", "error", err)
		}
		logger.Info("Status server stopped")
	}
	return err
}

// --------------------------------------------------------------------------
// next command
// --------------------------------------------------------------------------

func nextCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Print the next predicted Dark Auction windows",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cal := skytime.FromConfig(cfg)
			now := time.Now()
			w := cmd.OutOrStdout()
			for _, ms := range cal.Upcoming(skytime.Millis(now), count) {
				at := skytime.Time(ms)
				fmt.Fprintf(w, "%s  %-28s in %s\n",
					at.Format(time.DateTime), cal.Date(ms), skytime.Format(at.Sub(now)))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 5, "Number of windows to print")
	return cmd
}

// --------------------------------------------------------------------------
// check command
// --------------------------------------------------------------------------

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Poll the counts endpoint once and print the Dark Auction player count",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConfig(func(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
				if cfg.APIKey == "" {
					return fmt.Errorf("HYPIXEL_API_KEY is required")
				}
				reading, err := hypixel.NewClient(cfg, nil, logger).Fetch(ctx)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if reading.Present {
					fmt.Fprintf(w, "Dark Auction is live with %d players\n", reading.Players)
				} else {
					fmt.Fprintln(w, "Dark Auction is not running")
				}
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// notify-test command
// --------------------------------------------------------------------------

func notifyTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notify-test",
		Short: "Send a test message to every configured sink",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConfig(func(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
				sinks, closeSinks := buildSinks(cfg, logger)
				defer closeSinks()
				if len(sinks) == 0 {
					return fmt.Errorf("no sinks configured (set DISCORD_WEBHOOK_URL or KAFKA_BROKERS)")
				}
				if err := sinks.Send(ctx, notifications.TestReport(time.Now())); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Test message delivered to %d sink(s)\n", len(sinks))
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// withConfig handles config loading, logger setup, and context cancellation.
func withConfig(fn func(ctx context.Context, cfg *config.Config, logger *slog.Logger) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Logs go to stderr so the console countdown owns stdout.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	return fn(ctx, cfg, logger)
}

// buildSinks returns the configured sinks and a func that closes them.
func buildSinks(cfg *config.Config, logger *slog.Logger) (notifications.Multi, func()) {
	var sinks notifications.Multi
	webhook := notifications.NewWebhookSender(cfg.WebhookURL, cfg.HTTPTimeout, logger)
	if err := webhook.Validate(); err != nil {
		logger.Warn("Discord notifications disabled", "reason", err)
	} else {
		sinks = append(sinks, webhook)
	}

	kafkaSink := notifications.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic, logger, clock.Real{}.Now)
	if kafkaSink != nil {
		sinks = append(sinks, kafkaSink)
		logger.Info("Kafka event stream enabled", "topic", cfg.KafkaTopic)
	}

	return sinks, func() {
		if kafkaSink == nil {
			return
		}
		if err := kafkaSink.Close(); err != nil {
			logger.Warn("Failed to close Kafka writer", "error", err)
		}
	}
}
