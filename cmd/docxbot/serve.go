package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/nikishkaa/docx-bot/internal/bot"
	"github.com/nikishkaa/docx-bot/internal/errlog"
	"github.com/nikishkaa/docx-bot/internal/http/handler"
	"github.com/nikishkaa/docx-bot/internal/http/middleware"
	"github.com/nikishkaa/docx-bot/internal/inference"
	"github.com/nikishkaa/docx-bot/internal/metrics"
	"github.com/nikishkaa/docx-bot/internal/otel"
	"github.com/nikishkaa/docx-bot/internal/service"
	"github.com/nikishkaa/docx-bot/internal/storage"
	"github.com/nikishkaa/docx-bot/internal/telegram"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot and the ops API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, &rt)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, r *runtime) error {
	cfg := r.cfg
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	shutdownTracing, err := otel.Init(ctx, "docx-bot", r.log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			r.log.Warn("tracing_shutdown_failed", "error", err)
		}
	}()

	store, err := r.openStore()
	if err != nil {
		return err
	}
	if err := store.Initialize(); err != nil {
		return err
	}
	r.log.Info("storage_ready", "root", store.Root(), "categories", len(store.Taxonomy().Categories))

	downloads, db, err := r.openLedger(ctx)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}
	r.log.Info("ledger_ready", "backend", cfg.Ledger.Backend)

	var mirror storage.Storage
	if cfg.MinIO.Enabled() {
		mirror, err = storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			return fmt.Errorf("init object storage: %w", err)
		}
		r.log.Info("mirror_ready", "endpoint", cfg.MinIO.Endpoint, "bucket", cfg.MinIO.Bucket)
	}

	botMetrics, err := metrics.NewBot(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	errs, err := errlog.New(cfg.Log.Dir, r.loc)
	if err != nil {
		return err
	}
	defer errs.Close()

	adapter, err := inference.NewFromConfig(cfg.Inference, r.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := adapter.Close(); err != nil {
			r.log.Warn("inference_close_failed", "error", err)
		}
	}()

	files := service.NewFileService(store, downloads, mirror, botMetrics, r.log)

	tg := telegram.NewClient(cfg.Bot, r.log)
	me, err := tg.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}
	if err := tg.SetMyCommands(ctx, bot.Commands()); err != nil {
		r.log.Warn("set_commands_failed", "error", err)
	}

	router := bot.NewRouter(files, tg, adapter, errs, botMetrics, r.log, bot.Settings{
		InferenceTimeout: cfg.Inference.Timeout,
		Location:         r.loc,
	})

	if cfg.HTTP.Enabled {
		app, err := newHTTPApp(r.log, prometheus.DefaultRegisterer, handler.Deps{
			StorageRoot: store.Root(),
			DB:          db,
			Mirror:      mirror,
			Files:       files,
			Gatherer:    prometheus.DefaultGatherer,
		})
		if err != nil {
			return err
		}
		go func() {
			if err := app.Listen(":" + cfg.HTTP.Port); err != nil {
				r.log.Error("http_listen_failed", "error", err)
			}
		}()
		defer func() {
			if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
				r.log.Warn("http_shutdown_failed", "error", err)
			}
		}()
	}

	r.log.Info("bot_started", "username", me.Username, "http_enabled", cfg.HTTP.Enabled)

	if err := poll(ctx, telegram.NewPoller(tg, cfg.Bot, r.log), router.Handle, errs, r.log); err != nil {
		return err
	}
	r.log.Info("bot_stopped", "sessions", router.Sessions().Len())
	return nil
}

type updateSource interface {
	Run(ctx context.Context, h telegram.Handler) error
}

// poll runs the update loop. Giving up on Telegram is fatal and lands in
// the operator error log as well as the process log.
func poll(ctx context.Context, src updateSource, h telegram.Handler, errs bot.ErrorLogger, log *slog.Logger) error {
	err := src.Run(ctx, h)
	if errors.Is(err, telegram.ErrGaveUp) {
		log.Error("polling_gave_up", "error", err)
		errs.Log(err.Error(), 0, "fatal: telegram polling stopped, bot exiting")
	}
	return err
}

// newHTTPApp builds the ops API with the shared middleware chain.
func newHTTPApp(log *slog.Logger, reg prometheus.Registerer, d handler.Deps) (*fiber.App, error) {
	prom, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return nil, fmt.Errorf("register http metrics: %w", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          handler.ErrorHandler(),
		DisableStartupMessage: true,
	})
	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(prom.Handler())

	handler.RegisterRoutes(app, d)
	return app, nil
}
