package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tracker/pkg/api"
	"tracker/pkg/config"
	"tracker/pkg/console"
	"tracker/pkg/logger"
	"tracker/pkg/telegram"
	"tracker/pkg/tracker"
)

// stopTimeout bounds the final "stopped" notification.
const stopTimeout = 10 * time.Second

// errStartup marks failures already reported to the operator with guidance.
var errStartup = errors.New("tracker failed to start")

func main() {
	os.Exit(run())
}

func run() int {
	out := console.New(os.Stdout)

	// Load configuration
	cfg, err := config.LoadConfig(config.DefaultPath)
	if err != nil {
		out.Failure("Failed to load config: %v", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		out.Failure("Failed to start tracker: %v", err)
		return 1
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		out.Failure("Failed to create logger: %v", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Telegram client
	tgClient := telegram.NewClient(cfg.Telegram, log)

	g, gctx := errgroup.WithContext(sigCtx)

	if cfg.API.Addr != "" {
		apiServer := api.NewAPIServer(tgClient, log.Named("api"))
		g.Go(func() error {
			if err := apiServer.Start(gctx, cfg.API.Addr); err != nil {
				return errors.Wrap(err, "api server")
			}
			return nil
		})
	} else {
		log.Info("API server disabled, login codes cannot be submitted for a new session")
	}

	g.Go(func() error {
		select {
		case <-tgClient.AuthCompleted:
			out.Success("Telegram session authorized")
		case <-gctx.Done():
		}
		return nil
	})

	g.Go(func() error {
		return runTracker(gctx, cfg, tgClient, log, out)
	})

	err = g.Wait()
	switch {
	case err == nil:
		out.Info("👋 Tracker stopped")
		return 0
	case errors.Is(err, errStartup):
		log.Error("Startup failed", zap.Error(err))
		return 1
	default:
		log.Error("Tracker terminated", zap.Error(err))
		out.Failure("Tracker terminated: %v", err)
		return 1
	}
}

// runTracker keeps the Telegram connection open until the tracker has sent
// its stop notification. sigCtx ending stops the tracker loop; the
// connection itself is only torn down early when the tracker never started.
func runTracker(sigCtx context.Context, cfg *config.Config, tgClient *telegram.Client, log *zap.Logger, out *console.Console) error {
	clientCtx, cancelClient := context.WithCancel(context.Background())
	defer cancelClient()

	running := make(chan struct{})
	abort := context.AfterFunc(sigCtx, func() {
		select {
		case <-running:
		default:
			cancelClient()
		}
	})
	defer abort()

	out.Info("🚀 Starting Telegram tracker...")
	err := tgClient.Run(clientCtx, func(ctx context.Context) (err error) {
		close(running)

		runCtx, cancelRun := context.WithCancel(ctx)
		defer cancelRun()
		defer context.AfterFunc(sigCtx, cancelRun)()

		trk := tracker.New(tgClient, cfg.Tracker, log.Named("tracker"), out)
		defer func() {
			if r := recover(); r != nil {
				err = errors.Errorf("panic: %v", r)
			}
			stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
			defer cancel()
			trk.Stop(stopCtx)
		}()

		if err := trk.Start(runCtx); err != nil {
			if sigCtx.Err() != nil {
				return nil
			}
			out.Failure("Failed to start tracker: %v", err)
			return errors.Wrap(errStartup, err.Error())
		}
		trk.Register(tgClient)
		return trk.Run(runCtx)
	})

	if err != nil && sigCtx.Err() != nil && errors.Is(err, context.Canceled) {
		// Interrupted before the tracker started.
		return nil
	}
	return err
}
