package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taquin",
		Short: "Puzzle photo 3×3 : envoyez une image, remettez les pièces en place",
		Long: `taquin serves a browser puzzle game. An uploaded image is sliced into a
3×3 grid of tiles which are shuffled; the player swaps tiles by drag-and-drop
or tap until the picture is restored.

Configuration is read from an optional YAML file, then from the environment
(PORT, LOG_LEVEL, GCP_PROJECT_ID, GCP_REGION, GEMINI_MODEL, MAX_UPLOAD_MB,
SESSION_TTL, REAP_EVERY), then from flags.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}

			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := run(ctx, cfg, logger); err != nil {
				logger.Error("server stopped", zap.Error(err))
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringP("config", "c", "", "path to a YAML config file")
	cmd.Flags().StringP("port", "p", "", "listen port (overrides PORT)")
	cmd.Flags().String("log-level", "", "debug|info|warn|error (overrides LOG_LEVEL)")
	return cmd
}

// resolveConfig layers the flags over LoadConfig and validates the result,
// so a flag can fix a bad value coming from the file or the environment.
func resolveConfig(cmd *cobra.Command) (Config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	cfg, err := LoadConfig(path)
	if err != nil {
		return cfg, err
	}
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetString("port")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	return cfg, cfg.Validate()
}

// run serves HTTP and reaps idle boards until ctx is cancelled.
func run(ctx context.Context, cfg Config, logger *zap.Logger) error {
	var captioner Captioner
	if cfg.ProjectID != "" {
		target, err := vertexTarget(cfg)
		if err != nil {
			return err
		}
		gemini, err := NewGeminiClient(ctx, target)
		if err != nil {
			return fmt.Errorf("init gemini: %w", err)
		}
		captioner = gemini
		logger.Info("gemini client ready", zap.String("project", target.Project), zap.String("region", target.Region), zap.String("model", target.Model))
	} else {
		logger.Info("GCP_PROJECT_ID not set, using the default completion message")
	}

	store := NewStore(cfg.SessionTTL)
	srv := NewServer(store, NewBuilder(captioner, logger), logger, cfg.MaxUploadBytes())

	g, gctx := errgroup.WithContext(ctx)
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		store.Run(gctx, cfg.ReapEvery, srv.Watched, srv.OnReap)
		return nil
	})
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", "http://localhost:"+cfg.Port))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
