// Command comments-local runs the comment service behind a plain HTTP server,
// backed by sqlite and a logging event publisher unless the environment says
// otherwise.
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

	"dms-comments/handler"
	"dms-comments/internal/app"
	"dms-comments/internal/config"
	"dms-comments/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("comments-local failed", "err", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		addr       string
		envFile    string
		sqlitePath string
	)

	cmd := &cobra.Command{
		Use:           "comments-local",
		Short:         "Serve the comments API locally",
		Long:          "Serve the comments API over HTTP using the same handler as the Lambda function.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnvFile(envFile); err != nil {
				return err
			}
			setDefaultEnv("STORE_BACKEND", config.StoreSQLite)
			setDefaultEnv("EVENT_PUBLISHER", config.PublisherLog)
			setDefaultEnv("LOG_FORMAT", "text")
			if cmd.Flags().Changed("sqlite") {
				_ = os.Setenv("SQLITE_PATH", sqlitePath)
			}
			return serve(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file to load if present")
	cmd.Flags().StringVar(&sqlitePath, "sqlite", "comments.db", "sqlite database file")

	return cmd
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func setDefaultEnv(key, value string) {
	if _, ok := os.LookupEnv(key); !ok {
		_ = os.Setenv(key, value)
	}
}

func serve(ctx context.Context, addr string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              addr,
		Handler:           logging.RequestLogger(handler.NewHTTPAdapter(a.Handler)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
