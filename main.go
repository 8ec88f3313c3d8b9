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
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "pg-hostel",
		Short:         "PG hostel tenant management backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.yaml)")

	// withApp loads config, wires the services and runs fn.
	withApp := func(fn func(ctx context.Context, app *App) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			logger, err := NewLogger(cfg.Logging)
			if err != nil {
				return err
			}
			defer logger.Sync()

			app, err := NewApp(cfg, logger)
			if err != nil {
				logger.Error("startup failed", zap.Error(err))
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return fn(ctx, app)
		}
	}

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE:  withApp(serve),
		},
		&cobra.Command{
			Use:   "seed-rooms",
			Short: "Create the default room layout (missing rooms only)",
			RunE: withApp(func(ctx context.Context, app *App) error {
				created, err := app.Occupancy.SeedRooms(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "created %d rooms\n", created)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "reconcile",
			Short: "Repair room occupant lists, counts and statuses",
			RunE: withApp(func(ctx context.Context, app *App) error {
				corrected, err := app.Occupancy.Reconcile(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "corrected %d rooms\n", corrected)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "generate-bills",
			Short: "Generate rent bills for the current month",
			RunE: withApp(func(ctx context.Context, app *App) error {
				result, err := app.Billing.GenerateMonthlyRent(ctx, time.Now().In(app.Config.Location()))
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "%s %d: created %d, skipped %d\n", result.Month, result.Year, len(result.Created), result.Skipped)
				return nil
			}),
		},
	)
	return rootCmd
}

func serve(ctx context.Context, app *App) error {
	gin.SetMode(app.Config.Server.Mode)

	if app.Config.Scheduler.Enabled {
		app.Scheduler.Start(ctx)
		defer app.Scheduler.Stop()
	}

	srv := &http.Server{
		Addr:              app.Config.Server.Port,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.Logger.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("health", "http://localhost"+srv.Addr+"/health"))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	app.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
