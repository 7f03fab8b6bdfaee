package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skylarkml/skylark/internal/bootstrap"
	"github.com/skylarkml/skylark/internal/server"
	"github.com/skylarkml/skylark/pkg/config"
	"github.com/skylarkml/skylark/pkg/logger"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "skylark",
		Short: "Skylark - dual-store feature store for ML serving",
		Long: `Skylark computes, validates, and serves machine-learning features.
Features are defined declaratively, computed through named transformations,
and persisted to a low-latency online store for inference and a partitioned
parquet store for training.`,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Skylark v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(newServeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	var (
		configPath string
		seed       bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the feature serving API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			container, err := bootstrap.New(ctx, cfg)
			cancel()
			if err != nil {
				return err
			}
			defer container.Close()

			if seed {
				if err := bootstrap.SeedCustomerMetrics(container.Registry); err != nil {
					return err
				}
			}

			srv := server.New(cfg, container.Registry)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Listen()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logger.Info("shutting down", zap.String("signal", sig.String()))
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer shutdownCancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return err
				}
			}

			_ = logger.Sync()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	cmd.Flags().BoolVar(&seed, "seed", false, "register the customer_metrics example group at startup")
	return cmd
}
