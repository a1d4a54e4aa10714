package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/streakrun/internal/application"
	"github.com/sawpanic/streakrun/internal/backtest"
	httpapi "github.com/sawpanic/streakrun/internal/interfaces/http"
	"github.com/sawpanic/streakrun/internal/metrics"
	"github.com/sawpanic/streakrun/internal/report"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a run read-only over HTTP",
		Long: `Serves /health, /summary, /events, /streaks, /trends and /metrics for a
saved run artifact, or for a fresh run of --input when no artifact is given.`,
		RunE: runServe,
	}
	cmd.Flags().String("artifact", "", "Run artifact written by analyze --json")
	cmd.Flags().String("input", "", "Game file to analyze when no artifact is given")
	cmd.Flags().String("host", "127.0.0.1", "HTTP server host")
	cmd.Flags().Int("port", 0, "HTTP server port (default HTTP_PORT or 8080)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var (
		run *backtest.Run
		m   *metrics.Registry
	)
	if path, _ := cmd.Flags().GetString("artifact"); path != "" {
		run, err = report.LoadArtifact(path)
		if err != nil {
			return err
		}
		m = metrics.NewRegistry(cfg.Metrics.Namespace)
	} else {
		cfg.Output.Trends = true
		p := application.NewPipeline(cfg)
		run, err = p.Analyze(context.Background())
		if err != nil {
			return err
		}
		m = p.Metrics()
	}

	serverCfg := httpapi.DefaultServerConfig()
	serverCfg.Host, _ = cmd.Flags().GetString("host")
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		serverCfg.Port = port
	}
	server := httpapi.NewServer(serverCfg, run, m)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
		return err
	}
	log.Info().Msg("Server shutdown complete")
	return nil
}
