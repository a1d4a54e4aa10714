package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/streakrun/internal/application"
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the full backtest and write the workbook",
		Long: `Loads the game file, runs every configured system, writes the result
workbook and JSON artifact, prints the current losing streaks and hands the
run to the configured sinks (Postgres event store, webhook alerts, metrics
textfile).`,
		RunE: runAnalyze,
	}
	cmd.Flags().String("input", "", "Game file (CSV or XLSX)")
	cmd.Flags().String("output", "", "Result workbook path (overrides config)")
	cmd.Flags().String("json", "", "Run artifact path (overrides config)")
	cmd.Flags().Bool("trends", false, "Include current trends in the report")
	cmd.Flags().Bool("no-sinks", false, "Skip the event store, alerts and metrics export")
	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	overrideString(cmd.Flags(), "output", &cfg.Output.Workbook)
	overrideString(cmd.Flags(), "json", &cfg.Output.JSON)
	if v, _ := cmd.Flags().GetBool("trends"); v {
		cfg.Output.Trends = true
	}
	if cfg.Output.Workbook == "" {
		cfg.Output.Workbook = "streakrun_results.xlsx"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := application.NewPipeline(cfg)
	run, err := p.Analyze(ctx)
	if err != nil {
		return err
	}
	if err := p.WriteOutputs(run, cmd.OutOrStdout()); err != nil {
		return err
	}

	if skip, _ := cmd.Flags().GetBool("no-sinks"); skip {
		log.Debug().Msg("Sinks disabled by flag")
		p.SkipSinks()
		return nil
	}
	sinks := p.OpenSinks(ctx)
	defer sinks.Close()
	return p.Publish(ctx, run, sinks)
}
