package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sawpanic/streakrun/internal/application"
	"github.com/sawpanic/streakrun/internal/report"
)

func newStreaksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "streaks",
		Short: "Print teams currently on long losing streaks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if n, _ := cmd.Flags().GetInt("min"); n > 0 {
				cfg.Thresholds.ActiveStreak = n
			}

			run, err := application.NewPipeline(cfg).Analyze(context.Background())
			if err != nil {
				return err
			}
			report.PrintActiveStreaks(cmd.OutOrStdout(), run.ActiveStreaks, cfg.Thresholds.ActiveStreak)
			return nil
		},
	}
	cmd.Flags().String("input", "", "Game file (CSV or XLSX)")
	cmd.Flags().Int("min", 0, "Minimum current losses to report (overrides config)")
	return cmd
}

func newTrendsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Print current O/U and ATS trends per team",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg.Output.Trends = true
			if n, _ := cmd.Flags().GetInt("min"); n > 0 {
				cfg.Thresholds.TrendMin = n
			}

			run, err := application.NewPipeline(cfg).Analyze(context.Background())
			if err != nil {
				return err
			}
			report.PrintTrends(cmd.OutOrStdout(), run)

			if path, _ := cmd.Flags().GetString("output"); path != "" {
				if err := report.WriteWorkbook(path, run); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Workbook written to '%s'\n", path)
			}
			return nil
		},
	}
	cmd.Flags().String("input", "", "Game file (CSV or XLSX)")
	cmd.Flags().Int("min", 0, "Minimum trend length (overrides config)")
	cmd.Flags().String("output", "", "Also write the full workbook, Trends sheet included")
	return cmd
}
