package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/streakrun/internal/aggregate"
	"github.com/sawpanic/streakrun/internal/config"
	"github.com/sawpanic/streakrun/internal/infrastructure/db"
	"github.com/sawpanic/streakrun/internal/persistence"
	"github.com/sawpanic/streakrun/internal/streak"
)

func newEventsCmd() *cobra.Command {
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Query the Postgres recovery event store",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored recovery events as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter persistence.EventFilter
			filter.RunID, _ = cmd.Flags().GetString("run-id")
			filter.System, _ = cmd.Flags().GetString("system")
			filter.Team, _ = cmd.Flags().GetString("team")
			filter.Year, _ = cmd.Flags().GetInt("year")
			filter.Limit, _ = cmd.Flags().GetInt("limit")

			return withStore(cmd, func(ctx context.Context, repo persistence.EventsRepo) error {
				records, err := repo.List(ctx, filter)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				for _, rec := range records {
					if err := enc.Encode(rec); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	listCmd.Flags().String("run-id", "", "Only events of this run")
	listCmd.Flags().String("system", "", "Only events of this system")
	listCmd.Flags().String("team", "", "Only events of this team")
	listCmd.Flags().Int("year", 0, "Only events of this season year")
	listCmd.Flags().Int("limit", 100, "Maximum rows (0 for all)")

	deleteCmd := &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete every event of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, repo persistence.EventsRepo) error {
				n, err := repo.DeleteRun(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d event(s) of run %s\n", n, args[0])
				return nil
			})
		},
	}

	summaryCmd := &cobra.Command{
		Use:   "summary",
		Short: "Print per-system recovery totals over stored events",
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter persistence.EventFilter
			filter.RunID, _ = cmd.Flags().GetString("run-id")
			filter.Year, _ = cmd.Flags().GetInt("year")

			return withStore(cmd, func(ctx context.Context, repo persistence.EventsRepo) error {
				records, err := repo.List(ctx, filter)
				if err != nil {
					return err
				}
				writeEventTotals(cmd.OutOrStdout(), records)
				return nil
			})
		},
	}
	summaryCmd.Flags().String("run-id", "", "Only events of this run")
	summaryCmd.Flags().Int("year", 0, "Only events of this season year")

	eventsCmd.AddCommand(listCmd, deleteCmd, summaryCmd)
	return eventsCmd
}

func withStore(cmd *cobra.Command, fn func(context.Context, persistence.EventsRepo) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.Database.Enabled {
		return errors.New("database is not enabled (set database.enabled or " + config.EnvPostgresDSN + ")")
	}

	ctx := context.Background()
	mgr, err := db.NewManager(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer mgr.Close()
	if !mgr.IsEnabled() {
		return errors.New("database manager has no connection")
	}

	health := mgr.Health(ctx)
	log.Debug().Bool("healthy", health.Healthy).Int64("response_ms", health.ResponseTimeMS).
		Interface("pool", health.ConnectionPool).Msg("Database health")
	if !health.Healthy {
		return fmt.Errorf("database unhealthy: %s", strings.Join(health.Errors, "; "))
	}

	return fn(ctx, mgr.Repository().Events)
}

// writeEventTotals prints one line per system with its recovered share.
func writeEventTotals(w io.Writer, records []persistence.EventRecord) {
	events := make([]streak.Event, len(records))
	for i, rec := range records {
		events[i] = rec.Event()
	}
	totals := aggregate.Totals(aggregate.Summarize(events))
	if len(totals) == 0 {
		fmt.Fprintln(w, "No stored events.")
		return
	}
	for _, t := range totals {
		fmt.Fprintf(w, "%s: %d/%d recovered (%.2f%%)\n", t.System, t.Recovered, t.Total, *t.Percentage)
	}
}
