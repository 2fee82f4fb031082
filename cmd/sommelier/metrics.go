package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/PavoWillow/wine-data-toolkit/internal/config"
	"github.com/PavoWillow/wine-data-toolkit/internal/metrics"
)

func newMetricsCmd() *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show stored session metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			history, err := metrics.NewSQLiteHistory(cfg.Metrics.HistoryPath)
			if err != nil {
				return err
			}
			defer history.Close()

			sessions, err := history.ListSessions(context.Background(), limit)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Println("No stored sessions.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tENDED\tQUERIES\tHITS\tMISSES\tERRORS\tHIT RATE\tCOST SAVED")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%.1f%%\t$%.4f\n",
					s.StartedAt.Format("2006-01-02T15:04:05"),
					s.EndedAt.Format("2006-01-02T15:04:05"),
					s.TotalQueries, s.CacheHits, s.CacheMisses, s.APIErrors,
					s.HitRate, s.CostSaved)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "sommelier.yaml", "path to config file")
	cmd.Flags().IntVar(&limit, "limit", 20, "number of sessions to show")
	return cmd
}

// printSnapshot renders the live session aggregates for the chat REPL.
func printSnapshot(agg metrics.Aggregates) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Queries\t%d\n", agg.TotalQueries)
	fmt.Fprintf(w, "Cache hits\t%d (%.1f%%)\n", agg.CacheHits, agg.HitRate)
	fmt.Fprintf(w, "Cache misses\t%d (%.1f%%)\n", agg.CacheMisses, agg.MissRate)
	fmt.Fprintf(w, "Errors\t%d\n", agg.APIErrors)
	fmt.Fprintf(w, "Avg response time\t%.2fs\n", agg.AvgResponseTime)
	fmt.Fprintf(w, "Avg cache hit time\t%.2fs\n", agg.AvgCacheHitTime)
	fmt.Fprintf(w, "Avg generation time\t%.2fs\n", agg.AvgGenerationTime)
	fmt.Fprintf(w, "Tokens saved\t%d\n", agg.TokensSaved)
	fmt.Fprintf(w, "Cost saved\t$%.4f\n", agg.CostSaved)
	fmt.Fprintf(w, "Cost reduction\t%.1f%%\n", agg.CostReduction)
	_ = w.Flush()
}
