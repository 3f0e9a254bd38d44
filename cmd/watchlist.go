package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/bioma-cli/internal/model"
)

var watchlistCmd = &cobra.Command{
	Use:   "watchlist",
	Short: "Inspect and sweep the monitored-company watchlist",
}

var watchlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List watchlist entries by current score",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		entries, err := e.store.ListWatchlist(ctx)
		if err != nil {
			return eris.Wrap(err, "watchlist: list")
		}
		printWatchlist(os.Stdout, entries)
		return nil
	},
}

var watchlistCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Rescore every tracked company and fire movement alerts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		alerts, err := e.manager.CheckAlerts(ctx, e.engine)
		if err != nil {
			return eris.Wrap(err, "watchlist: check")
		}
		printAlerts(os.Stdout, alerts)
		return nil
	},
}

func printWatchlist(w io.Writer, entries []model.WatchlistEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "Watchlist is empty.")
		return
	}

	fmt.Fprintf(w, "%-20s %-30s %7s %7s %7s %-12s %6s\n",
		"ID", "COMPANY", "SCORE", "AT ADD", "PEAK", "ADDED", "ALERTS")
	for _, en := range entries {
		alerts := "off"
		if en.AlertsEnabled {
			alerts = fmt.Sprintf("±%.0f", en.AlertDelta)
		}
		fmt.Fprintf(w, "%-20s %-30s %7.1f %7.1f %7.1f %-12s %6s\n",
			en.CompanyID, truncate(en.CompanyName, 30), en.CurrentScore,
			en.ScoreAtAdd, en.PeakScore, en.AddedAt.Format("2006-01-02"), alerts)
	}
}

func printAlerts(w io.Writer, alerts []model.AlertNotification) {
	if len(alerts) == 0 {
		fmt.Fprintln(w, "No alerts fired.")
		return
	}
	fmt.Fprintf(w, "%d alert(s) fired:\n", len(alerts))
	for _, a := range alerts {
		fmt.Fprintf(w, "  %-30s %.1f -> %.1f (%+.1f, %s)\n",
			a.CompanyName, a.PreviousScore, a.NewScore, a.Delta, a.Trend)
	}
}

func init() {
	watchlistCmd.AddCommand(watchlistListCmd)
	watchlistCmd.AddCommand(watchlistCheckCmd)
	rootCmd.AddCommand(watchlistCmd)
}
