package main

import (
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the watchlist sweep on a cron schedule",
	Long: `Run as a daemon, rescoring every watchlist company on the given
cron schedule and firing webhook alerts on significant moves.

Example:
  watch --schedule "0 */6 * * *"`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("schedule", "0 */6 * * *", "cron schedule for watchlist sweeps")
	watchCmd.Flags().Bool("immediate", false, "run one sweep immediately at startup")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	schedule, _ := cmd.Flags().GetString("schedule")
	immediate, _ := cmd.Flags().GetBool("immediate")

	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	log := zap.L().With(zap.String("command", "watch"))

	sweep := func() {
		alerts, err := e.manager.CheckAlerts(ctx, e.engine)
		if err != nil {
			log.Error("watchlist sweep failed", zap.Error(err))
			return
		}
		log.Info("watchlist sweep complete", zap.Int("alerts", len(alerts)))
	}

	if immediate {
		sweep()
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, sweep); err != nil {
		return eris.Wrapf(err, "watch: invalid schedule %q", schedule)
	}
	c.Start()
	log.Info("watch daemon started", zap.String("schedule", schedule))

	<-ctx.Done()
	log.Info("shutting down watch daemon")

	// Let an in-flight sweep finish before exiting.
	<-c.Stop().Done()
	return nil
}
