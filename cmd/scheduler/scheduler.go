// Package scheduler implements the long-running digest scheduler command.
package scheduler

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/techpath/content-pipeline/internal/app"
	"github.com/techpath/content-pipeline/internal/logger"
)

var runNow bool

// Command returns the scheduler command.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Post digests on the configured cron schedule",
		Long: `Starts a scheduler that runs every configured digest job on the cron
schedule from the config file and blocks until interrupted.`,
		RunE: runScheduler,
	}
	cmd.Flags().BoolVar(&runNow, "now", false, "run all digest jobs immediately on startup")
	return cmd
}

func runScheduler(cmd *cobra.Command, _ []string) error {
	application, err := app.New(app.Options{
		ConfigPath: viper.GetString("config"),
		Debug:      viper.GetBool("app.debug"),
		Version:    viper.GetString("app.version"),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer func() {
		_ = application.Close()
	}()

	log := application.Logger()
	schedule := application.Config().Digest.Schedule
	ctx := cmd.Context()

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		application.Digest().RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("invalid digest schedule %q: %w", schedule, err)
	}

	if runNow {
		log.Info("Running digest jobs before entering the schedule")
		application.Digest().RunOnce(ctx)
	}

	c.Start()
	log.Info("Scheduler started", logger.String("schedule", schedule))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	sig := <-quit

	log.Info("Scheduler stopping", logger.String("signal", sig.String()))

	// Stop accepting new ticks and wait for a running digest to finish.
	<-c.Stop().Done()

	log.Info("Scheduler stopped")
	return nil
}
