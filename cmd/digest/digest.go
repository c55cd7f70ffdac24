// Package digest implements the one-shot digest command.
package digest

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/techpath/content-pipeline/internal/app"
)

// Command returns the digest command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "digest",
		Short: "Run every configured digest job once and exit",
		Long: `Runs each configured digest job in order: aggregate the category,
curate the batch and post it to the job's channel. Failing jobs are logged
and counted; they never abort the run.`,
		RunE: runDigest,
	}
}

func runDigest(cmd *cobra.Command, _ []string) error {
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

	// RunOnce logs the per-job outcomes and the final tally itself.
	application.Digest().RunOnce(cmd.Context())
	return nil
}
