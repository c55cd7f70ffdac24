// Package cache implements the shared-item cache maintenance command.
package cache

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/techpath/content-pipeline/internal/app"
)

// Command returns the clear-cache command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-cache",
		Short: "Drop every shared-item marker from Redis",
		Long: `Removes all shared-item markers so previously posted content becomes
eligible for digests again. Useful after changing channels or for testing.`,
		RunE: runClearCache,
	}
}

func runClearCache(cmd *cobra.Command, _ []string) error {
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

	if err := application.ClearSharedCache(cmd.Context()); err != nil {
		return fmt.Errorf("failed to clear shared cache: %w", err)
	}

	application.Logger().Info("Shared-item cache cleared")
	return nil
}
