// Package cmd implements the command-line interface for the content
// pipeline. It provides the root command and subcommands for serving the
// API, running digests and managing the shared-item cache.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdcache "github.com/techpath/content-pipeline/cmd/cache"
	cmddigest "github.com/techpath/content-pipeline/cmd/digest"
	cmdscheduler "github.com/techpath/content-pipeline/cmd/scheduler"
	cmdserve "github.com/techpath/content-pipeline/cmd/serve"
)

// version can be set at build time via -ldflags.
var version = "dev"

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug enables debug mode for all commands.
	debug bool

	rootCmd = &cobra.Command{
		Use:   "content-pipeline",
		Short: "Aggregate, curate and share developer content",
		Long: `content-pipeline pulls job listings, articles and learning resources
from configured sources, curates each batch for the TechPath community and
posts digests to Slack.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env early so flags and config see the environment.
	_ = godotenv.Load()

	// Parse flags early so the config path is known before subcommands run.
	_ = rootCmd.ParseFlags(os.Args[1:])

	if err := initConfig(); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yml", "config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug mode")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("content-pipeline version %s\n", version)
		},
	})

	rootCmd.AddCommand(cmdserve.Command())
	rootCmd.AddCommand(cmddigest.Command())
	rootCmd.AddCommand(cmdscheduler.Command())
	rootCmd.AddCommand(cmdcache.Command())
}

// initConfig exposes the CLI-level settings through viper so subcommand
// packages can read them without importing this package.
func initConfig() error {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("app.version", version)

	if err := viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")); err != nil {
		return fmt.Errorf("failed to bind config flag: %w", err)
	}
	if err := viper.BindPFlag("app.debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("failed to bind debug flag: %w", err)
	}
	if err := viper.BindEnv("config", "PIPELINE_CONFIG"); err != nil {
		return fmt.Errorf("failed to bind PIPELINE_CONFIG: %w", err)
	}
	if err := viper.BindEnv("app.debug", "APP_DEBUG"); err != nil {
		return fmt.Errorf("failed to bind APP_DEBUG: %w", err)
	}

	return nil
}
