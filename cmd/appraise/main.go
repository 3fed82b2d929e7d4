package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/tokyo-appraiser/internal/cli"
	"github.com/Veraticus/tokyo-appraiser/internal/common"
	"github.com/Veraticus/tokyo-appraiser/internal/config"
)

var (
	cfgFile   string
	version   = "dev"
	cfg       *config.Config
	logCloser io.Closer
	rootCmd   = &cobra.Command{
		Use:   "appraise",
		Short: "🏙️  Tokyo residential price estimator",
		Long: `appraise: cleans the national land registry's Tokyo transaction records,
engineers features, trains a gradient-boosted price model with a
chronological health check, and estimates prices for single properties.`,
		PersistentPreRunE:  initConfig,
		PersistentPostRunE: closeLogging,
		SilenceUsage:       true,
		SilenceErrors:      true,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/appraise/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().String("log-file", "", "also append logs to this file")

	// Bind flags to viper
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("logging.file", rootCmd.PersistentFlags().Lookup("log-file"))

	// Add commands
	rootCmd.AddCommand(cleanCmd())
	rootCmd.AddCommand(preprocessCmd())
	rootCmd.AddCommand(trainCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(predictCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	interrupts := cli.NewInterruptHandler(os.Stderr)
	ctx, stop := interrupts.HandleInterrupts(context.Background(), "appraise")

	err := rootCmd.ExecuteContext(ctx)
	stop() // Always cleanup

	if err != nil {
		common.LogError(err, "Command failed", common.Fields{
			"interrupted": interrupts.WasInterrupted(),
			"data_error":  common.IsFatalData(err),
		})
		fmt.Fprintln(os.Stderr, cli.FormatError(describeError(err)))
		os.Exit(1)
	}
}

// describeError prefers the user-facing message of a UserError.
func describeError(err error) string {
	var userErr *common.UserError
	if errors.As(err, &userErr) {
		return userErr.Error()
	}
	return err.Error()
}

func initConfig(cmd *cobra.Command, _ []string) error {
	v := viper.GetViper()
	config.SetDefaults(v)

	// Set up config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		// Search for config in standard locations
		v.AddConfigPath(fmt.Sprintf("%s/.config/appraise", home))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Environment variables
	config.BindEnv(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	loaded, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg = loaded

	// Set up logging
	if err := setupLogging(cfg); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	logger := slog.Default().With("command", cmd.Name())
	cmd.SetContext(common.WithLogger(cmd.Context(), logger))
	logger.Debug("Configuration loaded", "config_file", v.ConfigFileUsed())

	return nil
}

func setupLogging(c *config.Config) error {
	closer, err := common.SetupLogger(c.LogOptions())
	if err != nil {
		return err
	}
	logCloser = closer
	return nil
}

func closeLogging(_ *cobra.Command, _ []string) error {
	if logCloser == nil {
		return nil
	}
	err := logCloser.Close()
	logCloser = nil
	return err
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "appraise %s\n", version)
		},
	}
}
