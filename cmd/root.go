package cmd

import (
	"fmt"
	"io"
	"os"
	"pixelperfect/internal/config"
	"pixelperfect/internal/logging"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configPath string
	logLevel   string

	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "pixelperfect",
	Short: "AI image upscaler with a local resampling fallback",
	Long: "pixelperfect upscales images 2x or 4x with a hosted AI model and falls back to local\n" +
		"resampling whenever the model is unavailable. It runs as an HTTP service with an optional\n" +
		"telegram bot, or upscales a single file from the command line.",
	SilenceUsage:       true,
	PersistentPreRunE:  initializeApp,
	PersistentPostRunE: shutdownApp,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default is ./config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(upscaleCmd)
}

func initializeApp(_ *cobra.Command, _ []string) error {
	loaded, err := config.Load(viper.New(), configPath)
	if err != nil {
		return err
	}
	cfg = loaded

	closer, err := logging.Setup(cfg.Log, logLevel)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	logCloser = closer

	return nil
}

func shutdownApp(_ *cobra.Command, _ []string) error {
	if logCloser == nil {
		return nil
	}
	return logCloser.Close()
}
