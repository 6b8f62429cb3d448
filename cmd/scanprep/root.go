package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/scanforge/scanprep/config"
	"github.com/scanforge/scanprep/observability"
)

var rootCmd = &cobra.Command{
	Use:   "scanprep",
	Short: "Normalize scanned documents for OCR and vision models",
	Long: `scanprep straightens, enhances and binarizes scanned document images
and PDFs so downstream OCR or vision-model consumers get the most
legible raster possible.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to config.toml")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
}

// loadConfig merges the config file (when given) over the defaults.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func newLogger(cmd *cobra.Command) observability.Logger {
	backend := logrus.New()
	backend.SetOutput(os.Stderr)
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		backend.SetLevel(logrus.DebugLevel)
	}
	return observability.NewLogrusLogger(backend)
}
